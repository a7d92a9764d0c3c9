// Package instance models the network endpoints behind a logical service name:
// health, in-flight call counting and EWMA response time tracking.
package instance
