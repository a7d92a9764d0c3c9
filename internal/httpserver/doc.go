// Package httpserver runs the inbound HTTP listener with bounded timeouts and
// graceful shutdown.
package httpserver
