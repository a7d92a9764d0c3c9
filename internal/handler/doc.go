// Package handler implements the inbound HTTP surface: the pass-through
// proxy handler and the request logging middleware.
package handler
