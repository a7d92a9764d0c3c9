// Package tracing builds the OpenTelemetry tracer provider used by the
// outbound client.
package tracing
