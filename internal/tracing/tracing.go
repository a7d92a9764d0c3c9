package tracing

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// ExporterZipkin posts spans to a Zipkin v2 collector.
	ExporterZipkin = "zipkin"

	serviceName = "service-client2"
)

// NewProvider returns a tracer provider exporting through the named exporter.
// An empty name keeps spans in process; trace context is still propagated.
func NewProvider(exporter, url string, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	switch exporter {
	case "":
		logger.Info("Trace export disabled, propagating trace context only")
		return sdktrace.NewTracerProvider(sdktrace.WithResource(res)), nil

	case ExporterZipkin:
		exp, err := zipkin.New(url)
		if err != nil {
			return nil, fmt.Errorf("zipkin exporter: %w", err)
		}

		logger.Info("Exporting traces to zipkin", slog.String("url", url))

		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		), nil

	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", exporter)
	}
}
