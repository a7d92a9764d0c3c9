package lbclient

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/service-client2/internal/metrics"
)

type options struct {
	base           http.RoundTripper
	timeout        time.Duration
	logger         *slog.Logger
	collector      *metrics.Collector
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
}

// Option configures NewTransport and NewClient.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		base:           http.DefaultTransport,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracerProvider: otel.GetTracerProvider(),
		propagator:     otel.GetTextMapPropagator(),
	}
}

// WithBaseTransport sets the transport that carries requests once the
// logical host has been rewritten. Defaults to http.DefaultTransport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// WithTimeout sets http.Client.Timeout on clients built by NewClient.
// Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithCollector(collector *metrics.Collector) Option {
	return func(o *options) {
		o.collector = collector
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.propagator = p
	}
}
