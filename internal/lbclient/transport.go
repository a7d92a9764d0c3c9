package lbclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/service-client2/internal/instance"
	"github.com/angeloszaimis/service-client2/internal/metrics"
)

const tracerName = "github.com/angeloszaimis/service-client2/internal/lbclient"

// Resolver maps a logical service name to a reserved instance. The caller
// releases the instance once the call is over.
type Resolver interface {
	Resolve(ctx context.Context, service string) (*instance.Instance, error)
}

// Transport is an http.RoundTripper that treats the request host as a logical
// service name. Each request is sent to an instance picked by the Resolver.
type Transport struct {
	resolver   Resolver
	base       http.RoundTripper
	logger     *slog.Logger
	collector  *metrics.Collector
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

func NewTransport(resolver Resolver, opts ...Option) *Transport {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return newTransport(resolver, o)
}

// NewClient returns an http.Client whose requests address services by name,
// e.g. GET http://service-client1/hello. Redirects are returned to the caller
// rather than followed: an absolute Location names a real host, which this
// transport would mistake for a logical service.
func NewClient(resolver Resolver, opts ...Option) *http.Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &http.Client{
		Transport: newTransport(resolver, o),
		Timeout:   o.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func newTransport(resolver Resolver, o *options) *Transport {
	return &Transport{
		resolver:   resolver,
		base:       o.base,
		logger:     o.logger,
		collector:  o.collector,
		tracer:     o.tracerProvider.Tracer(tracerName),
		propagator: o.propagator,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	service := req.URL.Hostname()

	ctx, span := t.tracer.Start(req.Context(), req.Method+" "+service,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("service.target", service),
			attribute.String("url.path", req.URL.Path),
		))

	inst, err := t.resolver.Resolve(ctx, service)
	if err != nil {
		closeRequestBody(req)
		endWithError(span, err)

		return nil, fmt.Errorf("resolve %s: %w", service, err)
	}

	target := rewriteURL(inst.URL(), req.URL)
	instanceURL := inst.URL().String()

	out := req.Clone(ctx)
	out.URL = target
	out.Host = ""
	t.propagator.Inject(ctx, propagation.HeaderCarrier(out.Header))

	span.SetAttributes(attribute.String("server.address", target.Host))

	t.collector.Emit(metrics.MetricEvent{
		Type:     metrics.EventCallStarted,
		Service:  service,
		Instance: instanceURL,
	})

	start := time.Now()
	resp, err := t.base.RoundTrip(out)
	elapsed := time.Since(start)

	if err != nil {
		inst.Release()
		endWithError(span, err)

		t.collector.Emit(metrics.MetricEvent{
			Type:     metrics.EventCallCompleted,
			Service:  service,
			Instance: instanceURL,
			Duration: elapsed,
		})

		// the caller owns failure logging
		return nil, fmt.Errorf("call %s at %s: %w", service, instanceURL, err)
	}

	inst.ObserveLatency(elapsed)

	t.collector.Emit(metrics.MetricEvent{
		Type:       metrics.EventCallCompleted,
		Service:    service,
		Instance:   instanceURL,
		Duration:   elapsed,
		StatusCode: resp.StatusCode,
	})

	t.logger.Info("Service call",
		slog.String("service", service),
		slog.String("instance", instanceURL),
		slog.String("method", req.Method),
		slog.String("uri", target.String()),
		slog.Int("status", resp.StatusCode),
		slog.Int64("response_time_us", elapsed.Microseconds()))

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	resp.Body = &releasingBody{
		ReadCloser: resp.Body,
		release: func() {
			inst.Release()
			span.End()
		},
	}

	return resp, nil
}

// rewriteURL points logical at the instance base URL, keeping its path
// under the base path and merging both query strings.
func rewriteURL(base, logical *url.URL) *url.URL {
	target := *logical
	target.Scheme = base.Scheme
	target.Host = base.Host
	target.User = base.User
	target.Path = joinPath(base.Path, logical.Path)
	target.RawPath = ""

	switch {
	case base.RawQuery == "":
	case logical.RawQuery == "":
		target.RawQuery = base.RawQuery
	default:
		target.RawQuery = base.RawQuery + "&" + logical.RawQuery
	}

	return &target
}

func joinPath(base, path string) string {
	if base == "" || base == "/" {
		return path
	}

	if path == "" {
		return base
	}

	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

func endWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

func closeRequestBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// releasingBody frees the reserved instance when the caller closes the body.
type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

// CloseIdleConnections forwards to the base transport when it supports it.
func (t *Transport) CloseIdleConnections() {
	type closeIdler interface {
		CloseIdleConnections()
	}

	if ci, ok := t.base.(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}
