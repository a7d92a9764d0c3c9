package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "service_client"

type promMetrics struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	up       *prometheus.GaugeVec
}

func newPromMetrics() *promMetrics {
	pm := &promMetrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Outbound calls by logical service, instance and response code.",
		}, []string{"service", "instance", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Outbound call latency until response headers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "instance"}),
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instance_up",
			Help:      "1 when the instance passes health checks, 0 otherwise.",
		}, []string{"service", "instance"}),
	}

	pm.registry.MustRegister(
		pm.calls,
		pm.duration,
		pm.up,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return pm
}

func (pm *promMetrics) observe(service, instance string, d time.Duration, statusCode int) {
	code := "error"
	if statusCode != 0 {
		code = strconv.Itoa(statusCode)
	}

	pm.calls.WithLabelValues(service, instance, code).Inc()
	pm.duration.WithLabelValues(service, instance).Observe(d.Seconds())
}

func (pm *promMetrics) setUp(service, instance string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	pm.up.WithLabelValues(service, instance).Set(v)
}

// Gatherer exposes the Prometheus registry, mainly for tests.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.prom.registry
}

// PrometheusHandler serves the collector's registry in the exposition format.
func (c *Collector) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(c.prom.registry, promhttp.HandlerOpts{})
}
