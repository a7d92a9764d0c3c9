package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/service-client2/internal/instance"
	"github.com/angeloszaimis/service-client2/internal/metrics"
)

// Checker probes instances on a fixed interval and flips their health flag.
type Checker struct {
	client    *http.Client
	path      string
	interval  time.Duration
	logger    *slog.Logger
	collector *metrics.Collector
}

// New returns a Checker probing GET <instance host><path>. collector may be nil.
func New(interval, timeout time.Duration, path string, logger *slog.Logger, collector *metrics.Collector) *Checker {
	return &Checker{
		client:    &http.Client{Timeout: timeout},
		path:      path,
		interval:  interval,
		logger:    logger,
		collector: collector,
	}
}

// Start runs one probe loop per instance until ctx is done.
func (c *Checker) Start(ctx context.Context, instances []*instance.Instance) {
	for _, inst := range instances {
		go c.Run(ctx, inst)
	}
}

// Run probes inst every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, inst *instance.Instance) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.report(inst, inst.IsHealthy())

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Health check stopped",
				slog.String("service", inst.Service()),
				slog.String("instance", inst.URL().String()))
			return

		case <-ticker.C:
			c.Check(ctx, inst)
		}
	}
}

// Check performs a single probe and records the outcome on inst.
// Only a 200 counts as healthy.
func (c *Checker) Check(ctx context.Context, inst *instance.Instance) bool {
	healthy := c.probe(ctx, inst.URL())
	if ctx.Err() != nil {
		return inst.IsHealthy()
	}

	if !inst.SetHealthy(healthy) {
		return healthy
	}

	if healthy {
		c.logger.Info("Instance is back up",
			slog.String("service", inst.Service()),
			slog.String("instance", inst.URL().String()))
	} else {
		c.logger.Warn("Instance is down",
			slog.String("service", inst.Service()),
			slog.String("instance", inst.URL().String()))
	}

	c.report(inst, healthy)
	return healthy
}

func (c *Checker) probe(ctx context.Context, base *url.URL) bool {
	healthURL := base.ResolveReference(&url.URL{Path: c.path})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL.String(), nil)
	if err != nil {
		return false
	}

	res, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode == http.StatusOK
}

func (c *Checker) report(inst *instance.Instance, healthy bool) {
	c.collector.Emit(metrics.MetricEvent{
		Type:     metrics.EventHealthChanged,
		Service:  inst.Service(),
		Instance: inst.URL().String(),
		Healthy:  healthy,
	})
}
