package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/service-client2/config"
	"github.com/angeloszaimis/service-client2/internal/handler"
	"github.com/angeloszaimis/service-client2/internal/healthcheck"
	"github.com/angeloszaimis/service-client2/internal/instance"
	"github.com/angeloszaimis/service-client2/internal/lbclient"
	"github.com/angeloszaimis/service-client2/internal/metrics"
	"github.com/angeloszaimis/service-client2/internal/registry"
	"github.com/angeloszaimis/service-client2/internal/strategy"
)

const metricsBufferSize = 1000

// app holds the collaborators behind the router. Background work (metrics
// collection, health probes) runs until the context given to newApp is done.
type app struct {
	router   http.Handler
	registry *registry.Registry
	client   *http.Client
	proxy    *handler.ProxyHandler
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, tp trace.TracerProvider) (*app, error) {
	newStrategy, err := strategy.NewFactory(cfg.Strategy.Type)
	if err != nil {
		return nil, err
	}

	reg, err := buildRegistry(cfg, newStrategy)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	if cfg.HealthCheck.Enabled {
		checker := healthcheck.New(
			config.Duration(cfg.HealthCheck.Interval),
			config.Duration(cfg.HealthCheck.Timeout),
			cfg.HealthCheck.Path,
			log,
			collector,
		)
		checker.Start(ctx, reg.Instances())
	} else {
		log.Info("Health checking disabled, every instance stays eligible")
	}

	client := lbclient.NewClient(reg,
		lbclient.WithTimeout(config.Duration(cfg.Client.Timeout)),
		lbclient.WithLogger(log),
		lbclient.WithCollector(collector),
		lbclient.WithTracerProvider(tp),
	)

	proxy := handler.NewProxyHandler(log, client, cfg.Downstream.Service, cfg.Downstream.Path)

	return &app{
		router:   setupRouter(log, proxy, reg, collector, cfg.Strategy.Type),
		registry: reg,
		client:   client,
		proxy:    proxy,
	}, nil
}

// buildRegistry registers every configured service with its instances.
func buildRegistry(cfg *config.Config, newStrategy strategy.Factory) (*registry.Registry, error) {
	reg := registry.New(newStrategy)

	for name, instances := range cfg.Services {
		members := make([]*instance.Instance, 0, len(instances))

		for _, ic := range instances {
			u, err := url.Parse(ic.URL)
			if err != nil {
				return nil, fmt.Errorf("service %q: parse instance URL %q: %w", name, ic.URL, err)
			}
			members = append(members, instance.New(name, u, ic.Weight))
		}

		if err := reg.Register(name, members...); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
