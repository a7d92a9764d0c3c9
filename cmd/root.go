package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/angeloszaimis/service-client2/config"
	"github.com/angeloszaimis/service-client2/internal/httpserver"
	"github.com/angeloszaimis/service-client2/internal/strategy"
	"github.com/angeloszaimis/service-client2/internal/tracing"
	"github.com/angeloszaimis/service-client2/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "service-client2",
		Short: "Relays GET /call-client1 to service-client1 through a load-balanced client.",
		Long: `service-client2 serves GET /call-client1 by calling GET /hello on one instance of
the logical service service-client1 and returning the answer as plain text.
Instances are listed in the configuration and picked by the configured strategy.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "path to the YAML config file (default: search ./config and .)")
	flags.String("addr", ":8080", "listen address")
	flags.String("log-level", config.LogLevelInfo, "log level: debug, info, warn or error")
	flags.String("strategy", strategy.RoundRobin, "instance selection strategy")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	tp, err := tracing.NewProvider(cfg.Tracing.Exporter, cfg.Tracing.URL, log)
	if err != nil {
		log.Error("Failed to create tracer provider", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Failed to shut down tracer provider", slog.Any("err", err))
		}
	}()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	a, err := newApp(ctx, cfg, log, tp)
	if err != nil {
		log.Error("Failed to wire service",
			slog.String("strategy", cfg.Strategy.Type),
			slog.Any("err", err))
		return err
	}
	defer a.client.CloseIdleConnections()

	srv, err := httpserver.New(cfg.Server.Address, a.router, httpserver.Timeouts{
		Read:  config.Duration(cfg.Server.ReadTimeout),
		Write: config.Duration(cfg.Server.WriteTimeout),
		Idle:  config.Duration(cfg.Server.IdleTimeout),
	})
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Serving",
		slog.String("addr", srv.Addr()),
		slog.String("target", a.proxy.Target()),
		slog.String("strategy", cfg.Strategy.Type),
		slog.Bool("health_check", cfg.HealthCheck.Enabled),
		slog.Any("services", a.registry.Services()))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
			return err
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			return err
		}
	}

	return nil
}
