package main

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/service-client2/internal/handler"
	"github.com/angeloszaimis/service-client2/internal/metrics"
	"github.com/angeloszaimis/service-client2/internal/registry"
)

const proxyRoute = "/call-client1"

func setupRouter(log *slog.Logger, proxy *handler.ProxyHandler, reg *registry.Registry,
	collector *metrics.Collector, strategy string) *mux.Router {
	r := mux.NewRouter()
	r.Use(handler.Logging(log))

	r.Handle(proxyRoute, proxy).Methods(http.MethodGet)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", collector.PrometheusHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", collector.Handler(strategy)).Methods(http.MethodGet)
	r.HandleFunc("/registry", reg.Handler()).Methods(http.MethodGet)

	return r
}
