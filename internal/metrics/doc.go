// Package metrics records outbound call and instance health metrics.
//
// Events flow through a buffered channel into a single collector goroutine:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventCallCompleted,
//		Service:    "service-client1",
//		Instance:   "http://localhost:8081",
//		Duration:   15 * time.Millisecond,
//		StatusCode: 200,
//	})
//
// Emit never blocks; a full buffer drops the event. On shutdown the collector
// drains whatever is still queued.
//
// Two views are kept. Snapshot (served by Handler) holds per-instance counts,
// average and p50/p95/p99 latency, status codes and health. PrometheusHandler
// exposes the same calls and health as service_client_* series together with
// Go runtime and process collectors.
package metrics
