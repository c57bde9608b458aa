// Package metrics exposes Prometheus collectors for reconciliation passes,
// batch streaming and archiving.
//
// Metrics collected (namespace "vdiff" by default):
//   - vdiff_passes_total: Counter of align/diff/encode passes by stage and status
//   - vdiff_pass_duration_seconds: Histogram of pass duration by stage
//   - vdiff_patches_total: Counter of patches by operation
//   - vdiff_batch_bytes: Histogram of encoded batch sizes
//   - vdiff_active_sessions: Gauge of live sessions
//   - vdiff_stream_connections: Gauge of connected WebSocket hosts
//   - vdiff_stream_messages_total: Counter of batches written to hosts
//   - vdiff_resyncs_total: Counter of resyncs by outcome
//   - vdiff_websocket_errors_total: Counter of WebSocket errors by type
//   - vdiff_archive_writes_total: Counter of archived batches by status
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("myapp"))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics
