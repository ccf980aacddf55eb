// Package prometheus serves loginGuard engine counters and the session
// validation latency histogram in Prometheus text format.
//
// Series are named loginguard_*_total plus
// loginguard_validate_session_latency_seconds. Nothing is registered
// globally; callers mount [PrometheusExporter.Handler].
package prometheus
