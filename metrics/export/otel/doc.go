// Package otel binds loginGuard metrics to an OpenTelemetry Meter.
//
// Each counter becomes an Int64ObservableCounter; the latency histogram is
// published as one cumulative gauge per bucket plus a count gauge. The
// caller owns the MeterProvider.
package otel
