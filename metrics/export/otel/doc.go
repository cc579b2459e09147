// Package otel exposes eduAuth engine counters as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket, all fed by a single callback that
// reads the engine snapshot at collection time. The caller owns the
// MeterProvider.
package otel
