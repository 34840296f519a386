// Package otel publishes goSession counters and latency histograms through
// OpenTelemetry observable instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter and, per
// histogram, a bucket gauge keyed by an "le" attribute plus a count gauge. A
// single callback reads [goSession.Engine.MetricsSnapshot] each collection.
//
// The caller owns the MeterProvider. The exporter never mutates engine state.
package otel
