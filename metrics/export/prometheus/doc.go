// Package prometheus exposes engine metrics through client_golang.
//
// [Collector] implements prometheus.Collector over an engine snapshot:
// counters are published as gosession_*_total and the refresh and
// authenticate latencies as histograms. Register it on your own registry, or
// mount [Handler] for a self-contained /metrics endpoint.
//
// The package never registers on the global default registry.
package prometheus
