// Package metrics defines the sinks that record dispatch activity for
// observability. Sinks like the Prometheus and InfluxDB implementations in
// infra/metrics are built from configuration through the factory registry and
// combined with NewMultiSink when several are configured. Optional recorder
// interfaces let a sink opt into vehicle and system state events.
package metrics
