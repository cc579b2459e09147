// Package prometheus renders eduAuth engine counters in Prometheus text
// exposition format.
//
// [Exporter.Handler] is mounted by the caller (the server mounts it at /metrics);
// nothing is registered globally. Counter names are eduauth_*_total and the one
// histogram is eduauth_validate_latency_seconds.
package prometheus
