// Package metrics provides lock-free counters and a latency histogram for eduAuth.
//
// Counters live in cache-line-padded uint64 slots and are incremented with
// sync/atomic. The validate-latency histogram uses 8 fixed buckets
// (≤5ms … +Inf). Neither allocates on the write path.
//
// This package owns storage and snapshots only. Exporters (Prometheus, OTel) live
// in metrics/export and read [Snapshot] values through the engine.
package metrics
