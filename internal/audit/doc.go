// Package audit delivers security events (logins, refreshes, rate-limit denials,
// identity mutations) to a pluggable sink without blocking the request path.
//
// [Dispatcher] owns a bounded buffer and one delivery goroutine. When the buffer
// is full it either drops (counting drops) or blocks until the caller's context
// ends, depending on [Config.DropIfFull].
//
// Close flushes the buffer. A non-zero [Config.FlushTimeout] caps that wait: past
// the deadline the sink's context is cancelled and whatever is still buffered
// counts as dropped.
//
// The package never decides which events exist; the engine does.
package audit
