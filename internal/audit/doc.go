// Package audit carries the engine's observability events to a pluggable
// sink without blocking the hot path.
//
// The Dispatcher decouples emitters from sink latency: events are queued on
// a bounded channel and forwarded by a single goroutine. When the buffer is
// full the dispatcher either drops (counted) or blocks, per configuration.
//
// This package must not import the root package or any sibling.
package audit
