// Package progress provides the poll event primitives, the non-blocking hub,
// and the emitter interface the poller uses to report each tick. Events are
// batched on a background goroutine and fanned out to pluggable sinks such as
// structured logs or Prometheus metrics.
package progress
