// Package sinks implements concrete poll event consumers: structured logging
// and Prometheus metrics. Each sink satisfies progress.Sink.
package sinks
