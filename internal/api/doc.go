// Package api hosts the watcher's status HTTP server. Routes:
//   - GET /healthz and /readyz for probes; readyz turns 200 after the first
//     applied poll.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/indicator for the last applied poll and the rendered view.
package api
