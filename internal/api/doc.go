// Package api hosts the operator HTTP listener that runs alongside a scrape:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
package api
