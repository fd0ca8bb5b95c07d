// Package api hosts the HTTP server, middleware, and REST handlers for the
// shelter mirror. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/sync to run a reconciliation and report "updated" or "not updated".
//   - GET /v1/render for HTML fragments built from mirrored records.
//   - GET /v1/records and /v1/records/{id} for JSON reads.
//   - GET/PUT /v1/settings for the remote API credentials.
//   - GET /assets/* for locally stored images when the local blob driver is used.
package api
