// Package server provides the HTTP front door of a flowkit service: a Gin
// engine served over HTTP/1.1 and h2c, wrapped in the middleware stack from
// server/middleware and registered with the bootstrap lifecycle as a
// component.
//
// Built-in endpoints (server/endpoint):
//
//   - /health: aggregated component health, including pipelines
//   - /alive: liveness probe
//   - /metrics: runtime figures and per-pipeline queue depths
//
// Ingest handlers that post request bodies into a running pipeline are
// created with endpoint.Ingest.
package server
