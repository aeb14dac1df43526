// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Goal submission and lifecycle management
//   - Status queries and human resume input
//   - Health checks
//   - Prometheus metrics
package http
