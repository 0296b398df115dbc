// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Reading, writing, removing and clearing items of a storage area
//   - Listing the area names
//   - Health checks
//   - Prometheus metrics
//
// Store failures do not change the response status: the operation still
// completes with a null payload and the failure goes to the error sink.
package http
