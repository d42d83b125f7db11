// Package api serves flow graphs, settled layouts and rendered artifacts
// over HTTP.
//
// A [Server] holds the decoded records of one capture and answers every
// request through a [pipeline.Runner], so repeated requests for the same
// mode are served from the cache:
//
//	GET /healthz
//	GET /api/v1/graph/{mode}
//	GET /api/v1/layout/{mode}
//	GET /api/v1/render/{mode}.{format}
//
// Errors are reported as JSON bodies carrying the error code, with the
// HTTP status derived from that code.
package api
