// Package rest exposes the alert service over HTTP/JSON.
//
// Routes:
//
//	POST /api/v1/sos           submit an alert (201 new, 200 duplicate)
//	GET  /api/v1/alerts?limit  list recent alerts, newest first
//	GET  /health               liveness probe
//
// Bodies use the same JSON shape as the gRPC messages. Errors are
// {"error": "..."} objects.
package rest
