// Package server runs the HTTP API: a gin engine behind a net/http handler
// with h2c support and a middleware stack applied at the handler level.
//
// Middleware (server/middleware): Recovery, RequestID, CORS, BodySizeLimit,
// RequestLogger.
//
// Endpoints (server/endpoint): /health aggregates component health, /alive
// and /ready serve as liveness and readiness probes.
package server
