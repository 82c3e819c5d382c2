// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

/*
Package middleware provides chi-compatible HTTP middleware for request
tracing, access logging and Prometheus instrumentation.

  - RequestID: reuses or generates X-Request-ID and seeds the logging context
  - AccessLog: one zerolog line per request, levelled by status
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by chi route pattern

CORS and rate limiting come from go-chi/cors and go-chi/httprate and are
assembled in the api package.

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
