// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

/*
Package api is the HTTP surface of the relay, routed with chi.

Routes:

	GET    /health, /health/live, /health/ready
	GET    /ws                                     presence channel upgrade
	GET    /resolve-map-link?url=                  bare {latitude, longitude} or {error}
	POST   /api/v1/transactions                    create a listing, allocate TRX-n
	GET    /api/v1/transactions/{code}
	GET    /api/v1/rooms/{code}                    snapshot, ?exclude=member
	DELETE /api/v1/rooms/{code}
	GET    /api/v1/rooms/{code}/locations          ?exclude=member
	GET    /api/v1/rooms/{code}/locations/stream   server-sent events, ?exclude=member
	PUT    /api/v1/rooms/{code}/locations/{member}
	GET    /api/v1/rooms/{code}/meeting-point
	PUT    /api/v1/rooms/{code}/meeting-point      seller only
	POST   /api/v1/rooms/{code}/meeting-point/picking  seller only
	GET    /api/v1/geocode?q=
	GET    /metrics
	GET    /swagger/*

Every /api/v1 and /health response uses the models.APIResponse envelope.
Domain errors are mapped in respondServiceError: validation failures are
400 VALIDATION_ERROR, missing rooms 404 NOT_FOUND, non-seller writes 403
SELLER_ONLY, overwriting a set point outside picking 409 NOT_PICKING and an
open circuit breaker 503 SERVICE_UNAVAILABLE.

Location writes over HTTP are announced to the room through the hub. Meeting
point writes reach members through the store change stream, whichever path
they came from.

Middleware, outermost first: request ID, real IP, panic recovery, CORS,
access log, Prometheus metrics, then per-group httprate limits and security
headers.
*/
package api
