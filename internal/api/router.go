// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tomtom215/rendezvous/internal/apidocs" // registers the swagger spec
	"github.com/tomtom215/rendezvous/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. cfg may be nil for defaults.
func NewRouter(handler *Handler, cfg *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(cfg),
	}
}

// Setup configures every HTTP route.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	// Health
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Presence channel
	r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).Get("/ws", router.handler.WebSocket)

	// Original map-link contract, un-enveloped
	r.With(router.chiMiddleware.RateLimitCustom(RateLimitUpstream)).Get("/resolve-map-link", router.handler.ResolveMapLink)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		r.Route("/transactions", func(r chi.Router) {
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/", router.handler.CreateTransaction)
			r.Get("/{code}", router.handler.GetTransaction)
		})

		r.Route("/rooms/{code}", func(r chi.Router) {
			r.Get("/", router.handler.GetRoom)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Delete("/", router.handler.DeleteRoom)
			r.Get("/locations", router.handler.GetLocations)
			r.Get("/locations/stream", router.handler.StreamLocations)
			r.Put("/locations/{member}", router.handler.PutLocation)
			r.Get("/meeting-point", router.handler.GetMeetingPoint)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Put("/meeting-point", router.handler.SetMeetingPoint)
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).Post("/meeting-point/picking", router.handler.BeginPicking)
		})

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitUpstream)).Get("/geocode", router.handler.Geocode)
	})

	// Observability
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
