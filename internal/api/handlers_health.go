// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/rendezvous/internal/models"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status         string            `json:"status"`
	StoreConnected bool              `json:"store_connected"`
	Clients        int               `json:"clients"`
	Rooms          int               `json:"rooms"`
	Members        int               `json:"members"`
	Breakers       map[string]string `json:"breakers,omitempty"`
	Uptime         float64           `json:"uptime"`
}

// Health reports store connectivity, presence totals and breaker states.
//
// @Summary Get relay health status
// @Description Returns store connectivity, connected sessions, active rooms and circuit breaker states
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=HealthStatus} "Health status retrieved successfully"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	storeOK := h.store != nil && h.store.Ping() == nil

	status := "healthy"
	if !storeOK {
		status = "degraded"
	}

	health := HealthStatus{
		Status:         status,
		StoreConnected: storeOK,
		Uptime:         time.Since(h.startTime).Seconds(),
	}
	if h.wsHub != nil {
		health.Clients = h.wsHub.ClientCount()
		health.Rooms, health.Members = h.wsHub.Rooms().Stats()
	}

	breakers := make(map[string]string)
	if b, ok := h.resolver.(breakerStater); ok {
		breakers["maplink"] = b.BreakerState()
	}
	if b, ok := h.geocoder.(breakerStater); ok {
		breakers["geocode"] = b.BreakerState()
	}
	if len(breakers) > 0 {
		health.Breakers = breakers
	}

	respondSuccess(w, r, http.StatusOK, health)
}

// HealthLive returns 200 while the process is alive.
//
// @Summary Liveness probe
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 200 only while the room store is open.
//
// @Summary Readiness probe
// @Description Returns 503 when the room store is closed or unavailable.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse "Service is ready"
// @Failure 503 {object} models.APIResponse "Service is not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := h.store != nil && h.store.Ping() == nil

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, r, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"store_connected": ready,
			"ready_to_serve":  ready,
			"uptime":          time.Since(h.startTime).Seconds(),
		},
	})
}
