// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/rendezvous/internal/breaker"
	"github.com/tomtom215/rendezvous/internal/geocode"
)

// Geocode returns the best match for a free-text place query.
//
// @Summary Search a place
// @Tags Maps
// @Produce json
// @Param q query string true "Place name or address"
// @Success 200 {object} models.APIResponse{data=geocode.Candidate}
// @Failure 400 {object} models.APIResponse "Query required"
// @Failure 404 {object} models.APIResponse "No results"
// @Failure 502 {object} models.APIResponse "Upstream failure"
// @Failure 503 {object} models.APIResponse "Geocoding disabled or breaker open"
// @Router /api/v1/geocode [get]
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	if h.geocoder == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Geocoding is disabled", nil)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "q is required", nil)
		return
	}

	candidate, err := h.geocoder.First(r.Context(), q)
	switch {
	case err == nil:
		respondSuccess(w, r, http.StatusOK, candidate)
	case errors.Is(err, geocode.ErrEmptyQuery):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "q is required", nil)
	case errors.Is(err, geocode.ErrNoResults):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "No results", nil)
	case breaker.IsRejected(err):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Geocoding temporarily unavailable", err)
	default:
		respondError(w, r, http.StatusBadGateway, ErrCodeExternalServiceFail, "Geocoding upstream failed", err)
	}
}
