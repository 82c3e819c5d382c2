// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/maplink"
)

// mapLinkError is the un-enveloped error body of /resolve-map-link.
type mapLinkError struct {
	Error string `json:"error"`
}

// ResolveMapLink follows a map link's redirects and returns the first
// coordinate pair in the final URL. The body is a bare
// {"latitude","longitude"} object, or {"error"} on failure.
//
// @Summary Resolve a map link
// @Tags Maps
// @Produce json
// @Param url query string true "Map link, short or long"
// @Success 200 {object} models.Coordinates
// @Failure 400 {object} mapLinkError "URL required"
// @Failure 404 {object} mapLinkError "Coordinates not found in URL"
// @Failure 500 {object} mapLinkError "Failed to resolve link"
// @Router /resolve-map-link [get]
func (h *Handler) ResolveMapLink(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, mapLinkError{Error: "URL required"})
		return
	}
	if h.resolver == nil {
		writeJSON(w, http.StatusServiceUnavailable, mapLinkError{Error: "Map link resolution disabled"})
		return
	}

	coords, err := h.resolver.Resolve(r.Context(), raw)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, coords)
	case errors.Is(err, maplink.ErrNoCoordinates):
		writeJSON(w, http.StatusNotFound, mapLinkError{Error: "Coordinates not found in URL"})
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("url", sanitizeLogValue(raw)).Msg("Error resolving map link")
		writeJSON(w, http.StatusInternalServerError, mapLinkError{Error: "Failed to resolve link"})
	}
}
