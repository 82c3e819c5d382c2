// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/transaction"
)

// CreateTransaction lists a new item and opens its room.
//
// @Summary Create a transaction
// @Description Allocates a TRX code, stores the listing and seeds the meeting point from the optional map link
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body transaction.CreateRequest true "Listing"
// @Success 201 {object} models.APIResponse{data=transaction.Created}
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Failure 503 {object} models.APIResponse "No free code"
// @Router /api/v1/transactions [post]
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transaction.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	created, err := h.transactions.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("room", created.Code).
		Str("meeting_point_state", string(created.MeetingPointState)).
		Msg("Transaction created")
	respondSuccess(w, r, http.StatusCreated, created)
}

// GetTransaction returns the listing behind a code.
//
// @Summary Look up a transaction
// @Tags Transactions
// @Produce json
// @Param code path string true "Transaction code, case-insensitive"
// @Success 200 {object} models.APIResponse{data=transaction.Lookup}
// @Failure 404 {object} models.APIResponse "Unknown code"
// @Router /api/v1/transactions/{code} [get]
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.transactions.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, lookup)
}
