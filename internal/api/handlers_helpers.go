// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rendezvous/internal/breaker"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/store"
	"github.com/tomtom215/rendezvous/internal/transaction"
	"github.com/tomtom215/rendezvous/internal/validation"
)

// maxBodySize bounds JSON request bodies. Item images arrive inline as
// data URLs, hence the headroom.
const maxBodySize = 4 << 20

// sanitizeLogValue escapes control characters so a request value cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondJSON sends an enveloped response, filling in the metadata.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	response.Metadata.Timestamp = time.Now().UTC()
	if r != nil {
		response.Metadata.RequestID = logging.RequestIDFromContext(r.Context())
	}
	writeJSON(w, status, response)
}

func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondJSON(w, r, status, &models.APIResponse{Status: "success", Data: data})
}

// respondError sends an error envelope. err, when set, is logged but never
// sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		event := logging.Error()
		if r != nil {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondJSON(w, r, status, &models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondJSON(w, r, http.StatusBadRequest, &models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// respondServiceError maps a domain error onto its HTTP status and code.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(w, r, verr)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, transaction.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Room not found", nil)
	case errors.Is(err, meeting.ErrSellerOnly):
		logging.Ctx(r.Context()).Debug().Msg("Non-seller meeting point change rejected")
		respondError(w, r, http.StatusForbidden, ErrCodeSellerOnly, meeting.ErrSellerOnly.Error(), nil)
	case errors.Is(err, meeting.ErrNotPicking):
		respondError(w, r, http.StatusConflict, ErrCodeNotPicking, meeting.ErrNotPicking.Error(), nil)
	case errors.Is(err, meeting.ErrInvalidPoint), errors.Is(err, models.ErrInvalidCoordinates),
		errors.Is(err, store.ErrInvalidKey), errors.Is(err, store.ErrInvalidData):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
	case breaker.IsRejected(err), errors.Is(err, transaction.ErrCodeExhausted), errors.Is(err, store.ErrClosed):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service temporarily unavailable", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error", err)
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
