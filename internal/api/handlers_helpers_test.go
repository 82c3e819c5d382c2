// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/store"
	"github.com/tomtom215/rendezvous/internal/transaction"
	"github.com/tomtom215/rendezvous/internal/validation"
)

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"line\nbreak", `line\x0abreak`},
		{"tab\there", `tab\x09here`},
		{"del\x7f", `del\x7f`},
		{"ünïcode", "ünïcode"},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRespondServiceError(t *testing.T) {
	t.Parallel()

	verr := validation.ValidateVar("code", "", "required")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", verr, http.StatusBadRequest, ErrCodeValidation},
		{"store not found", fmt.Errorf("read: %w", store.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"transaction not found", transaction.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"seller only", meeting.ErrSellerOnly, http.StatusForbidden, ErrCodeSellerOnly},
		{"invalid point", meeting.ErrInvalidPoint, http.StatusBadRequest, ErrCodeValidation},
		{"not picking", meeting.ErrNotPicking, http.StatusConflict, ErrCodeNotPicking},
		{"invalid coordinates", fmt.Errorf("%w: lat", models.ErrInvalidCoordinates), http.StatusBadRequest, ErrCodeValidation},
		{"invalid key", store.ErrInvalidKey, http.StatusBadRequest, ErrCodeValidation},
		{"breaker open", gobreaker.ErrOpenState, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"code exhausted", transaction.ErrCodeExhausted, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"store closed", store.ErrClosed, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			respondServiceError(w, r, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp models.APIResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != "error" || resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("response = %+v, want error code %s", resp, tt.code)
			}
			if strings.Contains(w.Body.String(), "boom") {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"object", `{"role":"seller"}`, false},
		{"empty", ``, true},
		{"malformed", `{"role":`, true},
		{"too large", `{"role":"` + strings.Repeat("x", maxBodySize) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body))
			var dst MeetingPointWrite
			err := decodeJSON(w, r, &dst)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
