// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/rendezvous/internal/logging"
)

func TestAccessLogLevels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"ok", http.StatusOK, ""},
		{"client error", http.StatusNotFound, `"level":"warn"`},
		{"server error", http.StatusBadGateway, `"level":"error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logging.Init(logging.Config{Level: "info", Format: "json", Output: &buf})
			defer logging.Init(logging.Config{Level: "disabled"})

			handler := RequestID(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))

			out := buf.String()
			if tt.level == "" {
				if out != "" {
					t.Errorf("2xx should only log at debug, got %s", out)
				}
				return
			}
			if !strings.Contains(out, tt.level) || !strings.Contains(out, `"request_id"`) {
				t.Errorf("log line = %s, want %s with request_id", out, tt.level)
			}
		})
	}
}
