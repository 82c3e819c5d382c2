// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/rendezvous/internal/config"
)

func TestGetUpgrader(t *testing.T) {
	t.Parallel()

	handler := NewHandler(Dependencies{})
	upgrader := handler.getUpgrader()

	if upgrader.ReadBufferSize != 1024 {
		t.Errorf("ReadBufferSize = %d, want 1024", upgrader.ReadBufferSize)
	}
	if upgrader.HandshakeTimeout == 0 {
		t.Error("HandshakeTimeout should be set")
	}
	if upgrader.CheckOrigin == nil {
		t.Error("CheckOrigin function should be set")
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"unrestricted", nil, "https://evil.example", true},
		{"wildcard", []string{"*"}, "https://any.example", true},
		{"exact origin", []string{"https://app.example"}, "https://app.example", true},
		{"host entry", []string{"app.example"}, "https://app.example", true},
		{"case insensitive", []string{"https://App.Example"}, "https://app.example", true},
		{"no origin header", []string{"https://app.example"}, "", true},
		{"rejected", []string{"https://app.example"}, "https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := NewHandler(Dependencies{Config: &config.Config{
				Security: config.SecurityConfig{WebSocketOrigins: tt.allowed},
			}})
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := handler.checkWebSocketOrigin(r); got != tt.want {
				t.Errorf("checkWebSocketOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWebSocketWithoutHub(t *testing.T) {
	t.Parallel()

	handler := NewHandler(Dependencies{})
	w := httptest.NewRecorder()
	handler.WebSocket(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
