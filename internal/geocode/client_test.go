// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled"})
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClient(config.GeocodeConfig{
		Enabled:           true,
		BaseURL:           baseURL + "/",
		UserAgent:         "rendezvous-test",
		RequestsPerSecond: 100,
		Burst:             10,
		Timeout:           2 * time.Second,
		CacheTTL:          time.Minute,
	})
	t.Cleanup(c.Close)
	return c
}

func TestSearch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/search" {
			t.Errorf("path = %s, want /search", r.URL.Path)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		if got := r.URL.Query().Get("q"); got != "Monas Jakarta" {
			t.Errorf("q = %q", got)
		}
		if ua := r.Header.Get("User-Agent"); ua != "rendezvous-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"display_name":"Monas, Jakarta","lat":"-6.1753924","lon":"106.8271528","type":"monument","importance":0.6},
			{"display_name":"bad","lat":"x","lon":"1"},
			{"display_name":"Gambir","lat":"-6.17","lon":"106.82","type":"suburb"}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.Search(context.Background(), "  Monas Jakarta ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search() returned %d candidates, want 2", len(got))
	}
	if got[0].DisplayName != "Monas, Jakarta" || got[0].Coordinates.Latitude != -6.1753924 {
		t.Errorf("first candidate = %+v", got[0])
	}

	first, err := c.First(context.Background(), "monas jakarta")
	if err != nil {
		t.Fatal(err)
	}
	if first.DisplayName != "Monas, Jakarta" {
		t.Errorf("First() = %+v", first)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("upstream hits = %d, want 1 (second query cached)", n)
	}
}

func TestFirstNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.First(context.Background(), "nowhere"); !errors.Is(err, ErrNoResults) {
		t.Errorf("First() error = %v, want ErrNoResults", err)
	}
}

func TestSearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Search(context.Background(), "  "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Search(blank) error = %v, want ErrEmptyQuery", err)
	}
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Error("Search() with upstream 429 should fail")
	}
}

func TestSearchRespectsContext(t *testing.T) {
	c := NewClient(config.GeocodeConfig{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	defer c.Close()

	// Drain the only token.
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Search(ctx, "x"); err == nil {
		t.Error("Search() should fail when the limiter cannot grant a token before the deadline")
	}
}
