// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package geocode resolves free-text place queries through a Nominatim
// compatible search API.
//
// Nominatim's usage policy asks for an identifying User-Agent and at most one
// request per second, so every Client paces itself with a token bucket and
// caches answers by query.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rendezvous/internal/breaker"
	"github.com/tomtom215/rendezvous/internal/cache"
	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
)

// Errors
var (
	ErrEmptyQuery = errors.New("geocode: query is required")
	ErrNoResults  = errors.New("geocode: no results")
)

const (
	breakerName      = "geocode-nominatim"
	maxErrorBodySize = 4 * 1024
)

// Candidate is one search match.
type Candidate struct {
	DisplayName string             `json:"displayName"`
	Coordinates models.Coordinates `json:"coordinates"`
	Type        string             `json:"type,omitempty"`
	Importance  float64            `json:"importance,omitempty"`
}

// nominatimResult is one element of the search response. Nominatim encodes
// coordinates as strings.
type nominatimResult struct {
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Client queries the search API.
type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	breaker   *breaker.Breaker[[]Candidate]
	cache     *cache.Cache[[]Candidate]
}

// NewClient creates a Client from cfg. Call Close to release its cache.
func NewClient(cfg config.GeocodeConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		breaker:   breaker.New[[]Candidate](breakerName, breaker.Settings{}),
		cache:     cache.New[[]Candidate]("geocode", cfg.CacheTTL, 5000),
	}
}

// Close stops the cache cleanup loop.
func (c *Client) Close() {
	c.cache.Close()
}

// Search returns every candidate for q in the upstream's order.
func (c *Client) Search(ctx context.Context, q string) ([]Candidate, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	key := strings.ToLower(q)

	if cached, ok := c.cache.Get(key); ok {
		metrics.GeocodeRequests.WithLabelValues("cache_hit").Inc()
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.GeocodeRequests.WithLabelValues("throttled").Inc()
		return nil, fmt.Errorf("geocode rate limit: %w", err)
	}

	start := time.Now()
	candidates, err := c.breaker.Execute(func() ([]Candidate, error) {
		return c.query(ctx, q)
	})
	metrics.GeocodeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if breaker.IsRejected(err) {
			outcome = "rejected"
		}
		metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("query", q).Msg("Geocoding search failed")
		return nil, err
	}

	c.cache.Set(key, candidates)
	metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return candidates, nil
}

// First returns the best candidate for q, or ErrNoResults.
func (c *Client) First(ctx context.Context, q string) (Candidate, error) {
	candidates, err := c.Search(ctx, q)
	if err != nil {
		return Candidate{}, err
	}
	if len(candidates) == 0 {
		return Candidate{}, ErrNoResults
	}
	return candidates[0], nil
}

// BreakerState reports the client's circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

func (c *Client) query(ctx context.Context, q string) ([]Candidate, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&q=%s", c.baseURL, url.QueryEscape(q))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil {
			logging.Debug().Str("lat", r.Lat).Str("lon", r.Lon).Msg("Skipping geocoder result with unparsable coordinates")
			continue
		}
		out = append(out, Candidate{
			DisplayName: r.DisplayName,
			Coordinates: models.Coordinates{Latitude: lat, Longitude: lon},
			Type:        r.Type,
			Importance:  r.Importance,
		})
	}
	return out, nil
}
