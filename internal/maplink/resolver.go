// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package maplink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"syscall"
	"time"

	"github.com/tomtom215/rendezvous/internal/breaker"
	"github.com/tomtom215/rendezvous/internal/cache"
	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
)

// Errors
var (
	ErrInvalidURL       = errors.New("maplink: url must be absolute http or https")
	ErrNoCoordinates    = errors.New("maplink: coordinates not found in URL")
	ErrTooManyRedirects = errors.New("maplink: too many redirects")
	ErrBlockedAddress   = errors.New("maplink: destination address not allowed")
)

const breakerName = "maplink-resolver"

// Resolver follows map-link redirects and extracts coordinates from the
// final URL.
type Resolver struct {
	client    *http.Client
	breaker   *breaker.Breaker[string]
	cache     *cache.Cache[models.Coordinates]
	userAgent string
}

// NewResolver creates a Resolver. Call Close to release its cache.
func NewResolver(cfg config.MapLinkConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if !cfg.AllowPrivate {
		dialer.Control = denyPrivate
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	return &Resolver{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, maxRedirects)
				}
				return nil
			},
		},
		breaker: breaker.New[string](breakerName, breaker.Settings{
			IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, ErrBlockedAddress) },
		}),
		cache:     cache.New[models.Coordinates]("maplink", cfg.CacheTTL, 10000),
		userAgent: cfg.UserAgent,
	}
}

// Close stops the cache cleanup loop.
func (r *Resolver) Close() {
	r.cache.Close()
}

// Resolve follows rawURL's redirects with HEAD requests and extracts the
// first coordinate pair from the final URL.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (models.Coordinates, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.Coordinates{}, ErrInvalidURL
	}

	if coords, ok := r.cache.Get(rawURL); ok {
		metrics.MapLinkResolutions.WithLabelValues("cache_hit").Inc()
		return coords, nil
	}

	finalURL, err := r.breaker.Execute(func() (string, error) {
		return r.finalURL(ctx, rawURL)
	})
	if err != nil {
		outcome := "error"
		if breaker.IsRejected(err) {
			outcome = "rejected"
		}
		metrics.MapLinkResolutions.WithLabelValues(outcome).Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("url", rawURL).Msg("Map link resolution failed")
		return models.Coordinates{}, err
	}

	coords, ok := Extract(finalURL)
	if !ok {
		metrics.MapLinkResolutions.WithLabelValues("no_coordinates").Inc()
		return models.Coordinates{}, ErrNoCoordinates
	}

	r.cache.Set(rawURL, coords)
	metrics.MapLinkResolutions.WithLabelValues("resolved").Inc()
	return coords, nil
}

// finalURL returns the URL at the end of the redirect chain. The response
// status is irrelevant; only where the chain ended matters.
func (r *Resolver) finalURL(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("follow redirects: %w", err)
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), nil
}

// BreakerState reports the resolver's circuit breaker state.
func (r *Resolver) BreakerState() string {
	return r.breaker.State()
}

// denyPrivate refuses connections to addresses inside the relay's own
// network. It runs after DNS resolution, so every hop of a redirect chain is
// checked against the address actually dialed.
func denyPrivate(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !publicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

// sharedAddressSpace is the carrier-grade NAT range, RFC 6598.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func publicAddr(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsGlobalUnicast() &&
		!a.IsPrivate() &&
		!sharedAddressSpace.Contains(a)
}
