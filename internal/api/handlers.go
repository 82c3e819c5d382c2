// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/geocode"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/room"
	"github.com/tomtom215/rendezvous/internal/transaction"
	ws "github.com/tomtom215/rendezvous/internal/websocket"
)

// Transactions creates and looks up transactions.
type Transactions interface {
	Create(ctx context.Context, req transaction.CreateRequest) (*transaction.Created, error)
	Lookup(ctx context.Context, code string) (*transaction.Lookup, error)
}

// RoomStore is the slice of the durable store the handlers read and write.
type RoomStore interface {
	Ping() error
	Snapshot(ctx context.Context, code string) (*models.RoomSnapshot, error)
	PutLocation(ctx context.Context, code, memberID string, rec models.LocationRecord) error
	GetMeetingPoint(ctx context.Context, code string) (*models.Coordinates, error)
	DeleteRoom(ctx context.Context, code string) (int, error)
}

// Negotiator reports and changes meeting-point state.
type Negotiator interface {
	State(ctx context.Context, code string) (meeting.State, error)
	Designate(ctx context.Context, code string, role models.Role, point models.Coordinates) error
	BeginPicking(code string, role models.Role) (meeting.State, error)
}

// LinkResolver turns a map link into coordinates.
type LinkResolver interface {
	Resolve(ctx context.Context, rawURL string) (models.Coordinates, error)
}

// Geocoder searches place names.
type Geocoder interface {
	First(ctx context.Context, q string) (geocode.Candidate, error)
}

// LocationFeed reads location snapshots and streams them as they change.
type LocationFeed interface {
	Snapshot(ctx context.Context, code, self string) (map[string]models.LocationRecord, error)
	Watch(ctx context.Context, code, self string) (<-chan map[string]models.LocationRecord, error)
}

// breakerStater is implemented by clients wrapped in a circuit breaker.
type breakerStater interface {
	BreakerState() string
}

// Dependencies groups what the handlers need. Resolver and Geocoder may be
// nil, which disables their endpoints.
type Dependencies struct {
	Config       *config.Config
	Transactions Transactions
	Store        RoomStore
	Negotiator   Negotiator
	Feed         LocationFeed
	Resolver     LinkResolver
	Geocoder     Geocoder
	Hub          *ws.Hub
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, WebSocket upgrade
//   - handlers_helpers.go: response and decode helpers
//   - handlers_health.go: health probes
//   - handlers_transactions.go: transaction create and lookup
//   - handlers_rooms.go: room snapshot, locations, meeting point
//   - handlers_maplink.go: map-link resolution
//   - handlers_geocode.go: place search
type Handler struct {
	config       *config.Config
	transactions Transactions
	store        RoomStore
	negotiator   Negotiator
	feed         LocationFeed
	resolver     LinkResolver
	geocoder     Geocoder
	wsHub        *ws.Hub
	startTime    time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies) *Handler {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Handler{
		config:       cfg,
		transactions: deps.Transactions,
		store:        deps.Store,
		negotiator:   deps.Negotiator,
		feed:         deps.Feed,
		resolver:     deps.Resolver,
		geocoder:     deps.Geocoder,
		wsHub:        deps.Hub,
		startTime:    time.Now(),
	}
}

func (h *Handler) presence() *room.Registry {
	if h.wsHub == nil {
		return nil
	}
	return h.wsHub.Rooms()
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts any origin when none are configured or "*"
// is listed. Otherwise the Origin host must match an entry. Native clients
// send no Origin and are accepted.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	allowed := h.config.Security.WebSocketOrigins
	if len(allowed) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(a, u.Host) {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// WebSocket upgrades the request to a presence channel session.
//
// @Summary Presence channel
// @Description Upgrades to a WebSocket carrying {"type","data"} frames for room membership, live locations and meeting-point negotiation.
// @Tags Presence
// @Success 101 "Switching protocols"
// @Failure 503 {object} models.APIResponse "Hub unavailable"
// @Router /ws [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	select {
	case h.wsHub.Register <- client:
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}
	client.Start()
}
