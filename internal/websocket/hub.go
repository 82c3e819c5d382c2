// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package websocket

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rendezvous/internal/bus"
	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/room"
	"github.com/tomtom215/rendezvous/internal/store"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

const publishTimeout = 5 * time.Second

// RoomStore is the slice of the durable store the hub uses.
type RoomStore interface {
	Snapshot(ctx context.Context, code string) (*models.RoomSnapshot, error)
	PutLocation(ctx context.Context, code, memberID string, rec models.LocationRecord) error
	Subscribe(ctx context.Context, room string, fn func(store.Change)) error
}

// Negotiator owns the meeting-point state machine.
type Negotiator interface {
	State(ctx context.Context, code string) (meeting.State, error)
	BeginPicking(code string, role models.Role) (meeting.State, error)
	Designate(ctx context.Context, code string, role models.Role, point models.Coordinates) error
}

// Publisher sends room broadcasts to every relay instance.
type Publisher interface {
	Publish(ctx context.Context, env bus.Envelope) error
}

// Options tunes client sessions.
type Options struct {
	SendBuffer           int
	MaxMessageSize       int64
	WriteWait            time.Duration
	PongWait             time.Duration
	SessionScopedMembers bool
}

// OptionsFromConfig maps the relay config section, filling zero values with
// defaults.
func OptionsFromConfig(cfg config.RelayConfig) Options {
	o := Options{
		SendBuffer:           cfg.SendBuffer,
		MaxMessageSize:       cfg.MaxMessageSize,
		WriteWait:            cfg.WriteWait,
		PongWait:             cfg.PongWait,
		SessionScopedMembers: cfg.SessionScopedMembers,
	}
	return o.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	return o
}

// Hub tracks the sessions connected to this instance and routes their room
// events. Room membership lives in the registry; every room broadcast
// leaves through the publisher and comes back through DeliverLocal.
type Hub struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	rooms      *room.Registry
	store      RoomStore
	negotiator Negotiator
	publisher  Publisher
	opts       Options
	now        func() time.Time
}

// NewHub creates a Hub.
func NewHub(rooms *room.Registry, s RoomStore, n Negotiator, p Publisher, opts Options) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client, 256),
		rooms:      rooms,
		store:      s,
		negotiator: n,
		publisher:  p,
		opts:       opts.withDefaults(),
		now:        time.Now,
	}
}

// Rooms exposes the membership registry.
func (h *Hub) Rooms() *room.Registry {
	return h.rooms
}

// RunWithContext processes client lifecycle events until ctx is done, then
// closes every client. Shutdown is checked first on each pass, then
// lifecycle events.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(ctx, client)
		}
	}
}

// String names the hub in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Debug().Str("client_id", c.id).Str("remote_addr", c.remoteAddr).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()
	c.close()

	metrics.WSConnections.Set(float64(total))

	for _, d := range h.rooms.LeaveAll(c.id) {
		if d.Remaining == 0 {
			continue
		}
		h.broadcast(ctx, d.Room, EventMemberLeft, "", nil, MemberLeftPayload{
			Room:        d.Room,
			DisplayName: d.Member.DisplayName,
			MemberCount: d.Remaining,
		})
	}
	logging.Debug().Str("client_id", c.id).Int("total_clients", total).Msg("websocket client disconnected")
}

// evict drops a client whose send buffer is full. Its read pump notices the
// closed connection and unregisters it, which releases its rooms.
func (h *Hub) evict(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close()
	logging.Warn().Str("client_id", c.id).Msg("dropping slow websocket client")
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients closes every client in connection order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := h.sortedLocked()
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	metrics.WSConnections.Set(0)
}

func (h *Hub) sortedLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].seq < clients[j].seq })
	return clients
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DeliverLocal hands a bus envelope to this instance's members of the room,
// skipping the sender and any excluded roles. It is the bus handler.
func (h *Hub) DeliverLocal(_ context.Context, env bus.Envelope) {
	peers := h.rooms.Peers(env.Room, env.Sender, func(m room.Member) bool {
		return !env.Excludes(m.Role)
	})
	if len(peers) == 0 {
		return
	}

	msg := Message{Type: env.Event}
	if len(env.Data) > 0 {
		msg.Data = env.Data
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(peers))
	for _, p := range peers {
		if c, ok := h.clients[p.ClientID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(msg) {
			metrics.WSErrors.WithLabelValues("slow_client").Inc()
			h.evict(c)
		}
	}
}

// broadcast publishes event to the room on every instance. sender, when
// set, does not receive it.
func (h *Hub) broadcast(ctx context.Context, code, event, sender string, exclude []models.Role, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("failed to encode broadcast")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = h.publisher.Publish(ctx, bus.Envelope{
		Sender:       sender,
		Room:         code,
		Event:        event,
		Data:         data,
		ExcludeRoles: exclude,
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("room", code).Str("event", event).Msg("room broadcast failed")
	}
}

// WatchStore turns durable meeting-point writes into room broadcasts, so
// every write path (presence channel or HTTP) reaches the members. It
// blocks until ctx is done.
func (h *Hub) WatchStore(ctx context.Context) error {
	err := h.store.Subscribe(ctx, "", func(ch store.Change) {
		if ch.Kind != store.KindMeetingPoint || ch.Deleted {
			return
		}
		point, err := ch.MeetingPoint()
		if err != nil {
			logging.Warn().Err(err).Str("room", ch.Room).Msg("undecodable meeting point change")
			return
		}
		h.broadcast(ctx, ch.Room, EventMeetingPointUpdate, "", nil, point)
		h.broadcast(ctx, ch.Room, EventMeetingPointState, "", nil, StatePayload{Room: ch.Room, State: meeting.StateSet})
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// memberID picks the store key for a participant.
func (h *Hub) memberID(c *Client, displayName string) string {
	name := strings.TrimSpace(displayName)
	switch {
	case name == "":
		return c.id
	case h.opts.SessionScopedMembers:
		return name + "#" + c.id
	default:
		return name
	}
}

// AnnounceState broadcasts a negotiation state change made outside the
// presence channel to every member of the room.
func (h *Hub) AnnounceState(ctx context.Context, code string, state meeting.State) {
	h.broadcast(ctx, code, EventMeetingPointState, "", nil, StatePayload{Room: code, State: state})
}

// AnnounceLocation broadcasts a location written outside the presence
// channel, such as through the HTTP fallback, to every member of the room.
func (h *Hub) AnnounceLocation(ctx context.Context, code, memberID string, rec models.LocationRecord) {
	h.broadcast(ctx, code, EventReceiveLocation, "", nil, LocationPayload{
		Room:           code,
		MemberID:       memberID,
		LocationRecord: rec,
	})
}
