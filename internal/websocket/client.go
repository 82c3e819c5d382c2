// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/metrics"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 512 * 1024
	defaultSendBuffer     = 256
)

// clientSeq orders clients by connection time.
var clientSeq atomic.Uint64

// Client is one presence channel session.
type Client struct {
	// id is a UUID so it stays unique across relay instances sharing a bus.
	id   string
	seq  uint64
	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan Message
	closed bool

	remoteAddr string
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		id:   uuid.New().String(),
		seq:  clientSeq.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, hub.opts.SendBuffer),
	}
	if conn != nil {
		c.remoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// ID returns the session identifier.
func (c *Client) ID() string {
	return c.id
}

// enqueue queues msg without blocking. It reports false when the buffer is
// full or the client is closed.
func (c *Client) enqueue(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		metrics.WSMessagesSent.WithLabelValues(msg.Type).Inc()
		return true
	default:
		return false
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		default:
			// Queue full or hub stopped: release rooms inline.
			c.hub.unregister(context.Background(), c)
		}
		_ = c.conn.Close()
	}()

	opts := c.hub.opts
	c.conn.SetReadLimit(opts.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(opts.PongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	ctx := logging.ContextWithClientID(context.Background(), c.id)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Ctx(ctx).Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			metrics.WSErrors.WithLabelValues("decode").Inc()
			c.notice(NoticeValidation, "message must be a JSON object with a type", "")
			continue
		}
		// Reading again after a successful event also counts as liveness.
		_ = c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
		c.hub.handle(ctx, c, msg)
	}
}

func (c *Client) writePump() {
	opts := c.hub.opts
	ticker := time.NewTicker((opts.PongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Debug().Err(err).Str("client_id", c.id).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) reply(event string, data interface{}) {
	if !c.enqueue(Message{Type: event, Data: data}) {
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		c.hub.evict(c)
	}
}

func (c *Client) notice(code, message, event string) {
	c.reply(EventNotice, NoticePayload{Code: code, Message: message, Event: event})
}
