// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package bus carries room broadcasts between relay instances.
//
// Every broadcast the presence hub makes goes through the bus, even on a
// single instance. With NATS disabled the bus is an in-process watermill
// gochannel, so a publish loops straight back to the local hub. With NATS
// enabled the same envelopes travel over a core NATS subject and every
// instance delivers them to its own local members.
//
//	b, _ := bus.New(cfg.NATS, logging.NewWatermillAdapter())
//	b.SetHandler(hub.DeliverLocal)
//	go b.Serve(ctx)               // consumes until ctx is done
//	_ = b.Publish(ctx, envelope)  // fans out to every instance
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
)

// Errors
var (
	ErrClosed    = errors.New("bus: closed")
	ErrNoHandler = errors.New("bus: no handler set")
)

const (
	defaultTopic       = "rendezvous.rooms"
	routerCloseTimeout = 10 * time.Second
)

// Envelope is one room broadcast.
type Envelope struct {
	ID     string `json:"id"`
	Origin string `json:"origin"`
	Sender string `json:"sender,omitempty"`
	Room   string `json:"room"`
	Event  string `json:"event"`
	// Data is the event payload, already JSON encoded.
	Data json.RawMessage `json:"data,omitempty"`
	// ExcludeRoles drops members holding any of these roles.
	ExcludeRoles []models.Role `json:"excludeRoles,omitempty"`
	At           int64         `json:"at"`
}

// Excludes reports whether role is excluded from delivery.
func (e Envelope) Excludes(role models.Role) bool {
	for _, r := range e.ExcludeRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Handler receives every envelope published on the bus, including this
// instance's own.
type Handler func(ctx context.Context, env Envelope)

// Bus publishes and consumes envelopes.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	topic      string
	instanceID string
	transport  string

	mu      sync.RWMutex
	handler Handler
	closed  bool

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates a bus from cfg. A disabled NATS section yields the in-process
// transport.
func New(cfg config.NATSConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}

	b := &Bus{
		logger:     logger,
		topic:      topic,
		instanceID: uuid.New().String(),
		ready:      make(chan struct{}),
	}

	if !cfg.Enabled {
		// Blocking until the consumer acks keeps one publisher's broadcasts
		// in order.
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            1024,
			BlockPublishUntilSubscriberAck: true,
		}, logger)
		b.publisher = ch
		b.subscriber = ch
		b.transport = "gochannel"
		return b, nil
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("bus: nats.url is required when nats is enabled")
	}

	pub, err := newNATSPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	sub, err := newNATSSubscriber(cfg, logger)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	b.publisher = pub
	b.subscriber = sub
	b.transport = "nats"

	logging.Info().Str("url", cfg.URL).Str("topic", topic).Str("instance", b.instanceID).Msg("Room bus connected to NATS")
	return b, nil
}

func natsOptions(cfg config.NATSConfig, logger watermill.LoggerAdapter, role string) []natsgo.Option {
	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	return []natsgo.Option{
		natsgo.Name("rendezvous-" + role),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS "+role+" disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS "+role+" reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

func newNATSPublisher(cfg config.NATSConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(cfg, logger, "publisher"),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	return pub, nil
}

func newNATSSubscriber(cfg config.NATSConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	// No queue group: every instance must see every broadcast.
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     routerCloseTimeout,
		NatsOptions:      natsOptions(cfg, logger, "subscriber"),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	return sub, nil
}

// InstanceID identifies this process on the bus.
func (b *Bus) InstanceID() string {
	return b.instanceID
}

// Transport returns "gochannel" or "nats".
func (b *Bus) Transport() string {
	return b.transport
}

// SetHandler installs the function that receives consumed envelopes.
func (b *Bus) SetHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Ready is closed once the first consumer subscription is live. Publishes
// made before then may not be delivered.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// Publish stamps env with an ID, this instance's origin and a timestamp, and
// sends it to every instance.
func (b *Bus) Publish(ctx context.Context, env Envelope) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	env.ID = uuid.New().String()
	env.Origin = b.instanceID
	if env.At == 0 {
		env.At = time.Now().UnixMilli()
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := message.NewMessage(env.ID, payload)
	msg.Metadata.Set("room", env.Room)
	msg.Metadata.Set("event", env.Event)
	msg.Metadata.Set("origin", env.Origin)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	if err := b.publisher.Publish(b.topic, msg); err != nil {
		metrics.BusPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("publish %s: %w", env.Event, err)
	}
	metrics.BusPublished.WithLabelValues("success").Inc()
	return nil
}

// Serve consumes envelopes until ctx is done. It builds a fresh watermill
// router on every call, so a supervisor may restart it.
func (b *Bus) Serve(ctx context.Context) error {
	b.mu.RLock()
	closed := b.closed
	hasHandler := b.handler != nil
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if !hasHandler {
		return ErrNoHandler
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: routerCloseTimeout}, b.logger)
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddNoPublisherHandler("room-broadcasts", b.topic, b.subscriber, b.consume)

	go func() {
		select {
		case <-router.Running():
			b.readyOnce.Do(func() { close(b.ready) })
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("bus router: %w", err)
	}
	return ctx.Err()
}

func (b *Bus) consume(msg *message.Message) error {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		// Malformed envelopes are acknowledged and dropped.
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable bus envelope")
		return nil
	}

	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()

	ctx := msg.Context()
	if id := msg.Metadata.Get("correlation_id"); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	h(ctx, env)
	metrics.BusDelivered.Inc()
	return nil
}

// String names the bus in supervisor logs.
func (b *Bus) String() string {
	return "room-bus"
}

// Close shuts down the transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if b.transport == "nats" {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	return errors.Join(errs...)
}
