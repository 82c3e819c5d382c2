// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

// Ctx emits these keys, when set, in this order.
const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	roomKey          contextKey = "room"
	clientIDKey      contextKey = "client_id"
)

var contextFields = [...]contextKey{correlationIDKey, requestIDKey, roomKey, clientIDKey}

func withValue(ctx context.Context, key contextKey, v string) context.Context {
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GenerateCorrelationID returns a short random ID for grouping related entries.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID tags ctx with a fresh correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return withValue(ctx, correlationIDKey, GenerateCorrelationID())
}

// CorrelationIDFromContext returns "" when none is set.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey)
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns "" when none is set.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// ContextWithRoom tags ctx with a room code.
func ContextWithRoom(ctx context.Context, room string) context.Context {
	return withValue(ctx, roomKey, room)
}

// ContextWithClientID tags ctx with a presence-channel client ID.
func ContextWithClientID(ctx context.Context, id string) context.Context {
	return withValue(ctx, clientIDKey, id)
}

// Ctx returns the global logger with every tagged context field attached.
//
//	logging.Ctx(ctx).Info().Msg("Meeting point set")
//	// {"level":"info","request_id":"...","room":"TRX-42","message":"Meeting point set"}
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := With()
	for _, key := range contextFields {
		if v := stringValue(ctx, key); v != "" {
			lc = lc.Str(string(key), v)
		}
	}
	l := lc.Logger()
	return &l
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
