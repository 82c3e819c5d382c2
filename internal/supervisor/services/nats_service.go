// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/rendezvous/internal/logging"
)

// ErrNATSNotRunning is returned when the embedded server has stopped on
// its own.
var ErrNATSNotRunning = errors.New("embedded NATS server is not running")

const natsHealthInterval = 5 * time.Second

// EmbeddedNATS is satisfied by *bus.EmbeddedServer.
type EmbeddedNATS interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// EmbeddedNATSService owns the lifetime of an embedded NATS server that was
// started before the bus connected to it. It polls the server so an
// unexpected exit is reported to the supervisor, and shuts it down when the
// tree stops.
type EmbeddedNATSService struct {
	server          EmbeddedNATS
	shutdownTimeout time.Duration
	pollInterval    time.Duration
	name            string
}

// NewEmbeddedNATSService wraps server. A non-positive timeout becomes 10s.
func NewEmbeddedNATSService(server EmbeddedNATS, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &EmbeddedNATSService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		pollInterval:    natsHealthInterval,
		name:            "embedded-nats",
	}
}

// Serve implements suture.Service.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS shutdown incomplete")
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				return ErrNATSNotRunning
			}
		}
	}
}

func (s *EmbeddedNATSService) String() string {
	return s.name
}
