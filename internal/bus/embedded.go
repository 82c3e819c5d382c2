// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/rendezvous/internal/logging"
)

const (
	embeddedReadyTimeout = 30 * time.Second

	// Room envelopes carry at most a transaction info blob.
	embeddedMaxPayload = 1 << 20
)

// EmbeddedServer is an in-process core NATS server for deployments that want
// multi-instance fan-out without running NATS separately. JetStream is off:
// room broadcasts are fire-and-forget.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// StartEmbedded starts a NATS server on host:port and waits until it accepts
// connections. Port -1 picks a random free port.
func StartEmbedded(host string, port int) (*EmbeddedServer, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	ns, err := server.NewServer(&server.Options{
		ServerName: "rendezvous-bus",
		Host:       host,
		Port:       port,
		NoSigs:     true,
		MaxPayload: embeddedMaxPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("embedded nats on %s:%d: %w", host, port, err)
	}

	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(embeddedReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats not accepting connections after %v", embeddedReadyTimeout)
	}

	es := &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}
	logging.Info().Str("url", es.clientURL).Msg("Embedded NATS server started")
	return es, nil
}

// ClientURL returns the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// IsRunning reports whether the server is still up.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit or ctx to end.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.server.WaitForShutdown()
	}()

	select {
	case <-stopped:
		logging.Info().Msg("Embedded NATS server stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
