// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/rendezvous/internal/logging"
)

const defaultShutdownTimeout = 10 * time.Second

// ErrServerStopped is returned when the listener exits without the service
// being canceled, so the supervisor restarts it.
var ErrServerStopped = errors.New("http server stopped unexpectedly")

// HTTPServer is the lifecycle slice of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the relay's HTTP listener under supervision.
//
// Shutdown only drains plain HTTP requests. Upgraded /ws connections are
// hijacked and are closed by the hub when the API layer stops.
//
//	server := &http.Server{Addr: cfg.Server.Addr(), Handler: router.Setup()}
//	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
type HTTPServerService struct {
	server  HTTPServer
	drain   time.Duration
	name    string
	address string
}

// NewHTTPServerService wraps server. A non-positive drain timeout becomes 10s.
func NewHTTPServerService(server HTTPServer, drain time.Duration) *HTTPServerService {
	if drain <= 0 {
		drain = defaultShutdownTimeout
	}
	svc := &HTTPServerService{server: server, drain: drain, name: "http-server"}
	if hs, ok := server.(*http.Server); ok {
		svc.address = hs.Addr
	}
	return svc
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	exited := make(chan error, 1)
	go func() { exited <- h.server.ListenAndServe() }()

	logging.Info().Str("addr", h.address).Msg("HTTP server listening")

	select {
	case err := <-exited:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return ErrServerStopped
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	if err := h.shutdown(); err != nil {
		return err
	}
	<-exited
	return ctx.Err()
}

// shutdown drains on a fresh context because the service context is done.
func (h *HTTPServerService) shutdown() error {
	start := time.Now()
	drainCtx, cancel := context.WithTimeout(context.Background(), h.drain)
	defer cancel()

	if err := h.server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	logging.Info().Dur("took", time.Since(start)).Msg("HTTP server drained")
	return nil
}

func (h *HTTPServerService) String() string {
	return h.name
}
