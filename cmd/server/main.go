// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/rendezvous/internal/api"
	"github.com/tomtom215/rendezvous/internal/bus"
	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/feed"
	"github.com/tomtom215/rendezvous/internal/geocode"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/maplink"
	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/room"
	"github.com/tomtom215/rendezvous/internal/store"
	"github.com/tomtom215/rendezvous/internal/supervisor"
	"github.com/tomtom215/rendezvous/internal/supervisor/services"
	"github.com/tomtom215/rendezvous/internal/transaction"
	ws "github.com/tomtom215/rendezvous/internal/websocket"
)

func main() {
	// Config first, so logging can be configured from it
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: cfg.Logging.Timestamp,
		Service:   cfg.Logging.Service,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("store", storeLocation(cfg.Store)).
		Bool("nats", cfg.NATS.Enabled).
		Bool("geocode", cfg.Geocode.Enabled).
		Msg("Starting Rendezvous relay")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Relay stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	// The embedded server must accept connections before the bus dials it.
	var embedded *bus.EmbeddedServer
	if cfg.NATS.Enabled && cfg.NATS.Embedded {
		embedded, err = bus.StartEmbedded(cfg.NATS.EmbeddedHost, cfg.NATS.EmbeddedPort)
		if err != nil {
			return err
		}
		cfg.NATS.URL = embedded.ClientURL()
	}

	roomBus, err := bus.New(cfg.NATS, logging.NewWatermillAdapter())
	if err != nil {
		if embedded != nil {
			_ = embedded.Shutdown(context.Background())
		}
		return err
	}
	defer func() {
		if err := roomBus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing room bus")
		}
	}()

	negotiator := meeting.NewNegotiator(st)
	defer negotiator.Close()

	resolver := maplink.NewResolver(cfg.MapLink)
	defer resolver.Close()

	var geocoder *geocode.Client
	if cfg.Geocode.Enabled {
		geocoder = geocode.NewClient(cfg.Geocode)
		defer geocoder.Close()
	}

	registry := room.NewRegistry()
	hub := ws.NewHub(registry, st, negotiator, roomBus, ws.OptionsFromConfig(cfg.Relay))
	roomBus.SetHandler(hub.DeliverLocal)

	deps := api.Dependencies{
		Config:       cfg,
		Transactions: transaction.NewService(st, negotiator, resolver),
		Store:        st,
		Negotiator:   negotiator,
		Feed:         feed.New(st),
		Resolver:     resolver,
		Hub:          hub,
	}
	// A typed nil would defeat the handler's nil check.
	if geocoder != nil {
		deps.Geocoder = geocoder
	}
	handler := api.NewHandler(deps)
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFrom(cfg.Security))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		return err
	}

	// Data layer
	if !cfg.Store.InMemory {
		tree.AddDataService(services.NewStoreGCService(st, cfg.Store.GCInterval, cfg.Store.GCDiscardRatio))
	}
	tree.AddDataService(services.NewStoreWatcherService(hub))

	// Messaging layer
	if embedded != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(embedded, cfg.Supervisor.ShutdownTimeout))
	}
	tree.AddMessagingService(roomBus)

	// API layer
	tree.AddAPIService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	<-errCh

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}

func storeLocation(cfg config.StoreConfig) string {
	if cfg.InMemory {
		return "memory"
	}
	return cfg.Path
}
