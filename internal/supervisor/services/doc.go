// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

/*
Package services adapts relay components to suture's Serve(ctx) model.

# Available Services

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancel
  - LoopService: components that already block on a context, used for the
    WebSocket hub and the store watcher
  - StoreGCService: periodic badger value-log GC
  - EmbeddedNATSService: owns an in-process NATS server and reports an
    unexpected exit

The room bus implements suture.Service itself and is added as is.

	tree.AddDataService(services.NewStoreGCService(st, cfg.Store.GCInterval, cfg.Store.GCDiscardRatio))
	tree.AddDataService(services.NewStoreWatcherService(hub))
	tree.AddMessagingService(roomBus)
	tree.AddAPIService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
*/
package services
