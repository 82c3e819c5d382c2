// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

/*
Package supervisor runs the relay's long-lived services under suture v4.

# Overview

Services are grouped into three layers so a failure restarts only its own
layer:

	RootSupervisor ("rendezvous")
	├── DataSupervisor ("data-layer")
	│   ├── StoreGCService
	│   └── StoreWatcherService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EmbeddedNATSService (if nats.embedded)
	│   └── room bus
	└── APISupervisor ("api-layer")
	    ├── WebSocketHubService
	    └── HTTPServerService

Supervisor events (start, failure, backoff, restart) are logged through
sutureslog into the process slog logger, which is bridged to zerolog by
logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

After Serve returns, UnstoppedServiceReport lists services that ignored the
shutdown timeout.
*/
package supervisor
