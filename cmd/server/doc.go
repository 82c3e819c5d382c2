// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

/*
Package main is the entry point for the Rendezvous relay.

Rendezvous coordinates an in-person meeting between the buyer and seller of a
transaction. Members of a room share live locations over a WebSocket and
negotiate a single meeting point that only the seller may set.

# Application Architecture

	RootSupervisor ("rendezvous")
	├── DataSupervisor ("data-layer")
	│   ├── Store GC (disk stores only)
	│   └── Store watcher (meeting-point broadcasts)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Embedded NATS (optional)
	│   └── Room bus (gochannel or NATS)
	└── APISupervisor ("api-layer")
	    ├── WebSocket hub
	    └── HTTP server

Initialization order:

 1. Configuration: koanf defaults, optional config.yaml, then environment
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Store: BadgerDB on disk or in memory
 4. Bus: embedded NATS if requested, then the watermill room bus
 5. Services: negotiator, map-link resolver, geocoder, transactions
 6. Hub and HTTP router
 7. Supervisor tree, run until SIGINT or SIGTERM

# Configuration

Common environment variables:

	PORT=3001
	LOG_LEVEL=info
	STORE_PATH=/data/rendezvous
	STORE_IN_MEMORY=false
	NATS_ENABLED=false
	NATS_EMBEDDED=false
	GEOCODE_ENABLED=true
	CORS_ORIGINS=*

See internal/config for the full list.

# Signal Handling

SIGINT and SIGTERM cancel the supervisor context. The HTTP server drains
in-flight requests for server.shutdown_timeout, the hub closes every
client, and the store is closed last.
*/
package main
