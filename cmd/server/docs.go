// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// @title Rendezvous API
// @version 1.0
// @description Meeting coordination relay for buyers and sellers.
// @description
// @description A transaction code names a room. Members join the room over the
// @description `/ws` presence channel, share live locations and agree on a meeting point
// @description that only the seller may set. The REST API exposes the same durable room
// @description state for clients without a socket.
// @description
// @description ## Error Responses
// @description
// @description Errors under `/api/v1` use the envelope:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {"code": "NOT_FOUND", "message": "transaction not found"},
// @description   "metadata": {"timestamp": "2026-01-01T12:00:00Z", "request_id": "..."}
// @description }
// @description ```
// @description `/resolve-map-link` keeps its flat `{"error": "..."}` body.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/rendezvous/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:3001
// @BasePath /
// @schemes http https
//
// @tag.name Health
// @tag.description Liveness, readiness and breaker state
//
// @tag.name Transactions
// @tag.description Create and look up transaction codes
//
// @tag.name Rooms
// @tag.description Durable room state: locations and the meeting point
//
// @tag.name Maps
// @tag.description Map-link resolution and place search
//
// @tag.name Realtime
// @tag.description WebSocket presence channel
package main
