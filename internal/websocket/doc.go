// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

/*
Package websocket implements the presence channel: the per-session
WebSocket protocol through which buyers and sellers join rooms, share live
locations and agree on a meeting point.

Every frame is a JSON envelope in both directions:

	{"type": "update_location", "data": {"room": "TRX-42", "latitude": -6.2, "longitude": 106.8, "username": "Bo"}}

Client events: join_room, leave_room, send_transaction_info,
update_location, set_meeting_point, begin_picking and ping.

Relay events: room_joined_success and room_snapshot (to the joiner),
request_transaction_info (to non-buyers when a buyer joins),
receive_transaction_info and receive_location (to everyone but the sender),
meeting_point_update and meeting_point_state (to the whole room),
member_left, notice and pong.

Architecture:

	client ──read pump──▶ Hub.handle ──▶ room.Registry / store / negotiator
	                          │
	                          ▼
	                     bus.Publish ──▶ (every instance) Hub.DeliverLocal ──▶ write pumps

The hub never writes a room broadcast to a socket directly. It publishes an
envelope on the bus and delivers whatever the bus hands back, so a single
instance and a NATS-connected fleet behave the same way. Direct replies
(acks, snapshots, notices, pongs) go straight to the session's buffer.

Meeting-point broadcasts are driven by the durable store: WatchStore turns
each meeting-point write into meeting_point_update and meeting_point_state,
whichever path the write came from.

A session whose send buffer is full is dropped and its rooms are released
as on disconnect.

Usage:

	hub := websocket.NewHub(registry, st, negotiator, roomBus, websocket.OptionsFromConfig(cfg.Relay))
	roomBus.SetHandler(hub.DeliverLocal)
	go hub.RunWithContext(ctx)
	go hub.WatchStore(ctx)

	// in the /ws handler, after upgrading:
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()
*/
package websocket
