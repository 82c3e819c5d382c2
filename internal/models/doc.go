// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

/*
Package models defines the data shared by the relay, the room store and the
HTTP API.

Room state lives under three independent keys per room code:

  - info: TransactionInfo, written once by the seller
  - meetingPoint: Coordinates, written only by the seller role
  - locations/{member}: LocationRecord, written only by its owning member

Every key is last-write-wins. Nothing in this package versions or merges
values across keys; a reader sees whichever write was accepted most recently.
*/
package models
