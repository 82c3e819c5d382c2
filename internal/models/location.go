// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package models

// LocationRecord is a member's latest reported position.
// Timestamp is the producer's wall clock in milliseconds since epoch.
type LocationRecord struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Username  string  `json:"username" validate:"required,max=64"`
	Role      Role    `json:"role"`
	Timestamp int64   `json:"timestamp"`
}

// Coordinates returns the position as a pair.
func (l LocationRecord) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}
