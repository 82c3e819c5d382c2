// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package models

// TransactionInfo describes the item on offer and how to reach the seller.
// ItemImage is an opaque data URL. CreatedAt is milliseconds since epoch.
type TransactionInfo struct {
	SellerName  string `json:"sellerName"`
	SellerPhone string `json:"sellerPhone"`
	ItemName    string `json:"itemName"`
	ItemImage   string `json:"itemImage"`
	CreatedAt   int64  `json:"createdAt"`
}

// RoomSnapshot is the durable state of one room as seen by one member.
type RoomSnapshot struct {
	Room         string                    `json:"room"`
	Info         *TransactionInfo          `json:"info,omitempty"`
	MeetingPoint *Coordinates              `json:"meetingPoint,omitempty"`
	Locations    map[string]LocationRecord `json:"locations"`
}
