// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package websocket

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/models"
)

// Client to relay events
const (
	EventJoinRoom            = "join_room"
	EventLeaveRoom           = "leave_room"
	EventSendTransactionInfo = "send_transaction_info"
	EventUpdateLocation      = "update_location"
	EventSetMeetingPoint     = "set_meeting_point"
	EventBeginPicking        = "begin_picking"
	EventPing                = "ping"
)

// Relay to client events
const (
	EventRoomJoinedSuccess      = "room_joined_success"
	EventRoomSnapshot           = "room_snapshot"
	EventRequestTransactionInfo = "request_transaction_info"
	EventReceiveTransactionInfo = "receive_transaction_info"
	EventReceiveLocation        = "receive_location"
	EventMeetingPointUpdate     = "meeting_point_update"
	EventMeetingPointState      = "meeting_point_state"
	EventMemberLeft             = "member_left"
	EventNotice                 = "notice"
	EventPong                   = "pong"
)

// Notice codes
const (
	NoticeValidation   = "VALIDATION_ERROR"
	NoticeSellerOnly   = "SELLER_ONLY"
	NoticeNotPicking   = "NOT_PICKING"
	NoticeNotMember    = "NOT_MEMBER"
	NoticeUnknownEvent = "UNKNOWN_EVENT"
	NoticeInternal     = "INTERNAL_ERROR"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// inbound is a client message with its payload left undecoded until the
// event type is known.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// JoinedPayload acknowledges a join.
type JoinedPayload struct {
	Room        string `json:"room"`
	MemberCount int    `json:"memberCount"`
}

// SnapshotPayload brings a joiner up to date with the durable room state.
type SnapshotPayload struct {
	Room              string                           `json:"room"`
	MemberID          string                           `json:"memberId"`
	Info              *models.TransactionInfo          `json:"info,omitempty"`
	MeetingPoint      *models.Coordinates              `json:"meetingPoint,omitempty"`
	MeetingPointState meeting.State                    `json:"meetingPointState"`
	Locations         map[string]models.LocationRecord `json:"locations"`
}

// RoomPayload names a room and nothing else.
type RoomPayload struct {
	Room string `json:"room"`
}

// LocationUpdate is the update_location payload. Role and Timestamp are
// optional and filled from the membership and server clock.
type LocationUpdate struct {
	Room      string   `json:"room"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Username  string   `json:"username"`
	Role      string   `json:"role,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// LocationPayload is what peers receive for a location update.
type LocationPayload struct {
	Room     string `json:"room"`
	MemberID string `json:"memberId"`
	models.LocationRecord
}

// MeetingPointRequest is the set_meeting_point payload.
type MeetingPointRequest struct {
	Room   string              `json:"room"`
	Coords *models.Coordinates `json:"coords"`
}

// StatePayload announces a meeting-point state change.
type StatePayload struct {
	Room  string        `json:"room"`
	State meeting.State `json:"state"`
}

// MemberLeftPayload announces a departure.
type MemberLeftPayload struct {
	Room        string `json:"room"`
	DisplayName string `json:"displayName"`
	MemberCount int    `json:"memberCount"`
}

// NoticePayload reports a rejected request to its sender.
type NoticePayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// roomOf pulls the room field out of any room-scoped payload.
func roomOf(data json.RawMessage) string {
	var p RoomPayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil {
		return ""
	}
	return models.NormalizeRoomCode(p.Room)
}
