// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package websocket

import (
	"context"
	"errors"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/room"
	"github.com/tomtom215/rendezvous/internal/store"
	"github.com/tomtom215/rendezvous/internal/validation"
)

var knownEvents = map[string]bool{
	EventJoinRoom:            true,
	EventLeaveRoom:           true,
	EventSendTransactionInfo: true,
	EventUpdateLocation:      true,
	EventSetMeetingPoint:     true,
	EventBeginPicking:        true,
	EventPing:                true,
}

// handle runs one client event. Events from a single client are handled in
// the order they were read.
func (h *Hub) handle(ctx context.Context, c *Client, msg inbound) {
	label := msg.Type
	if !knownEvents[label] {
		label = "unknown"
	}
	metrics.WSMessagesReceived.WithLabelValues(label).Inc()

	switch msg.Type {
	case EventJoinRoom:
		h.handleJoin(ctx, c, msg.Data)
	case EventLeaveRoom:
		h.handleLeave(ctx, c, msg.Data)
	case EventSendTransactionInfo:
		h.handleTransactionInfo(ctx, c, msg.Data)
	case EventUpdateLocation:
		h.handleLocation(ctx, c, msg.Data)
	case EventSetMeetingPoint:
		h.handleSetMeetingPoint(ctx, c, msg.Data)
	case EventBeginPicking:
		h.handleBeginPicking(ctx, c, msg.Data)
	case EventPing:
		c.reply(EventPong, nil)
	default:
		c.notice(NoticeUnknownEvent, "unknown event "+msg.Type, msg.Type)
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, data json.RawMessage) {
	var req models.JoinRequest
	if len(data) == 0 || json.Unmarshal(data, &req) != nil {
		c.notice(NoticeValidation, "join_room expects a room code or {room, role, displayName}", EventJoinRoom)
		return
	}
	if verr := validation.ValidateVar("room", req.Room, "roomcode"); verr != nil {
		c.notice(NoticeValidation, verr.Error(), EventJoinRoom)
		return
	}

	memberID := h.memberID(c, req.DisplayName)
	if verr := validation.ValidateVar("displayName", memberID, "memberid"); verr != nil {
		c.notice(NoticeValidation, verr.Error(), EventJoinRoom)
		return
	}

	count, err := h.rooms.Join(req.Room, room.Member{
		ClientID:    c.id,
		MemberID:    memberID,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		c.notice(NoticeValidation, err.Error(), EventJoinRoom)
		return
	}

	ctx = logging.ContextWithRoom(ctx, req.Room)
	logging.Ctx(ctx).Info().
		Str("role", req.Role.String()).
		Int("member_count", count).
		Msg("Member joined room")

	c.reply(EventRoomJoinedSuccess, JoinedPayload{Room: req.Room, MemberCount: count})
	h.sendSnapshot(ctx, c, req.Room, memberID)

	if req.Role == models.RoleBuyer {
		h.broadcast(ctx, req.Room, EventRequestTransactionInfo, c.id,
			[]models.Role{models.RoleBuyer}, RoomPayload{Room: req.Room})
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, c *Client, code, self string) {
	out := SnapshotPayload{Room: code, MemberID: self, Locations: map[string]models.LocationRecord{}}

	snap, err := h.store.Snapshot(ctx, code)
	switch {
	case err == nil:
		out.Info = snap.Info
		out.MeetingPoint = snap.MeetingPoint
		for id, rec := range snap.Locations {
			if id != self {
				out.Locations[id] = rec
			}
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		logging.Ctx(ctx).Warn().Err(err).Msg("Room snapshot unavailable")
	}

	state, err := h.negotiator.State(ctx, code)
	if err != nil {
		state = meeting.StateUnset
		if out.MeetingPoint != nil {
			state = meeting.StateSet
		}
	}
	out.MeetingPointState = state

	c.reply(EventRoomSnapshot, out)
}

func (h *Hub) handleLeave(ctx context.Context, c *Client, data json.RawMessage) {
	code := roomOf(data)
	m, ok := h.rooms.Member(code, c.id)
	if !ok {
		c.notice(NoticeNotMember, "not a member of room "+code, EventLeaveRoom)
		return
	}
	remaining, ok := h.rooms.Leave(code, c.id)
	if !ok || remaining == 0 {
		return
	}
	h.broadcast(ctx, code, EventMemberLeft, c.id, nil, MemberLeftPayload{
		Room:        code,
		DisplayName: m.DisplayName,
		MemberCount: remaining,
	})
}

// member resolves the sender's membership of the room named in data and
// sends a notice when there is none.
func (h *Hub) member(c *Client, event string, data json.RawMessage) (string, room.Member, bool) {
	code := roomOf(data)
	if code == "" {
		c.notice(NoticeValidation, "room is required", event)
		return "", room.Member{}, false
	}
	m, ok := h.rooms.Member(code, c.id)
	if !ok {
		c.notice(NoticeNotMember, "join room "+code+" first", event)
		return "", room.Member{}, false
	}
	return code, m, true
}

func (h *Hub) handleTransactionInfo(ctx context.Context, c *Client, data json.RawMessage) {
	code, _, ok := h.member(c, EventSendTransactionInfo, data)
	if !ok {
		return
	}
	// Forwarded as sent.
	h.broadcast(ctx, code, EventReceiveTransactionInfo, c.id, nil, data)
}

func (h *Hub) handleLocation(ctx context.Context, c *Client, data json.RawMessage) {
	code, m, ok := h.member(c, EventUpdateLocation, data)
	if !ok {
		return
	}

	var upd LocationUpdate
	if err := json.Unmarshal(data, &upd); err != nil || upd.Latitude == nil || upd.Longitude == nil {
		c.notice(NoticeValidation, "latitude and longitude are required", EventUpdateLocation)
		return
	}
	coords := models.Coordinates{Latitude: *upd.Latitude, Longitude: *upd.Longitude}
	if !coords.Valid() {
		c.notice(NoticeValidation, models.ErrInvalidCoordinates.Error(), EventUpdateLocation)
		return
	}

	memberID := m.MemberID
	username := strings.TrimSpace(upd.Username)
	if m.DisplayName == "" && username != "" {
		// Anonymous joins take their key from the first named update.
		memberID = h.memberID(c, username)
	}
	if username == "" {
		username = m.DisplayName
	}
	if username == "" {
		username = memberID
	}

	rec := models.LocationRecord{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Username:  username,
		Role:      m.Role,
		Timestamp: upd.Timestamp,
	}
	if upd.Role != "" {
		rec.Role = models.ParseRole(upd.Role)
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = h.now().UnixMilli()
	}

	ctx = logging.ContextWithRoom(ctx, code)
	if validation.ValidateVar("memberId", memberID, "memberid") == nil {
		if err := h.store.PutLocation(ctx, code, memberID, rec); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("member_id", memberID).Msg("Location write failed")
		}
	} else {
		logging.Ctx(ctx).Debug().Str("member_id", memberID).Msg("Location not stored, member id is not a valid key")
	}

	h.broadcast(ctx, code, EventReceiveLocation, c.id, nil, LocationPayload{
		Room:           code,
		MemberID:       memberID,
		LocationRecord: rec,
	})
}

func (h *Hub) handleSetMeetingPoint(ctx context.Context, c *Client, data json.RawMessage) {
	code, m, ok := h.member(c, EventSetMeetingPoint, data)
	if !ok {
		return
	}

	var req MeetingPointRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Coords == nil {
		c.notice(NoticeValidation, "coords must be {latitude, longitude} or [lat, lng]", EventSetMeetingPoint)
		return
	}

	ctx = logging.ContextWithRoom(ctx, code)
	err := h.negotiator.Designate(ctx, code, m.Role, *req.Coords)
	switch {
	case err == nil:
		logging.Ctx(ctx).Info().Str("point", req.Coords.String()).Msg("Meeting point set")
	case errors.Is(err, meeting.ErrSellerOnly):
		c.notice(NoticeSellerOnly, "only the seller can set the meeting point", EventSetMeetingPoint)
	case errors.Is(err, meeting.ErrNotPicking):
		c.notice(NoticeNotPicking, err.Error(), EventSetMeetingPoint)
	case errors.Is(err, meeting.ErrInvalidPoint):
		c.notice(NoticeValidation, err.Error(), EventSetMeetingPoint)
	default:
		logging.Ctx(ctx).Error().Err(err).Msg("Meeting point write failed")
		c.notice(NoticeInternal, "meeting point could not be saved", EventSetMeetingPoint)
	}
}

func (h *Hub) handleBeginPicking(ctx context.Context, c *Client, data json.RawMessage) {
	code, m, ok := h.member(c, EventBeginPicking, data)
	if !ok {
		return
	}
	state, err := h.negotiator.BeginPicking(code, m.Role)
	if errors.Is(err, meeting.ErrSellerOnly) {
		c.notice(NoticeSellerOnly, "only the seller can pick the meeting point", EventBeginPicking)
		return
	}
	if err != nil {
		c.notice(NoticeInternal, err.Error(), EventBeginPicking)
		return
	}
	h.broadcast(ctx, code, EventMeetingPointState, "", nil, StatePayload{Room: code, State: state})
}
