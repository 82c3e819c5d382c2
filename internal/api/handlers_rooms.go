// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/store"
	"github.com/tomtom215/rendezvous/internal/validation"
)

// RoomView is the snapshot returned by GET /api/v1/rooms/{code}.
type RoomView struct {
	Room              string                           `json:"room"`
	Info              *models.TransactionInfo          `json:"info,omitempty"`
	MeetingPoint      *models.Coordinates              `json:"meetingPoint,omitempty"`
	MeetingPointState meeting.State                    `json:"meetingPointState"`
	Locations         map[string]models.LocationRecord `json:"locations"`
	Online            int                              `json:"online"`
}

// LocationWrite is the body of PUT /api/v1/rooms/{code}/locations/{member}.
type LocationWrite struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Username  string   `json:"username" validate:"omitempty,max=64"`
	Role      string   `json:"role"`
	Timestamp int64    `json:"timestamp" validate:"gte=0"`
}

// MeetingPointWrite is the body of PUT /api/v1/rooms/{code}/meeting-point.
type MeetingPointWrite struct {
	Role      string   `json:"role"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// PickingWrite is the body of POST /api/v1/rooms/{code}/meeting-point/picking.
type PickingWrite struct {
	Role string `json:"role"`
}

// MeetingPointView is the meeting-point read model.
type MeetingPointView struct {
	Room         string              `json:"room"`
	MeetingPoint *models.Coordinates `json:"meetingPoint,omitempty"`
	State        meeting.State       `json:"state"`
}

// roomCode reads and validates the {code} URL parameter.
func roomCode(r *http.Request) (string, *validation.RequestValidationError) {
	code := models.NormalizeRoomCode(chi.URLParam(r, "code"))
	if verr := validation.ValidateVar("code", code, "required,roomcode"); verr != nil {
		return "", verr
	}
	return code, nil
}

func (h *Handler) meetingState(r *http.Request, code string, point *models.Coordinates) meeting.State {
	state, err := h.negotiator.State(r.Context(), code)
	if err == nil {
		return state
	}
	logging.Ctx(r.Context()).Warn().Err(err).Str("room", code).Msg("Meeting point state unavailable")
	if point != nil {
		return meeting.StateSet
	}
	return meeting.StateUnset
}

// GetRoom returns the durable state of a room.
//
// @Summary Get a room snapshot
// @Tags Rooms
// @Produce json
// @Param code path string true "Room code"
// @Param exclude query string false "Member id to leave out of locations"
// @Success 200 {object} models.APIResponse{data=RoomView}
// @Failure 404 {object} models.APIResponse "Room has no state"
// @Router /api/v1/rooms/{code} [get]
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	code, verr := roomCode(r)
	if verr != nil {
		respondValidation(w, r, verr)
		return
	}

	snap, err := h.store.Snapshot(r.Context(), code)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if exclude := strings.TrimSpace(r.URL.Query().Get("exclude")); exclude != "" {
		delete(snap.Locations, exclude)
	}

	view := RoomView{
		Room:              code,
		Info:              snap.Info,
		MeetingPoint:      snap.MeetingPoint,
		MeetingPointState: h.meetingState(r, code, snap.MeetingPoint),
		Locations:         snap.Locations,
	}
	if reg := h.presence(); reg != nil {
		view.Online = reg.Count(code)
	}
	respondSuccess(w, r, http.StatusOK, view)
}

// DeleteRoom removes every durable key of a room.
//
// @Summary Delete a room
// @Tags Rooms
// @Produce json
// @Param code path string true "Room code"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse "Room has no state"
// @Router /api/v1/rooms/{code} [delete]
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	code, verr := roomCode(r)
	if verr != nil {
		respondValidation(w, r, verr)
		return
	}

	n, err := h.store.DeleteRoom(r.Context(), code)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("room", code).Int("keys", n).Msg("Room deleted")
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"room":    code,
		"deleted": n,
	})
}

// GetLocations returns the latest location of every member.
//
// @Summary Get room locations
// @Tags Rooms
// @Produce json
// @Param code path string true "Room code"
// @Param exclude query string false "Member id to leave out"
// @Success 200 {object} models.APIResponse{data=map[string]models.LocationRecord}
// @Router /api/v1/rooms/{code}/locations [get]
func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	code, verr := roomCode(r)
	if verr != nil {
		respondValidation(w, r, verr)
		return
	}

	locs, err := h.feed.Snapshot(r.Context(), code, strings.TrimSpace(r.URL.Query().Get("exclude")))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, locs)
}

// streamHeartbeat keeps idle location streams open through proxies.
const streamHeartbeat = 25 * time.Second

// StreamLocations serves the room's location feed as server-sent events.
// Each "locations" event carries the full map of other members' latest
// positions; a slow reader skips intermediate snapshots.
//
// @Summary Stream room locations
// @Tags Rooms
// @Produce text/event-stream
// @Param code path string true "Room code"
// @Param exclude query string false "Member id to leave out"
// @Success 200 {object} map[string]models.LocationRecord
// @Router /api/v1/rooms/{code}/locations/stream [get]
func (h *Handler) StreamLocations(w http.ResponseWriter, r *http.Request) {
	code, verr := roomCode(r)
	if verr != nil {
		respondValidation(w, r, verr)
		return
	}

	ctx := logging.ContextWithRoom(r.Context(), code)
	snaps, err := h.feed.Watch(ctx, code, strings.TrimSpace(r.URL.Query().Get("exclude")))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Ctx(ctx).Debug().Err(err).Msg("Could not clear write deadline for location stream")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				logging.Ctx(ctx).Error().Err(err).Msg("Failed to encode location snapshot")
				return
			}
			if _, err := fmt.Fprintf(w, "event: locations\ndata: %s\n\n", data); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// PutLocation stores a member's position for clients without a presence
// channel and announces it to the room.
//
// @Summary Report a location
// @Tags Rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param member path string true "Member id"
// @Param request body LocationWrite true "Position"
// @Success 200 {object} models.APIResponse{data=models.LocationRecord}
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Router /api/v1/rooms/{code}/locations/{member} [put]
func (h *Handler) PutLocation(w http.ResponseWriter, r *http.Request) {
	code, verr := roomCode(r)
	if verr != nil {
		respondValidation(w, r, verr)
		return
	}
	member := strings.TrimSpace(chi.URLParam(r, "member"))
	if verr := validation.ValidateVar("member", member, "required,memberid"); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	var body LocationWrite
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(body); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	rec := models.LocationRecord{
		Latitude:  *body.Latitude,
		Longitude: *body.Longitude,
		Username:  strings.TrimSpace(body.Username),
		Role:      models.ParseRole(body.Role),
		Timestamp: body.Timestamp,
	}
	if rec.Username == "" {
		rec.Username = member
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}

	if err := h.store.PutLocation(r.Context(), code, member, rec); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if h.wsHub != nil {
		h.wsHub.AnnounceLocation(r.Context(), code, member, rec)
	}
	respondSuccess(w, r, http.StatusOK, rec)
}

// GetMeetingPoint returns the room's meeting point and negotiation state.
//
// @Summary Get the meeting point
// @Tags Rooms
// @Produce json
// @Param code path string true "Room code"
// @Success 200 {object} models.APIResponse{data=MeetingPointView}
// @Router /api/v1/rooms/{code}/meeting-point [get]
func (h *Handler) GetMeetingPoint(w http.ResponseWriter, r *http.Request) {
	code, verr := roomCode(r)
	if verr != nil {
		respondValidation(w, r, verr)
		return
	}

	point, err := h.store.GetMeetingPoint(r.Context(), code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, MeetingPointView{
		Room:         code,
		MeetingPoint: point,
		State:        h.meetingState(r, code, point),
	})
}

// SetMeetingPoint lets the seller designate the meeting point. Members are
// notified through the store change stream.
//
// @Summary Set the meeting point
// @Tags Rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param request body MeetingPointWrite true "Seller role and coordinates"
// @Success 200 {object} models.APIResponse{data=MeetingPointView}
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Failure 403 {object} models.APIResponse "Not the seller"
// @Failure 409 {object} models.APIResponse "Meeting point already set; begin picking first"
// @Router /api/v1/rooms/{code}/meeting-point [put]
func (h *Handler) SetMeetingPoint(w http.ResponseWriter, r *http.Request) {
	code, verr := roomCode(r)
	if verr != nil {
		respondValidation(w, r, verr)
		return
	}

	var body MeetingPointWrite
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(body); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	point := models.Coordinates{Latitude: *body.Latitude, Longitude: *body.Longitude}
	if err := h.negotiator.Designate(r.Context(), code, models.ParseRole(body.Role), point); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, MeetingPointView{
		Room:         code,
		MeetingPoint: &point,
		State:        meeting.StateSet,
	})
}

// BeginPicking lets the seller reopen the meeting point for a new choice.
// Members are told the new state over the presence channel.
//
// @Summary Begin picking a meeting point
// @Tags Rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param request body PickingWrite true "Seller role"
// @Success 200 {object} models.APIResponse{data=MeetingPointView}
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Failure 403 {object} models.APIResponse "Not the seller"
// @Router /api/v1/rooms/{code}/meeting-point/picking [post]
func (h *Handler) BeginPicking(w http.ResponseWriter, r *http.Request) {
	code, verr := roomCode(r)
	if verr != nil {
		respondValidation(w, r, verr)
		return
	}

	var body PickingWrite
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	state, err := h.negotiator.BeginPicking(code, models.ParseRole(body.Role))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if h.wsHub != nil {
		h.wsHub.AnnounceState(r.Context(), code, state)
	}

	point, err := h.store.GetMeetingPoint(r.Context(), code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, MeetingPointView{
		Room:         code,
		MeetingPoint: point,
		State:        state,
	})
}
