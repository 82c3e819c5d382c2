// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package meeting negotiates a room's meeting point.
//
// Each room moves between three states:
//
//	Unset   --BeginPicking-->  Picking
//	Set     --BeginPicking-->  Picking
//	Picking --Designate----->  Set
//	Unset   --Designate----->  Set
//	Unset   --SeedFromLink--> Set (coordinates known) or Picking
//
// There is no Set -> Set edge: a designated point is only replaced after the
// seller re-enters Picking. Only the seller may begin picking or designate a
// point. The designated
// point itself is stored durably; the Picking flag is process memory.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/rendezvous/internal/cache"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/store"
)

// State is a room's meeting-point negotiation state.
type State string

const (
	StateUnset   State = "unset"
	StatePicking State = "picking"
	StateSet     State = "set"
)

// Errors
var (
	ErrSellerOnly   = errors.New("only the seller can set the meeting point")
	ErrInvalidPoint = errors.New("meeting point coordinates out of range")
	ErrNotPicking   = errors.New("meeting point already set; begin picking to change it")
)

const pickingTTL = 24 * time.Hour

// PointStore is the slice of the room store the negotiator needs.
type PointStore interface {
	SetMeetingPoint(ctx context.Context, code string, point models.Coordinates) error
	GetMeetingPoint(ctx context.Context, code string) (*models.Coordinates, error)
}

// Negotiator holds per-room negotiation state.
type Negotiator struct {
	store   PointStore
	picking *cache.Cache[bool]
}

// NewNegotiator creates a Negotiator over ps. Call Close when done.
func NewNegotiator(ps PointStore) *Negotiator {
	return &Negotiator{
		store:   ps,
		picking: cache.New[bool]("meeting_picking", pickingTTL, 100000),
	}
}

// Close releases the picking-state cache.
func (n *Negotiator) Close() {
	n.picking.Close()
}

// State reports the room's current negotiation state.
func (n *Negotiator) State(ctx context.Context, code string) (State, error) {
	if _, ok := n.picking.Get(code); ok {
		return StatePicking, nil
	}
	_, err := n.store.GetMeetingPoint(ctx, code)
	switch {
	case err == nil:
		return StateSet, nil
	case errors.Is(err, store.ErrNotFound):
		return StateUnset, nil
	default:
		return "", fmt.Errorf("read meeting point: %w", err)
	}
}

// BeginPicking moves the room into Picking. Only the seller may do this.
func (n *Negotiator) BeginPicking(code string, role models.Role) (State, error) {
	if !role.IsSeller() {
		metrics.MeetingPointOutcomes.WithLabelValues("rejected").Inc()
		return "", ErrSellerOnly
	}
	n.picking.Set(code, true)
	metrics.MeetingPointOutcomes.WithLabelValues("picking").Inc()
	return StatePicking, nil
}

// Designate stores point as the room's meeting point and leaves Picking.
// A non-seller gets ErrSellerOnly and nothing changes. A room whose point is
// already Set gets ErrNotPicking until the seller calls BeginPicking.
func (n *Negotiator) Designate(ctx context.Context, code string, role models.Role, point models.Coordinates) error {
	if !role.IsSeller() {
		metrics.MeetingPointOutcomes.WithLabelValues("rejected").Inc()
		logging.Ctx(ctx).Debug().Str("role", role.String()).Msg("Meeting point change rejected")
		return ErrSellerOnly
	}
	if !point.Valid() {
		return ErrInvalidPoint
	}
	state, err := n.State(ctx, code)
	if err != nil {
		return err
	}
	if state == StateSet {
		metrics.MeetingPointOutcomes.WithLabelValues("rejected").Inc()
		logging.Ctx(ctx).Debug().Str("room", code).Msg("Meeting point overwrite rejected outside picking")
		return ErrNotPicking
	}
	if err := n.store.SetMeetingPoint(ctx, code, point); err != nil {
		metrics.MeetingPointOutcomes.WithLabelValues("error").Inc()
		return fmt.Errorf("store meeting point: %w", err)
	}
	n.picking.Delete(code)
	metrics.MeetingPointOutcomes.WithLabelValues("set").Inc()
	return nil
}

// SeedFromLink initialises a freshly created room: Set when point is known,
// Picking otherwise.
func (n *Negotiator) SeedFromLink(ctx context.Context, code string, point *models.Coordinates) (State, error) {
	if point == nil {
		n.picking.Set(code, true)
		return StatePicking, nil
	}
	if !point.Valid() {
		return "", ErrInvalidPoint
	}
	if err := n.store.SetMeetingPoint(ctx, code, *point); err != nil {
		return "", fmt.Errorf("store seeded meeting point: %w", err)
	}
	n.picking.Delete(code)
	metrics.MeetingPointOutcomes.WithLabelValues("seeded").Inc()
	return StateSet, nil
}
