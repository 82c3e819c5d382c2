// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package transaction creates rooms for sellers and looks them up for buyers.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/maplink"
	"github.com/tomtom215/rendezvous/internal/meeting"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/store"
	"github.com/tomtom215/rendezvous/internal/validation"
)

// Errors
var (
	ErrNotFound      = errors.New("transaction not found")
	ErrCodeExhausted = errors.New("could not allocate a free transaction code")
)

const (
	codePrefix     = "TRX-"
	codeSpace      = 10000
	maxCodeRetries = 10
)

// Store is the slice of the room store transactions use.
type Store interface {
	CreateInfo(ctx context.Context, code string, info models.TransactionInfo) error
	GetInfo(ctx context.Context, code string) (*models.TransactionInfo, error)
	GetMeetingPoint(ctx context.Context, code string) (*models.Coordinates, error)
}

// Negotiator seeds and reports the meeting-point state.
type Negotiator interface {
	SeedFromLink(ctx context.Context, code string, point *models.Coordinates) (meeting.State, error)
	State(ctx context.Context, code string) (meeting.State, error)
}

// LinkResolver follows map-link redirects.
type LinkResolver interface {
	Resolve(ctx context.Context, rawURL string) (models.Coordinates, error)
}

// CreateRequest is the seller's listing form.
type CreateRequest struct {
	Username  string `json:"username" validate:"required,max=64"`
	Phone     string `json:"phone" validate:"required,max=32"`
	ItemName  string `json:"itemName" validate:"required,max=128"`
	ItemImage string `json:"itemImage" validate:"required,max=2097152"`
	MapLink   string `json:"mapLink,omitempty" validate:"omitempty,max=2048"`
}

// Created is the result of a successful Create.
type Created struct {
	Code              string                 `json:"code"`
	Info              models.TransactionInfo `json:"info"`
	MeetingPoint      *models.Coordinates    `json:"meetingPoint,omitempty"`
	MeetingPointState meeting.State          `json:"meetingPointState"`
}

// Lookup is the buyer's view of an existing transaction.
type Lookup struct {
	Code              string                 `json:"code"`
	Info              models.TransactionInfo `json:"info"`
	MeetingPoint      *models.Coordinates    `json:"meetingPoint,omitempty"`
	MeetingPointState meeting.State          `json:"meetingPointState"`
}

// Service implements transaction create and lookup.
type Service struct {
	store      Store
	negotiator Negotiator
	resolver   LinkResolver

	intN func(n int) int
	now  func() time.Time
}

// NewService creates a Service. resolver may be nil, in which case map links
// are only searched for literal coordinates.
func NewService(s Store, n Negotiator, resolver LinkResolver) *Service {
	return &Service{
		store:      s,
		negotiator: n,
		resolver:   resolver,
		intN:       rand.IntN,
		now:        time.Now,
	}
}

// Create validates req, allocates a free code and writes the room's info.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Phone = strings.TrimSpace(req.Phone)
	req.ItemName = strings.TrimSpace(req.ItemName)
	req.MapLink = strings.TrimSpace(req.MapLink)
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr
	}

	info := models.TransactionInfo{
		SellerName:  req.Username,
		SellerPhone: req.Phone,
		ItemName:    req.ItemName,
		ItemImage:   req.ItemImage,
		CreatedAt:   s.now().UnixMilli(),
	}

	code, err := s.allocate(ctx, info)
	if err != nil {
		return nil, err
	}
	ctx = logging.ContextWithRoom(ctx, code)

	point := s.pointFromLink(ctx, req.MapLink)
	state, err := s.negotiator.SeedFromLink(ctx, code, point)
	if err != nil {
		// The room exists; the seller can still pick a point by hand.
		logging.Ctx(ctx).Warn().Err(err).Msg("Could not seed meeting point from map link")
		point = nil
		state = meeting.StatePicking
	}

	logging.Ctx(ctx).Info().
		Str("item", info.ItemName).
		Bool("has_meeting_point", point != nil).
		Msg("Transaction created")

	return &Created{
		Code:              code,
		Info:              info,
		MeetingPoint:      point,
		MeetingPointState: state,
	}, nil
}

func (s *Service) allocate(ctx context.Context, info models.TransactionInfo) (string, error) {
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		code := fmt.Sprintf("%s%d", codePrefix, s.intN(codeSpace))
		err := s.store.CreateInfo(ctx, code, info)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, store.ErrRoomExists) {
			return "", fmt.Errorf("write transaction info: %w", err)
		}
		logging.Ctx(ctx).Debug().Str("code", code).Int("attempt", attempt+1).Msg("Transaction code taken, retrying")
	}
	return "", ErrCodeExhausted
}

// pointFromLink extracts coordinates from the link text, falling back to
// redirect resolution.
func (s *Service) pointFromLink(ctx context.Context, link string) *models.Coordinates {
	if link == "" {
		return nil
	}
	if coords, ok := maplink.Extract(link); ok && coords.Valid() {
		return &coords
	}
	if s.resolver == nil {
		return nil
	}
	coords, err := s.resolver.Resolve(ctx, link)
	if err != nil {
		if !errors.Is(err, maplink.ErrNoCoordinates) {
			logging.Ctx(ctx).Warn().Err(err).Msg("Map link resolution failed")
		}
		return nil
	}
	if !coords.Valid() {
		return nil
	}
	return &coords
}

// Lookup returns the transaction for code along with its meeting point when
// one has been set.
func (s *Service) Lookup(ctx context.Context, code string) (*Lookup, error) {
	code = models.NormalizeRoomCode(code)
	if verr := validation.ValidateVar("code", code, "required,roomcode"); verr != nil {
		return nil, verr
	}

	info, err := s.store.GetInfo(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read transaction info: %w", err)
	}

	out := &Lookup{Code: code, Info: *info}

	point, err := s.store.GetMeetingPoint(ctx, code)
	switch {
	case err == nil:
		out.MeetingPoint = point
	case errors.Is(err, store.ErrNotFound):
	default:
		logging.Ctx(ctx).Warn().Err(err).Str("room", code).Msg("Meeting point read failed during lookup")
	}

	state, err := s.negotiator.State(ctx, code)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("room", code).Msg("Meeting point state unavailable")
		state = meeting.StateUnset
		if out.MeetingPoint != nil {
			state = meeting.StateSet
		}
	}
	out.MeetingPointState = state

	return out, nil
}
