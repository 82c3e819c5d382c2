// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package meeting

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/store"
)

func init() {
	logging.Init(logging.Config{Level: "disabled"})
}

func setupNegotiator(t *testing.T) (*Negotiator, *store.Store) {
	t.Helper()
	s, err := store.Open(config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	n := NewNegotiator(s)
	t.Cleanup(func() {
		n.Close()
		_ = s.Close()
	})
	return n, s
}

var point = models.Coordinates{Latitude: -6.2, Longitude: 106.816666}

func TestStateTransitions(t *testing.T) {
	n, _ := setupNegotiator(t)
	ctx := context.Background()

	assertState := func(want State) {
		t.Helper()
		got, err := n.State(ctx, "R")
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if got != want {
			t.Fatalf("State() = %s, want %s", got, want)
		}
	}

	assertState(StateUnset)

	if _, err := n.BeginPicking("R", models.RoleSeller); err != nil {
		t.Fatal(err)
	}
	assertState(StatePicking)

	if err := n.Designate(ctx, "R", models.RoleSeller, point); err != nil {
		t.Fatal(err)
	}
	assertState(StateSet)

	// Manual re-entry from Set.
	if _, err := n.BeginPicking("R", models.RoleSeller); err != nil {
		t.Fatal(err)
	}
	assertState(StatePicking)
}

func TestBuyerCannotDesignate(t *testing.T) {
	n, s := setupNegotiator(t)
	ctx := context.Background()

	if err := n.Designate(ctx, "R", models.RoleSeller, point); err != nil {
		t.Fatal(err)
	}

	for _, role := range []models.Role{models.RoleBuyer, models.RoleUnspecified} {
		other := models.Coordinates{Latitude: 1, Longitude: 1}
		if err := n.Designate(ctx, "R", role, other); !errors.Is(err, ErrSellerOnly) {
			t.Errorf("Designate(%s) error = %v, want ErrSellerOnly", role, err)
		}
		if _, err := n.BeginPicking("R", role); !errors.Is(err, ErrSellerOnly) {
			t.Errorf("BeginPicking(%s) error = %v, want ErrSellerOnly", role, err)
		}
	}

	got, err := s.GetMeetingPoint(ctx, "R")
	if err != nil {
		t.Fatal(err)
	}
	if *got != point {
		t.Errorf("meeting point = %+v, want unchanged %+v", *got, point)
	}
	if st, _ := n.State(ctx, "R"); st != StateSet {
		t.Errorf("State() = %s, want set", st)
	}
}

func TestDesignateInvalidPoint(t *testing.T) {
	n, _ := setupNegotiator(t)
	err := n.Designate(context.Background(), "R", models.RoleSeller, models.Coordinates{Latitude: 100})
	if !errors.Is(err, ErrInvalidPoint) {
		t.Errorf("Designate() error = %v, want ErrInvalidPoint", err)
	}
}

func TestSeedFromLink(t *testing.T) {
	n, s := setupNegotiator(t)
	ctx := context.Background()

	st, err := n.SeedFromLink(ctx, "WITH", &point)
	if err != nil || st != StateSet {
		t.Fatalf("SeedFromLink(point) = %s, %v, want set", st, err)
	}
	if got, err := s.GetMeetingPoint(ctx, "WITH"); err != nil || *got != point {
		t.Errorf("stored point = %+v, %v", got, err)
	}

	st, err = n.SeedFromLink(ctx, "WITHOUT", nil)
	if err != nil || st != StatePicking {
		t.Fatalf("SeedFromLink(nil) = %s, %v, want picking", st, err)
	}
	if got, _ := n.State(ctx, "WITHOUT"); got != StatePicking {
		t.Errorf("State() = %s, want picking", got)
	}
}

func TestDesignateRequiresPickingOnceSet(t *testing.T) {
	n, s := setupNegotiator(t)
	ctx := context.Background()

	if _, err := n.SeedFromLink(ctx, "R", &point); err != nil {
		t.Fatal(err)
	}

	moved := models.Coordinates{Latitude: 1, Longitude: 2}
	if err := n.Designate(ctx, "R", models.RoleSeller, moved); !errors.Is(err, ErrNotPicking) {
		t.Fatalf("Designate() from set error = %v, want ErrNotPicking", err)
	}
	if got, err := s.GetMeetingPoint(ctx, "R"); err != nil || *got != point {
		t.Fatalf("stored point = %+v, %v, want unchanged %+v", got, err, point)
	}

	if _, err := n.BeginPicking("R", models.RoleSeller); err != nil {
		t.Fatal(err)
	}
	if err := n.Designate(ctx, "R", models.RoleSeller, moved); err != nil {
		t.Fatalf("Designate() after BeginPicking error = %v", err)
	}
	if got, err := s.GetMeetingPoint(ctx, "R"); err != nil || *got != moved {
		t.Errorf("stored point = %+v, %v, want %+v", got, err, moved)
	}
	if st, _ := n.State(ctx, "R"); st != StateSet {
		t.Errorf("State() = %s, want set", st)
	}
}
