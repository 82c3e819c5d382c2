// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package feed

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/store"
)

func init() {
	logging.Init(logging.Config{Level: "disabled"})
}

func setupFeed(t *testing.T) (*Feed, *store.Store) {
	t.Helper()
	s, err := store.Open(config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func loc(lat float64, name string) models.LocationRecord {
	return models.LocationRecord{Latitude: lat, Longitude: lat, Username: name, Timestamp: 1}
}

func TestSnapshotExcludesSelf(t *testing.T) {
	f, s := setupFeed(t)
	ctx := context.Background()

	_ = s.PutLocation(ctx, "R", "ana", loc(1, "ana"))
	_ = s.PutLocation(ctx, "R", "bo", loc(2, "bo"))

	snap, err := f.Snapshot(ctx, "R", "ana")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap) != 1 || snap["bo"].Latitude != 2 {
		t.Errorf("Snapshot() = %+v, want only bo", snap)
	}
}

func TestWatch(t *testing.T) {
	f, s := setupFeed(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = s.PutLocation(ctx, "R", "bo", loc(2, "bo"))

	ch, err := f.Watch(ctx, "R", "ana")
	if err != nil {
		t.Fatal(err)
	}

	next := func() map[string]models.LocationRecord {
		t.Helper()
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("channel closed early")
			}
			return snap
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
		return nil
	}

	if snap := next(); len(snap) != 1 {
		t.Fatalf("initial snapshot = %+v, want bo only", snap)
	}

	// Own writes do not produce snapshots.
	_ = s.PutLocation(ctx, "R", "ana", loc(9, "ana"))
	_ = s.PutLocation(ctx, "R", "cy", loc(3, "cy"))

	// bo's own write may still be in flight on the change stream, so wait
	// for the snapshot that carries cy.
	snap := next()
	for _, ok := snap["cy"]; !ok; _, ok = snap["cy"] {
		snap = next()
	}
	if _, ok := snap["ana"]; ok {
		t.Errorf("snapshot includes self: %+v", snap)
	}
	if snap["cy"].Latitude != 3 || snap["bo"].Latitude != 2 {
		t.Errorf("merged snapshot = %+v", snap)
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
