// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package feed exposes the live view of other members' locations in a room.
package feed

import (
	"context"
	"fmt"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/models"
	"github.com/tomtom215/rendezvous/internal/store"
)

// Source is the part of the room store a Feed reads from.
type Source interface {
	Locations(ctx context.Context, code string) (map[string]models.LocationRecord, error)
	Subscribe(ctx context.Context, room string, fn func(store.Change)) error
}

// Feed reads location snapshots and change streams.
type Feed struct {
	src Source
}

// New creates a Feed over src.
func New(src Source) *Feed {
	return &Feed{src: src}
}

// Snapshot returns the latest location of every member except self.
func (f *Feed) Snapshot(ctx context.Context, code, self string) (map[string]models.LocationRecord, error) {
	locs, err := f.src.Locations(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}
	delete(locs, self)
	return locs, nil
}

// Watch emits the current snapshot immediately and then a fresh merged
// snapshot after every location change from a member other than self. A
// consumer that falls behind only sees the most recent snapshot. The channel
// is closed when ctx is done.
func (f *Feed) Watch(ctx context.Context, code, self string) (<-chan map[string]models.LocationRecord, error) {
	changes := make(chan store.Change, 64)
	if err := f.src.Subscribe(ctx, code, func(c store.Change) {
		if c.Kind != store.KindLocation || c.MemberID == self {
			return
		}
		select {
		case changes <- c:
		case <-ctx.Done():
		}
	}); err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", code, err)
	}

	current, err := f.Snapshot(ctx, code, self)
	if err != nil {
		return nil, err
	}

	out := make(chan map[string]models.LocationRecord, 1)
	out <- copyMap(current)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-changes:
				if c.Deleted {
					delete(current, c.MemberID)
				} else {
					rec, err := c.Location()
					if err != nil {
						logging.Warn().Err(err).Str("room", code).Msg("Skipping undecodable location change")
						continue
					}
					current[c.MemberID] = rec
				}
				publishLatest(out, copyMap(current))
			}
		}
	}()

	return out, nil
}

// publishLatest replaces any snapshot the consumer has not read yet.
func publishLatest(out chan map[string]models.LocationRecord, snap map[string]models.LocationRecord) {
	for {
		select {
		case out <- snap:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

func copyMap(in map[string]models.LocationRecord) map[string]models.LocationRecord {
	out := make(map[string]models.LocationRecord, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
