// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
)

// Kind identifies which room key a Change touched.
type Kind string

const (
	KindInfo         Kind = "info"
	KindMeetingPoint Kind = "meetingPoint"
	KindLocation     Kind = "location"
)

// Change is one committed write observed on the change stream.
type Change struct {
	Kind     Kind
	Room     string
	MemberID string // set for KindLocation only
	Value    []byte // raw JSON, nil when Deleted
	Deleted  bool
	Version  uint64
}

// Location decodes the value of a KindLocation change.
func (c Change) Location() (models.LocationRecord, error) {
	var rec models.LocationRecord
	if c.Kind != KindLocation || c.Deleted {
		return rec, ErrInvalidData
	}
	err := json.Unmarshal(c.Value, &rec)
	return rec, err
}

// MeetingPoint decodes the value of a KindMeetingPoint change.
func (c Change) MeetingPoint() (models.Coordinates, error) {
	var point models.Coordinates
	if c.Kind != KindMeetingPoint || c.Deleted {
		return point, ErrInvalidData
	}
	err := json.Unmarshal(c.Value, &point)
	return point, err
}

const (
	subscriberBuffer = 256
	readyKeyPrefix   = "sys/ready/"
	readyTimeout     = 5 * time.Second
	readyProbe       = 50 * time.Millisecond
)

// Subscribe calls fn for every change to room, or to every room when room is
// empty. The subscription is registered before Subscribe returns, so any
// write that commits afterwards is delivered. fn runs on a dedicated
// goroutine in commit order and must not block for long: a subscriber that
// falls more than a buffer behind loses changes. Delivery stops when ctx is
// done or the store closes.
func (s *Store) Subscribe(ctx context.Context, room string, fn func(Change)) error {
	if room != "" && !validSegment(room) {
		return ErrInvalidKey
	}
	if err := s.checkNotClosed(); err != nil {
		return err
	}
	return s.changes.add(ctx, room, fn)
}

// dispatcher holds the single badger subscription and fans its batches out
// to registered subscribers.
type dispatcher struct {
	db *badger.DB

	cancel context.CancelFunc
	done   chan struct{}
	ready  chan string

	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

type subscriber struct {
	room string
	ch   chan Change
}

func newDispatcher(db *badger.DB) *dispatcher {
	return &dispatcher{
		db:    db,
		done:  make(chan struct{}),
		ready: make(chan string, 16),
		subs:  make(map[uint64]*subscriber),
	}
}

// start launches the badger subscription and waits until it demonstrably
// receives writes.
func (d *dispatcher) start() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	go func() {
		defer close(d.done)
		matches := []pb.Match{
			{Prefix: []byte(roomsPrefix)},
			{Prefix: []byte(readyKeyPrefix)},
		}
		err := d.db.Subscribe(ctx, d.handle, matches)
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Room store change stream stopped")
		}
	}()

	token := uuid.New().String()
	key := []byte(readyKeyPrefix + token)
	deadline := time.Now().Add(readyTimeout)
	for time.Now().Before(deadline) {
		err := d.db.Update(func(txn *badger.Txn) error {
			return txn.SetEntry(badger.NewEntry(key, []byte{1}).WithTTL(time.Minute))
		})
		if err != nil {
			cancel()
			return fmt.Errorf("write readiness probe: %w", err)
		}

		timer := time.NewTimer(readyProbe)
		for waiting := true; waiting; {
			select {
			case got := <-d.ready:
				if got == token {
					timer.Stop()
					_ = d.db.Update(func(txn *badger.Txn) error { return txn.Delete(key) })
					return nil
				}
			case <-timer.C:
				waiting = false
			case <-d.done:
				timer.Stop()
				return errors.New("change stream exited during startup")
			}
		}
	}
	cancel()
	return fmt.Errorf("change stream not ready after %v", readyTimeout)
}

func (d *dispatcher) handle(kvs *badger.KVList) error {
	for _, kv := range kvs.GetKv() {
		key := string(kv.GetKey())

		if token, ok := strings.CutPrefix(key, readyKeyPrefix); ok {
			if len(kv.GetValue()) > 0 {
				select {
				case d.ready <- token:
				default:
				}
			}
			continue
		}

		kind, room, memberID, ok := parseKey(key)
		if !ok {
			continue
		}
		change := Change{
			Kind:     kind,
			Room:     room,
			MemberID: memberID,
			Version:  kv.GetVersion(),
		}
		if len(kv.GetValue()) == 0 {
			change.Deleted = true
		} else {
			change.Value = append([]byte(nil), kv.GetValue()...)
		}
		metrics.StoreChanges.WithLabelValues(string(kind)).Inc()
		d.deliver(change)
	}
	return nil
}

func (d *dispatcher) deliver(change Change) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, sub := range d.subs {
		if sub.room != "" && sub.room != change.Room {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			logging.Warn().
				Str("room", change.Room).
				Str("kind", string(change.Kind)).
				Msg("Store subscriber is falling behind, change dropped")
		}
	}
}

func (d *dispatcher) add(ctx context.Context, room string, fn func(Change)) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	id := d.nextID
	d.nextID++
	sub := &subscriber{room: room, ch: make(chan Change, subscriberBuffer)}
	d.subs[id] = sub
	d.wg.Add(2)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		for change := range sub.ch {
			fn(change)
		}
	}()

	go func() {
		defer d.wg.Done()
		select {
		case <-ctx.Done():
		case <-d.done:
		}
		d.remove(id)
	}()

	return nil
}

func (d *dispatcher) remove(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sub, ok := d.subs[id]; ok {
		delete(d.subs, id)
		close(sub.ch)
	}
}

// stop ends the badger subscription and waits for every subscriber to drain.
func (d *dispatcher) stop() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	<-d.done
	d.wg.Wait()
}
