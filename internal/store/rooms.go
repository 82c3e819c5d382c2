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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
)

// CreateInfo writes the transaction info for a new room. It never overwrites:
// if the room already has info, ErrRoomExists is returned.
func (s *Store) CreateInfo(ctx context.Context, code string, info models.TransactionInfo) error {
	if !validSegment(code) {
		return ErrInvalidKey
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal info: %w", err)
	}

	key := infoKey(code)
	err = s.write(ctx, string(KindInfo), func(txn *badger.Txn) error {
		_, getErr := txn.Get(key)
		if getErr == nil {
			return ErrRoomExists
		}
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing info: %w", getErr)
		}
		return txn.SetEntry(s.entry(key, data))
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent create committed first.
		return ErrRoomExists
	}
	return err
}

// GetInfo returns the room's transaction info or ErrNotFound.
func (s *Store) GetInfo(ctx context.Context, code string) (*models.TransactionInfo, error) {
	var info models.TransactionInfo
	if err := s.get(ctx, code, infoKey(code), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetMeetingPoint replaces the room's meeting point.
func (s *Store) SetMeetingPoint(ctx context.Context, code string, point models.Coordinates) error {
	if !validSegment(code) {
		return ErrInvalidKey
	}
	if !point.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidData, models.ErrInvalidCoordinates)
	}
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("marshal meeting point: %w", err)
	}
	key := meetingPointKey(code)
	return s.write(ctx, string(KindMeetingPoint), func(txn *badger.Txn) error {
		return txn.SetEntry(s.entry(key, data))
	})
}

// GetMeetingPoint returns the room's meeting point or ErrNotFound.
func (s *Store) GetMeetingPoint(ctx context.Context, code string) (*models.Coordinates, error) {
	var point models.Coordinates
	if err := s.get(ctx, code, meetingPointKey(code), &point); err != nil {
		return nil, err
	}
	return &point, nil
}

// PutLocation replaces memberID's location record in the room. The previous
// record, if any, is discarded entirely.
func (s *Store) PutLocation(ctx context.Context, code, memberID string, rec models.LocationRecord) error {
	if !validSegment(code) || !validSegment(memberID) {
		return ErrInvalidKey
	}
	if !rec.Coordinates().Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidData, models.ErrInvalidCoordinates)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	key := locationKey(code, memberID)
	return s.write(ctx, string(KindLocation), func(txn *badger.Txn) error {
		return txn.SetEntry(s.entry(key, data))
	})
}

// GetLocation returns memberID's latest location record or ErrNotFound.
func (s *Store) GetLocation(ctx context.Context, code, memberID string) (*models.LocationRecord, error) {
	if !validSegment(memberID) {
		return nil, ErrInvalidKey
	}
	var rec models.LocationRecord
	if err := s.get(ctx, code, locationKey(code, memberID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Locations returns every member's latest location in the room, keyed by
// member id. A room with no locations yields an empty map.
func (s *Store) Locations(ctx context.Context, code string) (map[string]models.LocationRecord, error) {
	if !validSegment(code) {
		return nil, ErrInvalidKey
	}
	if err := s.checkNotClosed(); err != nil {
		return nil, err
	}

	out := make(map[string]models.LocationRecord)
	prefix := []byte(locationsPrefix(code))
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			memberID := strings.TrimPrefix(string(item.Key()), string(prefix))
			var rec models.LocationRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode location %s: %w", memberID, err)
			}
			out[memberID] = rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot reads the whole room in one consistent view. It returns
// ErrNotFound when the room has no keys at all.
func (s *Store) Snapshot(ctx context.Context, code string) (*models.RoomSnapshot, error) {
	if !validSegment(code) {
		return nil, ErrInvalidKey
	}
	if err := s.checkNotClosed(); err != nil {
		return nil, err
	}

	snap := &models.RoomSnapshot{
		Room:      code,
		Locations: make(map[string]models.LocationRecord),
	}
	found := false
	prefix := []byte(roomPrefix(code))

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			kind, _, memberID, ok := parseKey(string(item.Key()))
			if !ok {
				continue
			}
			found = true
			err := item.Value(func(val []byte) error {
				switch kind {
				case KindInfo:
					snap.Info = &models.TransactionInfo{}
					return json.Unmarshal(val, snap.Info)
				case KindMeetingPoint:
					snap.MeetingPoint = &models.Coordinates{}
					return json.Unmarshal(val, snap.MeetingPoint)
				case KindLocation:
					var rec models.LocationRecord
					if err := json.Unmarshal(val, &rec); err != nil {
						return err
					}
					snap.Locations[memberID] = rec
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return snap, nil
}

// DeleteRoom removes every key of the room and returns how many were removed.
func (s *Store) DeleteRoom(ctx context.Context, code string) (int, error) {
	if !validSegment(code) {
		return 0, ErrInvalidKey
	}
	if err := s.checkNotClosed(); err != nil {
		return 0, err
	}

	var keys [][]byte
	prefix := []byte(roomPrefix(code))
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list room keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, ErrNotFound
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete %s: %w", key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush room delete: %w", err)
	}
	return len(keys), nil
}

func (s *Store) entry(key, data []byte) *badger.Entry {
	e := badger.NewEntry(key, data)
	if s.config.RoomTTL > 0 {
		e = e.WithTTL(s.config.RoomTTL)
	}
	return e
}

func (s *Store) write(ctx context.Context, kind string, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkNotClosed(); err != nil {
		return err
	}
	start := time.Now()
	err := s.db.Update(fn)
	metrics.RecordStoreWrite(kind, time.Since(start), err)
	return err
}

func (s *Store) get(ctx context.Context, code string, key []byte, dst any) error {
	if !validSegment(code) {
		return ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkNotClosed(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
