// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package store is the durable room store, backed by BadgerDB.
//
// Each room lives under its own key prefix:
//
//	rooms/{code}/info                 TransactionInfo, written once
//	rooms/{code}/meetingPoint         Coordinates
//	rooms/{code}/locations/{memberID} LocationRecord
//
// Every write is an independent, last-write-wins replacement of a single key.
// There is no read-modify-write across keys and no write is conditional on
// another key, so concurrent writers to different members never interfere and
// concurrent writers to the same key leave whichever value committed last.
// CreateInfo is the one exception: it fails with ErrRoomExists instead of
// overwriting.
//
// Writers and readers observe changes through Subscribe, which is fed by
// BadgerDB's own change stream.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
)

// Errors
var (
	ErrNotFound    = errors.New("store: not found")
	ErrRoomExists  = errors.New("store: room already exists")
	ErrClosed      = errors.New("store: closed")
	ErrInvalidKey  = errors.New("store: invalid room code or member id")
	ErrInvalidData = errors.New("store: invalid value")
)

const (
	roomsPrefix    = "rooms/"
	infoSuffix     = "info"
	meetingSuffix  = "meetingPoint"
	locationsInfix = "locations/"

	defaultCloseTimeout = 30 * time.Second
)

// Store is a BadgerDB-backed room store.
type Store struct {
	db     *badger.DB
	config config.StoreConfig

	mu     sync.RWMutex
	closed bool

	changes *dispatcher
}

// Open opens (or creates) the store described by cfg. With cfg.InMemory the
// database lives only in process memory and cfg.Path is ignored.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("store: path is required unless in_memory is set")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	opts.Compression = options.Snappy
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &Store{db: db, config: cfg}

	s.changes = newDispatcher(db)
	if err := s.changes.start(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("start change stream: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("room_ttl", cfg.RoomTTL).
		Msg("Room store opened")

	return s, nil
}

// Config returns the configuration the store was opened with.
func (s *Store) Config() config.StoreConfig {
	return s.config
}

// Ping reports whether the store is usable.
func (s *Store) Ping() error {
	return s.checkNotClosed()
}

func (s *Store) checkNotClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close stops every subscription and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	logging.Info().Msg("Closing room store")

	s.changes.stop()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Room store closed")
		return nil
	case <-time.After(defaultCloseTimeout):
		logging.Warn().Dur("timeout", defaultCloseTimeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", defaultCloseTimeout)
	}
}

// RunGC reclaims value-log space until BadgerDB reports nothing left to rewrite.
func (s *Store) RunGC(discardRatio float64) error {
	if err := s.checkNotClosed(); err != nil {
		return err
	}
	if s.config.InMemory {
		return nil
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}

	for {
		err := s.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if errors.Is(err, badger.ErrRejected) {
			// Another GC is already running.
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Key layout

func roomPrefix(code string) string {
	return roomsPrefix + code + "/"
}

func infoKey(code string) []byte {
	return []byte(roomPrefix(code) + infoSuffix)
}

func meetingPointKey(code string) []byte {
	return []byte(roomPrefix(code) + meetingSuffix)
}

func locationsPrefix(code string) string {
	return roomPrefix(code) + locationsInfix
}

func locationKey(code, memberID string) []byte {
	return []byte(locationsPrefix(code) + memberID)
}

// validSegment rejects values that would break the key layout.
func validSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/\x00")
}

// parseKey splits a room key back into its parts.
func parseKey(key string) (kind Kind, room, memberID string, ok bool) {
	rest, found := strings.CutPrefix(key, roomsPrefix)
	if !found {
		return "", "", "", false
	}
	room, rest, found = strings.Cut(rest, "/")
	if !found || room == "" {
		return "", "", "", false
	}
	switch {
	case rest == infoSuffix:
		return KindInfo, room, "", true
	case rest == meetingSuffix:
		return KindMeetingPoint, room, "", true
	case strings.HasPrefix(rest, locationsInfix):
		memberID = strings.TrimPrefix(rest, locationsInfix)
		if memberID == "" {
			return "", "", "", false
		}
		return KindLocation, room, memberID, true
	}
	return "", "", "", false
}
