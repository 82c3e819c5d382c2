// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package services

import (
	"context"
)

// ContextHub is satisfied by *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// StoreWatcher is satisfied by *websocket.Hub, which turns durable
// meeting-point writes into room broadcasts.
type StoreWatcher interface {
	WatchStore(ctx context.Context) error
}

// LoopService supervises a component that already blocks until its context
// ends. It only adds a name for supervisor logs.
type LoopService struct {
	run  func(ctx context.Context) error
	name string
}

// NewLoopService wraps run under name.
func NewLoopService(name string, run func(ctx context.Context) error) *LoopService {
	return &LoopService{run: run, name: name}
}

// NewWebSocketHubService supervises the hub's registration loop.
func NewWebSocketHubService(hub ContextHub) *LoopService {
	return NewLoopService("websocket-hub", hub.RunWithContext)
}

// NewStoreWatcherService supervises the store-to-room broadcast watcher.
// A failed subscription is restarted with the supervisor's backoff.
func NewStoreWatcherService(w StoreWatcher) *LoopService {
	return NewLoopService("store-watcher", w.WatchStore)
}

// Serve implements suture.Service.
func (s *LoopService) Serve(ctx context.Context) error {
	return s.run(ctx)
}

func (s *LoopService) String() string {
	return s.name
}
