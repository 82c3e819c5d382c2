// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package services

import (
	"context"
	"time"

	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/metrics"
)

const defaultGCInterval = 10 * time.Minute

// GarbageCollector is satisfied by *store.Store.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

// StoreGCService runs value-log GC on a fixed interval. A failed pass is
// logged and retried on the next tick rather than restarting the service.
type StoreGCService struct {
	gc           GarbageCollector
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewStoreGCService creates the GC loop. A non-positive interval becomes 10m.
func NewStoreGCService(gc GarbageCollector, interval time.Duration, discardRatio float64) *StoreGCService {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	return &StoreGCService{
		gc:           gc,
		interval:     interval,
		discardRatio: discardRatio,
		name:         "store-gc",
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *StoreGCService) runOnce() {
	start := time.Now()
	if err := s.gc.RunGC(s.discardRatio); err != nil {
		metrics.StoreGCRuns.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Msg("Store value log GC failed")
		return
	}
	metrics.StoreGCRuns.WithLabelValues("ok").Inc()
	logging.Debug().Dur("duration", time.Since(start)).Msg("Store value log GC pass complete")
}

func (s *StoreGCService) String() string {
	return s.name
}
