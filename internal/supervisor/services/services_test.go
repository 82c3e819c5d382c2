// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/rendezvous/internal/metrics"
)

type fakeHub struct {
	runs atomic.Int32
}

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeHub) WatchStore(ctx context.Context) error {
	return errors.New("subscription dropped")
}

func TestLoopServices(t *testing.T) {
	hub := &fakeHub{}

	hubSvc := NewWebSocketHubService(hub)
	if hubSvc.String() != "websocket-hub" {
		t.Errorf("String() = %q", hubSvc.String())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := hubSvc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("hub Serve() = %v, want context.Canceled", err)
	}
	if hub.runs.Load() != 1 {
		t.Errorf("RunWithContext called %d times", hub.runs.Load())
	}

	watcher := NewStoreWatcherService(hub)
	if watcher.String() != "store-watcher" {
		t.Errorf("String() = %q", watcher.String())
	}
	if err := watcher.Serve(context.Background()); err == nil {
		t.Error("watcher Serve() = nil, want subscription error")
	}
}

type fakeGC struct {
	mu     sync.Mutex
	ratios []float64
	err    error
}

func (f *fakeGC) RunGC(discardRatio float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratios = append(f.ratios, discardRatio)
	return f.err
}

func (f *fakeGC) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ratios)
}

func TestStoreGCServiceRunsOnInterval(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		label string
	}{
		{name: "success", label: "ok"},
		{name: "failure", err: errors.New("value log busy"), label: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gc := &fakeGC{err: tt.err}
			before := testutil.ToFloat64(metrics.StoreGCRuns.WithLabelValues(tt.label))

			svc := NewStoreGCService(gc, 10*time.Millisecond, 0.5)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- svc.Serve(ctx) }()

			for gc.calls() < 2 && ctx.Err() == nil {
				time.Sleep(5 * time.Millisecond)
			}
			cancel()
			<-done

			if gc.calls() < 2 {
				t.Fatalf("RunGC called %d times, want at least 2", gc.calls())
			}
			if gc.ratios[0] != 0.5 {
				t.Errorf("discard ratio = %v, want 0.5", gc.ratios[0])
			}
			after := testutil.ToFloat64(metrics.StoreGCRuns.WithLabelValues(tt.label))
			if after-before < 2 {
				t.Errorf("%s counter grew by %v, want >= 2", tt.label, after-before)
			}
		})
	}
}

func TestStoreGCServiceDefaultInterval(t *testing.T) {
	svc := NewStoreGCService(&fakeGC{}, 0, 0.5)
	if svc.interval != defaultGCInterval {
		t.Errorf("interval = %v, want %v", svc.interval, defaultGCInterval)
	}
}

type fakeNATS struct {
	running   atomic.Bool
	shutdowns atomic.Int32
}

func (f *fakeNATS) IsRunning() bool { return f.running.Load() }

func (f *fakeNATS) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	f.running.Store(false)
	return nil
}

func TestEmbeddedNATSService(t *testing.T) {
	t.Run("shuts down on cancel", func(t *testing.T) {
		ns := &fakeNATS{}
		ns.running.Store(true)
		svc := NewEmbeddedNATSService(ns, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()
		cancel()

		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
		if ns.shutdowns.Load() != 1 {
			t.Errorf("Shutdown called %d times, want 1", ns.shutdowns.Load())
		}
	})

	t.Run("reports unexpected exit", func(t *testing.T) {
		ns := &fakeNATS{}
		svc := NewEmbeddedNATSService(ns, time.Second)
		svc.pollInterval = 5 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := svc.Serve(ctx); !errors.Is(err, ErrNATSNotRunning) {
			t.Errorf("Serve() = %v, want ErrNATSNotRunning", err)
		}
	})
}
