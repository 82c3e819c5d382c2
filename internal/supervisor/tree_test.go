// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/rendezvous/internal/config"
)

// stubService runs until canceled, optionally failing its first few runs.
type stubService struct {
	name     string
	starts   atomic.Int32
	failures int32
}

func (s *stubService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestTreeConfigDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   config.SupervisorConfig
		want TreeConfig
	}{
		{
			name: "zero values",
			in:   config.SupervisorConfig{},
			want: DefaultTreeConfig(),
		},
		{
			name: "partial override",
			in:   config.SupervisorConfig{FailureThreshold: 2, ShutdownTimeout: 3 * time.Second},
			want: TreeConfig{FailureThreshold: 2, FailureDecay: 30, FailureBackoff: 15 * time.Second, ShutdownTimeout: 3 * time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TreeConfigFrom(tt.in); got != tt.want {
				t.Errorf("TreeConfigFrom() = %+v, want %+v", got, tt.want)
			}
		})
	}

	tree, err := NewSupervisorTree(nil, TreeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if tree.Config() != DefaultTreeConfig() {
		t.Errorf("tree config = %+v, want defaults", tree.Config())
	}
}

func TestSupervisorTreeStartsEveryLayer(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}

	data := &stubService{name: "store-gc"}
	messaging := &stubService{name: "room-bus"}
	api := &stubService{name: "http-server"}
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data.starts.Load() > 0 && messaging.starts.Load() > 0 && api.starts.Load() > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	for _, s := range []*stubService{data, messaging, api} {
		if s.starts.Load() < 1 {
			t.Errorf("%s was not started", s.name)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not shut down in time")
	}
}

func TestSupervisorTreeRestartsFailedService(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := &stubService{name: "store-watcher", failures: 2}
	stable := &stubService{name: "websocket-hub"}
	tree.AddDataService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	for failing.starts.Load() < 3 && ctx.Err() == nil {
		time.Sleep(10 * time.Millisecond)
	}
	if failing.starts.Load() < 3 {
		t.Errorf("failing service started %d times, want at least 3", failing.starts.Load())
	}
	if stable.starts.Load() != 1 {
		t.Errorf("stable service started %d times, want 1", stable.starts.Load())
	}

	cancel()
	<-errCh
}

func TestSupervisorTreeUnknownLayerPanics(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{})
	defer func() {
		if recover() == nil {
			t.Error("Add with an unknown layer did not panic")
		}
	}()
	tree.Add(Layer("cache-layer"), &stubService{name: "x"})
}
