// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package breaker

import (
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rendezvous/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled"})
}

var errBoom = errors.New("boom")

func TestBreakerTrips(t *testing.T) {
	b := New[int]("test-trip", Settings{MinRequests: 4, FailureRate: 0.5})

	for i := 0; i < 4; i++ {
		if _, err := b.Execute(func() (int, error) { return 0, errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d error = %v, want errBoom", i, err)
		}
	}
	if got := b.State(); got != "open" {
		t.Fatalf("State() = %s, want open", got)
	}

	_, err := b.Execute(func() (int, error) { return 1, nil })
	if !IsRejected(err) {
		t.Errorf("Execute() on open breaker error = %v, want rejection", err)
	}
}

func TestBreakerIsSuccessful(t *testing.T) {
	errExpected := errors.New("not found")
	b := New[int]("test-success", Settings{
		MinRequests:  2,
		FailureRate:  0.5,
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errExpected) },
	})

	for i := 0; i < 5; i++ {
		_, _ = b.Execute(func() (int, error) { return 0, errExpected })
	}
	if got := b.State(); got != "closed" {
		t.Errorf("State() = %s, want closed when errors are classified as successful", got)
	}

	v, err := b.Execute(func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Execute() = %d, %v, want 7, nil", v, err)
	}
}

func TestIsRejected(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{gobreaker.ErrOpenState, true},
		{gobreaker.ErrTooManyRequests, true},
		{errBoom, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRejected(tt.err); got != tt.want {
			t.Errorf("IsRejected(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
