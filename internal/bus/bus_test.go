// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/logging"
	"github.com/tomtom215/rendezvous/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "disabled"})
}

func startBus(t *testing.T, cfg config.NATSConfig) (*Bus, <-chan Envelope) {
	t.Helper()
	b, err := New(cfg, logging.NewWatermillAdapter())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	received := make(chan Envelope, 16)
	b.SetHandler(func(_ context.Context, env Envelope) { received <- env })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(15 * time.Second):
			t.Error("Serve() did not return after cancel")
		}
		_ = b.Close()
	})

	select {
	case <-b.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("bus not ready")
	}
	return b, received
}

func waitEnvelope(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
	return Envelope{}
}

func TestGoChannelRoundTrip(t *testing.T) {
	b, received := startBus(t, config.NATSConfig{})
	if b.Transport() != "gochannel" {
		t.Fatalf("Transport() = %s, want gochannel", b.Transport())
	}

	data, _ := json.Marshal(map[string]string{"hello": "room"})
	err := b.Publish(context.Background(), Envelope{
		Sender:       "client-1",
		Room:         "TRX-1",
		Event:        "receive_location",
		Data:         data,
		ExcludeRoles: []models.Role{models.RoleBuyer},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	env := waitEnvelope(t, received)
	if env.Origin != b.InstanceID() || env.ID == "" || env.At == 0 {
		t.Errorf("envelope not stamped: %+v", env)
	}
	if env.Room != "TRX-1" || env.Event != "receive_location" || env.Sender != "client-1" {
		t.Errorf("envelope = %+v", env)
	}
	if string(env.Data) != string(data) {
		t.Errorf("Data = %s, want %s", env.Data, data)
	}
	if !env.Excludes(models.RoleBuyer) || env.Excludes(models.RoleSeller) {
		t.Errorf("Excludes() wrong for %v", env.ExcludeRoles)
	}
}

func TestGoChannelPreservesOrder(t *testing.T) {
	b, received := startBus(t, config.NATSConfig{})
	for i := 0; i < 20; i++ {
		if err := b.Publish(context.Background(), Envelope{Room: "R", Event: "e", At: int64(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 20; i++ {
		if env := waitEnvelope(t, received); env.At != int64(i+1) {
			t.Fatalf("envelope %d has At=%d, out of order", i, env.At)
		}
	}
}

func TestServeWithoutHandler(t *testing.T) {
	b, err := New(config.NATSConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.Serve(context.Background()); !errors.Is(err, ErrNoHandler) {
		t.Errorf("Serve() error = %v, want ErrNoHandler", err)
	}
}

func TestPublishAfterClose(t *testing.T) {
	b, err := New(config.NATSConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(context.Background(), Envelope{Room: "R"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrClosed", err)
	}
}

func TestNATSRequiresURL(t *testing.T) {
	if _, err := New(config.NATSConfig{Enabled: true}, nil); err == nil {
		t.Error("New() with nats enabled and no url should fail")
	}
}

func TestEmbeddedNATSFanOut(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	ns, err := StartEmbedded("127.0.0.1", -1)
	if err != nil {
		t.Fatalf("StartEmbedded() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = ns.Shutdown(ctx)
	})
	if !ns.IsRunning() {
		t.Fatal("embedded server not running")
	}

	cfg := config.NATSConfig{Enabled: true, URL: ns.ClientURL(), MaxReconnects: 1, ReconnectWait: 100 * time.Millisecond}
	a, receivedA := startBus(t, cfg)
	b, receivedB := startBus(t, cfg)

	// Core NATS subscriptions become active asynchronously after Ready.
	deadline := time.Now().Add(10 * time.Second)
	for {
		if err := a.Publish(context.Background(), Envelope{Room: "WARMUP", Event: "warmup"}); err != nil {
			t.Fatal(err)
		}
		select {
		case <-receivedB:
		case <-time.After(200 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("instance b never received a warmup envelope")
			}
			continue
		}
		break
	}
	// Drain a's own warmup envelopes.
	for len(receivedA) > 0 {
		<-receivedA
	}
	for len(receivedB) > 0 {
		<-receivedB
	}

	if err := a.Publish(context.Background(), Envelope{Room: "TRX-5", Event: "meeting_point_update"}); err != nil {
		t.Fatal(err)
	}

	for name, ch := range map[string]<-chan Envelope{"a": receivedA, "b": receivedB} {
		for {
			env := waitEnvelope(t, ch)
			if env.Event == "warmup" {
				continue
			}
			if env.Room != "TRX-5" || env.Origin != a.InstanceID() {
				t.Errorf("instance %s got %+v", name, env)
			}
			break
		}
	}
	if a.InstanceID() == b.InstanceID() {
		t.Error("instances share an ID")
	}
}
