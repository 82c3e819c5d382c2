// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package websocket

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/rendezvous/internal/config"
	"github.com/tomtom215/rendezvous/internal/room"
)

func TestOptionsFromConfigDefaults(t *testing.T) {
	o := OptionsFromConfig(config.RelayConfig{})

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"send buffer", o.SendBuffer, defaultSendBuffer},
		{"max message size", o.MaxMessageSize, int64(defaultMaxMessageSize)},
		{"write wait", o.WriteWait, defaultWriteWait},
		{"pong wait", o.PongWait, defaultPongWait},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	o = OptionsFromConfig(config.RelayConfig{SendBuffer: 8, PongWait: time.Second, SessionScopedMembers: true})
	if o.SendBuffer != 8 || o.PongWait != time.Second || !o.SessionScopedMembers {
		t.Errorf("explicit options not kept: %+v", o)
	}
}

func TestNewClientIDsAreUnique(t *testing.T) {
	hub := NewHub(room.NewRegistry(), nil, nil, nil, Options{})
	a, b := NewClient(hub, nil), NewClient(hub, nil)
	if a.ID() == b.ID() {
		t.Error("client IDs collide")
	}
	if a.seq >= b.seq {
		t.Errorf("seq not increasing: %d, %d", a.seq, b.seq)
	}
	if cap(a.send) != defaultSendBuffer {
		t.Errorf("send buffer = %d, want %d", cap(a.send), defaultSendBuffer)
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	hub := NewHub(room.NewRegistry(), nil, nil, nil, Options{})
	c := NewClient(hub, nil)
	if !c.enqueue(Message{Type: EventPong}) {
		t.Fatal("enqueue on open client failed")
	}
	c.close()
	c.close()
	if c.enqueue(Message{Type: EventPong}) {
		t.Error("enqueue after close should fail")
	}
}

func TestMemberID(t *testing.T) {
	plain := NewHub(room.NewRegistry(), nil, nil, nil, Options{})
	scoped := NewHub(room.NewRegistry(), nil, nil, nil, Options{SessionScopedMembers: true})
	c := NewClient(plain, nil)

	tests := []struct {
		name string
		hub  *Hub
		in   string
		want string
	}{
		{"display name", plain, " Ana ", "Ana"},
		{"anonymous", plain, "", c.id},
		{"session scoped", scoped, "Ana", "Ana#" + c.id},
		{"anonymous scoped", scoped, "  ", c.id},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hub.memberID(c, tt.in); got != tt.want {
				t.Errorf("memberID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
	if strings.Contains(plain.memberID(c, "Ana"), "#") {
		t.Error("plain member IDs should not be session scoped")
	}
}
