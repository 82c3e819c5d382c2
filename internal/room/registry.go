// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

// Package room tracks which presence-channel clients are members of which
// room.
//
// A room exists in the registry from its first Join until its last member
// leaves. Durable room state (info, meeting point, locations) lives in the
// store and outlives registry membership.
package room

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/rendezvous/internal/metrics"
	"github.com/tomtom215/rendezvous/internal/models"
)

// Errors
var (
	ErrEmptyCode     = errors.New("room code is required")
	ErrEmptyClientID = errors.New("client id is required")
)

// Member is one client's membership in a room.
type Member struct {
	ClientID    string      `json:"clientId"`
	MemberID    string      `json:"memberId"`
	DisplayName string      `json:"displayName"`
	Role        models.Role `json:"role"`
	JoinedAt    time.Time   `json:"joinedAt"`
}

// Departure describes a membership removed by LeaveAll.
type Departure struct {
	Room      string
	Member    Member
	Remaining int
}

type room struct {
	createdAt time.Time
	members   map[string]Member
}

// Registry is a concurrency-safe map of room code to members.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		now:   time.Now,
	}
}

// Join adds m to the room, creating the room on first join, and returns the
// member count afterwards. Re-joining with the same ClientID replaces the
// membership without changing the count.
func (r *Registry) Join(code string, m Member) (int, error) {
	if code == "" {
		return 0, ErrEmptyCode
	}
	if m.ClientID == "" {
		return 0, ErrEmptyClientID
	}
	if m.Role == "" {
		m.Role = models.RoleUnspecified
	}

	r.mu.Lock()
	rm, ok := r.rooms[code]
	if !ok {
		rm = &room{createdAt: r.now(), members: make(map[string]Member)}
		r.rooms[code] = rm
	}
	if existing, ok := rm.members[m.ClientID]; ok {
		m.JoinedAt = existing.JoinedAt
	} else {
		m.JoinedAt = r.now()
	}
	rm.members[m.ClientID] = m
	count := len(rm.members)
	rooms, members := r.statsLocked()
	r.mu.Unlock()

	metrics.RecordRoomJoin(m.Role.String(), rooms, members)
	return count, nil
}

// Leave removes clientID from the room. ok is false when it was not a member.
// The room is discarded once its count reaches zero.
func (r *Registry) Leave(code, clientID string) (remaining int, ok bool) {
	r.mu.Lock()
	remaining, ok = r.leaveLocked(code, clientID)
	rooms, members := r.statsLocked()
	r.mu.Unlock()

	if ok {
		metrics.SetRoomGauges(rooms, members)
	}
	return remaining, ok
}

// LeaveAll removes clientID from every room it joined, as on disconnect.
func (r *Registry) LeaveAll(clientID string) []Departure {
	r.mu.Lock()
	var out []Departure
	for code, rm := range r.rooms {
		m, ok := rm.members[clientID]
		if !ok {
			continue
		}
		remaining, _ := r.leaveLocked(code, clientID)
		out = append(out, Departure{Room: code, Member: m, Remaining: remaining})
	}
	rooms, members := r.statsLocked()
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	if len(out) > 0 {
		metrics.SetRoomGauges(rooms, members)
	}
	return out
}

func (r *Registry) leaveLocked(code, clientID string) (int, bool) {
	rm, ok := r.rooms[code]
	if !ok {
		return 0, false
	}
	if _, ok := rm.members[clientID]; !ok {
		return len(rm.members), false
	}
	delete(rm.members, clientID)
	remaining := len(rm.members)
	if remaining == 0 {
		delete(r.rooms, code)
	}
	return remaining, true
}

func (r *Registry) statsLocked() (rooms, members int) {
	for _, rm := range r.rooms {
		members += len(rm.members)
	}
	return len(r.rooms), members
}

// Count returns the number of members in the room.
func (r *Registry) Count(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rm, ok := r.rooms[code]; ok {
		return len(rm.members)
	}
	return 0
}

// Member returns clientID's membership in the room.
func (r *Registry) Member(code, clientID string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[code]
	if !ok {
		return Member{}, false
	}
	m, ok := rm.members[clientID]
	return m, ok
}

// Members returns the room's members ordered by join time.
func (r *Registry) Members(code string) []Member {
	return r.Peers(code, "", nil)
}

// Peers returns the room's members other than exclude for which filter
// returns true. A nil filter accepts everyone.
func (r *Registry) Peers(code, exclude string, filter func(Member) bool) []Member {
	r.mu.RLock()
	rm, ok := r.rooms[code]
	if !ok {
		r.mu.RUnlock()
		return nil
	}
	out := make([]Member, 0, len(rm.members))
	for id, m := range rm.members {
		if id == exclude {
			continue
		}
		if filter != nil && !filter(m) {
			continue
		}
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ClientID < out[j].ClientID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// RoomsOf returns the codes of every room clientID is in, sorted.
func (r *Registry) RoomsOf(clientID string) []string {
	r.mu.RLock()
	var out []string
	for code, rm := range r.rooms {
		if _, ok := rm.members[clientID]; ok {
			out = append(out, code)
		}
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Rooms returns every active room code, sorted.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		out = append(out, code)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Stats returns the number of active rooms and total memberships.
func (r *Registry) Stats() (rooms, members int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statsLocked()
}

// Info describes one active room.
type Info struct {
	Code      string    `json:"code"`
	Members   int       `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// Describe returns the room's registry info.
func (r *Registry) Describe(code string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[code]
	if !ok {
		return Info{}, false
	}
	return Info{Code: code, Members: len(rm.members), CreatedAt: rm.createdAt}, true
}
