// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package room

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/rendezvous/internal/models"
)

func member(id string, role models.Role) Member {
	return Member{ClientID: id, MemberID: id, DisplayName: id, Role: role}
}

func TestJoinCounts(t *testing.T) {
	r := NewRegistry()

	prev := 0
	for i := 0; i < 5; i++ {
		n, err := r.Join("TRX-1", member(fmt.Sprintf("c%d", i), models.RoleBuyer))
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if n < 1 || n < prev {
			t.Fatalf("Join() count = %d after %d, want >= 1 and non-decreasing", n, prev)
		}
		prev = n
	}
	if prev != 5 {
		t.Errorf("final count = %d, want 5", prev)
	}

	// Re-joining does not double count.
	n, err := r.Join("TRX-1", member("c0", models.RoleSeller))
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("re-join count = %d, want 5", n)
	}
	m, ok := r.Member("TRX-1", "c0")
	if !ok || m.Role != models.RoleSeller {
		t.Errorf("Member() = %+v, %v, want seller role after re-join", m, ok)
	}
}

func TestJoinValidation(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Join("", member("c", models.RoleBuyer)); !errors.Is(err, ErrEmptyCode) {
		t.Errorf("Join(\"\") error = %v, want ErrEmptyCode", err)
	}
	if _, err := r.Join("A", Member{}); !errors.Is(err, ErrEmptyClientID) {
		t.Errorf("Join() with no client error = %v, want ErrEmptyClientID", err)
	}
	if _, err := r.Join("A", Member{ClientID: "x"}); err != nil {
		t.Fatal(err)
	}
	if m, _ := r.Member("A", "x"); m.Role != models.RoleUnspecified {
		t.Errorf("default role = %q, want unspecified", m.Role)
	}
}

func TestLeaveLifecycle(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Join("A", member("a", models.RoleSeller))
	_, _ = r.Join("A", member("b", models.RoleBuyer))

	if remaining, ok := r.Leave("A", "a"); !ok || remaining != 1 {
		t.Errorf("Leave(a) = %d, %v, want 1, true", remaining, ok)
	}
	if _, ok := r.Leave("A", "a"); ok {
		t.Error("second Leave(a) should report not a member")
	}
	if remaining, ok := r.Leave("A", "b"); !ok || remaining != 0 {
		t.Errorf("Leave(b) = %d, %v, want 0, true", remaining, ok)
	}
	if got := r.Rooms(); len(got) != 0 {
		t.Errorf("Rooms() = %v, want empty after last leave", got)
	}
	if _, ok := r.Describe("A"); ok {
		t.Error("Describe() should not find a discarded room")
	}
}

func TestLeaveAll(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Join("A", member("x", models.RoleSeller))
	_, _ = r.Join("B", member("x", models.RoleSeller))
	_, _ = r.Join("B", member("y", models.RoleBuyer))

	if got := r.RoomsOf("x"); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("RoomsOf(x) = %v, want [A B]", got)
	}

	deps := r.LeaveAll("x")
	if len(deps) != 2 {
		t.Fatalf("LeaveAll() = %+v, want 2 departures", deps)
	}
	if deps[0].Room != "A" || deps[0].Remaining != 0 {
		t.Errorf("departure[0] = %+v", deps[0])
	}
	if deps[1].Room != "B" || deps[1].Remaining != 1 || deps[1].Member.DisplayName != "x" {
		t.Errorf("departure[1] = %+v", deps[1])
	}
	if rooms, members := r.Stats(); rooms != 1 || members != 1 {
		t.Errorf("Stats() = %d, %d, want 1, 1", rooms, members)
	}
}

func TestPeers(t *testing.T) {
	r := NewRegistry()
	base := time.Unix(1000, 0)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	_, _ = r.Join("A", member("seller1", models.RoleSeller))
	_, _ = r.Join("A", member("buyer1", models.RoleBuyer))
	_, _ = r.Join("A", member("seller2", models.RoleSeller))
	_, _ = r.Join("A", member("other", models.RoleUnspecified))

	notBuyer := func(m Member) bool { return m.Role != models.RoleBuyer }
	peers := r.Peers("A", "buyer1", notBuyer)
	want := []string{"seller1", "seller2", "other"}
	if len(peers) != len(want) {
		t.Fatalf("Peers() = %+v, want %v", peers, want)
	}
	for i, id := range want {
		if peers[i].ClientID != id {
			t.Errorf("Peers()[%d] = %s, want %s", i, peers[i].ClientID, id)
		}
	}

	if got := r.Members("A"); len(got) != 4 || got[0].ClientID != "seller1" {
		t.Errorf("Members() = %+v", got)
	}
	if got := r.Peers("missing", "", nil); got != nil {
		t.Errorf("Peers(missing) = %+v, want nil", got)
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			if _, err := r.Join("A", member(id, models.RoleBuyer)); err != nil {
				t.Error(err)
			}
			if i%2 == 0 {
				r.Leave("A", id)
			}
		}(i)
	}
	wg.Wait()
	if got := r.Count("A"); got != 25 {
		t.Errorf("Count() = %d, want 25", got)
	}
}
