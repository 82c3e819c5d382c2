// Rendezvous - Peer Meeting Coordination Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rendezvous

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCacheBasicOperations(t *testing.T) {
	c := New[string]("test", time.Minute, 10)
	defer c.Close()

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	if _, exists = c.Get("key2"); exists {
		t.Error("Expected key2 to not exist")
	}

	c.Delete("key1")
	if _, exists = c.Get("key1"); exists {
		t.Error("Expected key1 to be deleted")
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("stats = %+v, want 1 hit and 2 misses", stats)
	}
}

func TestCacheExpiration(t *testing.T) {
	c := New[int]("test", time.Minute, 10)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set("k", 1)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected fresh entry")
	}

	now = now.Add(61 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be removed, Len() = %d", c.Len())
	}
}

func TestCacheCapacityEvictsSoonestExpiry(t *testing.T) {
	c := New[int]("test", time.Minute, 2)
	defer c.Close()

	c.SetWithTTL("short", 1, time.Second)
	c.SetWithTTL("long", 2, time.Hour)
	c.Set("new", 3)

	if _, ok := c.Get("short"); ok {
		t.Error("expected entry closest to expiry to be evicted")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("expected long-lived entry to survive")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCacheCleanup(t *testing.T) {
	c := New[int]("test", time.Minute, 10)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	now = now.Add(2 * time.Minute)
	c.cleanup()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after cleanup, want 0", c.Len())
	}
	if got := c.GetStats().Evictions; got != 5 {
		t.Errorf("Evictions = %d, want 5", got)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int]("test", time.Minute, 1000)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n)
			c.Set(key, n)
			if v, ok := c.Get(key); !ok || v != n {
				t.Errorf("Get(%s) = %d, %v", key, v, ok)
			}
		}(i)
	}
	wg.Wait()
}
