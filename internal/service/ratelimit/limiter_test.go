package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRefills(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of capacity rejected")
	}
	if l.Allow("a") {
		t.Fatalf("empty bucket allowed")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are not independent")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("refill not applied")
	}
	if l.Allow("a") {
		t.Fatalf("refilled more than elapsed time allows")
	}
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	now = now.Add(2 * time.Minute)
	l.Allow("c")
	if l.Len() != 1 {
		t.Fatalf("tracked keys = %d, want 1", l.Len())
	}
}
