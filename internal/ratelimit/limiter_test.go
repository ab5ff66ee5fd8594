package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestReserve_BurstCap(t *testing.T) {
	l := New(100, 3)
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		l.mu.Lock()
		delay := l.reserve("api", now)
		l.mu.Unlock()
		if delay != 0 {
			t.Fatalf("call %d: expected immediate, got delay %v", i, delay)
		}
	}

	l.mu.Lock()
	delay := l.reserve("api", now.Add(time.Second))
	l.mu.Unlock()
	if delay != 9*time.Second {
		t.Fatalf("expected 9s burst delay, got %v", delay)
	}

	// After the burst window slides past the oldest call the slot frees up.
	l.mu.Lock()
	delay = l.reserve("api", now.Add(11*time.Second))
	l.mu.Unlock()
	if delay != 0 {
		t.Fatalf("expected immediate after burst window, got %v", delay)
	}
}

func TestReserve_MinuteCap(t *testing.T) {
	l := New(5, 100)
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 5; i++ {
		l.mu.Lock()
		delay := l.reserve("api", now.Add(time.Duration(i)*time.Second))
		l.mu.Unlock()
		if delay != 0 {
			t.Fatalf("call %d: expected immediate, got %v", i, delay)
		}
	}

	l.mu.Lock()
	delay := l.reserve("api", now.Add(10*time.Second))
	l.mu.Unlock()
	if delay != 50*time.Second {
		t.Fatalf("expected 50s delay until first call ages out, got %v", delay)
	}

	l.mu.Lock()
	delay = l.reserve("api", now.Add(61*time.Second))
	l.mu.Unlock()
	if delay != 0 {
		t.Fatalf("expected immediate after window, got %v", delay)
	}
}

func TestReserve_PerNameIsolation(t *testing.T) {
	l := New(100, 1)
	now := time.Unix(1_700_000_000, 0)

	l.mu.Lock()
	first := l.reserve("dexscreener", now)
	second := l.reserve("rugcheck", now)
	blocked := l.reserve("dexscreener", now)
	l.mu.Unlock()

	if first != 0 || second != 0 {
		t.Fatalf("expected both names to get a slot, got %v and %v", first, second)
	}
	if blocked <= 0 {
		t.Fatal("expected second dexscreener call to be delayed")
	}
}

func TestWait_ContextCancel(t *testing.T) {
	l := New(100, 1)
	if err := l.Wait(context.Background(), "api"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "api")
	if err == nil {
		t.Fatal("expected context error while rate limited")
	}
}

func TestStats(t *testing.T) {
	l := New(10, 5)
	if err := l.Wait(context.Background(), "api"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	stats := l.Stats("api")
	if stats.CallsLastMinute != 1 {
		t.Errorf("expected 1 recent call, got %d", stats.CallsLastMinute)
	}
	if stats.CallsPerMinute != 10 || stats.BurstLimit != 5 {
		t.Errorf("unexpected limits: %+v", stats)
	}
	if stats.UtilizationPct != 10 {
		t.Errorf("expected 10%% utilization, got %v", stats.UtilizationPct)
	}
}
