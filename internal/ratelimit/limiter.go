package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	window      = time.Minute
	burstWindow = 10 * time.Second
)

// Limiter enforces a per-minute call budget plus a short burst cap, tracked
// independently per API name. Wait blocks until a slot is free.
type Limiter struct {
	callsPerMinute int
	burstLimit     int

	mu         sync.Mutex
	calls      map[string][]time.Time
	burstCalls map[string][]time.Time
}

type Stats struct {
	CallsLastMinute int     `json:"calls_last_minute"`
	CallsPerMinute  int     `json:"calls_per_minute_limit"`
	BurstLast10s    int     `json:"burst_calls_last_10s"`
	BurstLimit      int     `json:"burst_limit"`
	UtilizationPct  float64 `json:"utilization_percent"`
}

func New(callsPerMinute, burstLimit int) *Limiter {
	if callsPerMinute <= 0 {
		callsPerMinute = 60
	}
	if burstLimit <= 0 {
		burstLimit = 10
	}
	return &Limiter{
		callsPerMinute: callsPerMinute,
		burstLimit:     burstLimit,
		calls:          make(map[string][]time.Time),
		burstCalls:     make(map[string][]time.Time),
	}
}

// Wait blocks until the named API may be called, or until ctx is done.
func (l *Limiter) Wait(ctx context.Context, name string) error {
	for {
		l.mu.Lock()
		delay := l.reserve(name, time.Now())
		l.mu.Unlock()
		if delay <= 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve either records a call at now and returns 0, or returns how long the
// caller must wait before retrying. Caller holds l.mu.
func (l *Limiter) reserve(name string, now time.Time) time.Duration {
	l.burstCalls[name] = prune(l.burstCalls[name], now, burstWindow)
	l.calls[name] = prune(l.calls[name], now, window)

	if len(l.burstCalls[name]) >= l.burstLimit {
		return l.burstCalls[name][0].Add(burstWindow).Sub(now)
	}
	if len(l.calls[name]) >= l.callsPerMinute {
		return l.calls[name][0].Add(window).Sub(now)
	}

	l.burstCalls[name] = append(l.burstCalls[name], now)
	l.calls[name] = append(l.calls[name], now)
	return 0
}

func (l *Limiter) Stats(name string) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	recent := len(prune(l.calls[name], now, window))
	burst := len(prune(l.burstCalls[name], now, burstWindow))
	return Stats{
		CallsLastMinute: recent,
		CallsPerMinute:  l.callsPerMinute,
		BurstLast10s:    burst,
		BurstLimit:      l.burstLimit,
		UtilizationPct:  float64(recent) / float64(l.callsPerMinute) * 100,
	}
}

func prune(items []time.Time, now time.Time, keep time.Duration) []time.Time {
	cut := 0
	for cut < len(items) && now.Sub(items[cut]) > keep {
		cut++
	}
	return items[cut:]
}
