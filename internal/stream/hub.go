package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// AlertEvent is the wire shape pushed to live subscribers.
type AlertEvent struct {
	Type         string    `json:"type"`
	Chain        string    `json:"chain"`
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	Tier         string    `json:"tier"`
	RiskScore    float64   `json:"risk_score"`
	PriceUSD     *float64  `json:"price_usd,omitempty"`
	LiquidityUSD *float64  `json:"liquidity_usd,omitempty"`
	VolumeUSD24h *float64  `json:"volume_24h_usd,omitempty"`
	MarketCapUSD *float64  `json:"market_cap_usd,omitempty"`
	Flags        []string  `json:"flags,omitempty"`
	Labels       []string  `json:"labels,omitempty"`
	PageURL      string    `json:"page_url,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

// Hub fans released alerts out to live subscribers. Publishing never
// blocks; a subscriber that cannot keep up loses events instead of stalling
// the pipeline.
type Hub struct {
	Logger *zap.Logger

	buf     int
	mu      sync.RWMutex
	subs    map[uint64]chan AlertEvent
	nextID  uint64
	dropped uint64
}

func NewHub(subscriberBuf int, logger *zap.Logger) *Hub {
	if subscriberBuf <= 0 {
		subscriberBuf = 16
	}
	return &Hub{
		Logger: logger,
		buf:    subscriberBuf,
		subs:   map[uint64]chan AlertEvent{},
	}
}

// Subscribe registers a new listener and returns its id and channel. The
// channel is closed by Unsubscribe.
func (h *Hub) Subscribe() (uint64, <-chan AlertEvent) {
	ch := make(chan AlertEvent, h.buf)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) Publish(ev AlertEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Drop when subscriber is slow; hub must not block.
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

type Stats struct {
	Subscribers int    `json:"subscribers"`
	Dropped     uint64 `json:"dropped"`
}

func (h *Hub) Stats() Stats {
	if h == nil {
		return Stats{}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Subscribers: len(h.subs),
		Dropped:     atomic.LoadUint64(&h.dropped),
	}
}
