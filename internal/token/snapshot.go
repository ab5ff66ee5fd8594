package token

import (
	"time"
)

// Snapshot is one token's market state at scan time. Optional numeric fields
// are pointers so downstream filters can distinguish "no data" from "zero".
// A snapshot is immutable once produced; re-scans yield new instances.
type Snapshot struct {
	Chain   Chain
	Address string
	Name    string
	Symbol  string

	PairAddress string
	PageURL     string

	PairCreatedAt *time.Time

	PriceUSD     *float64
	LiquidityUSD *float64
	MarketCapUSD *float64

	VolumeUSD1h  *float64
	VolumeUSD6h  *float64
	VolumeUSD24h *float64

	PriceChange1h  *float64
	PriceChange6h  *float64
	PriceChange24h *float64

	Buys24h  *int
	Sells24h *int

	HolderCount *int

	FetchedAt time.Time
}

// Key identifies the token across cycles: address is only unique per chain.
func (s Snapshot) Key() string {
	return string(s.Chain) + ":" + s.Address
}

// Age is the duration since the pair was created, or nil when unknown.
func (s Snapshot) Age(now time.Time) *time.Duration {
	if s.PairCreatedAt == nil {
		return nil
	}
	d := now.Sub(*s.PairCreatedAt)
	if d < 0 {
		d = 0
	}
	return &d
}

// TxnCount24h sums 24h buys and sells. Nil when neither side was reported,
// so absent transaction data stays distinguishable from a quiet market.
func (s Snapshot) TxnCount24h() *int {
	if s.Buys24h == nil && s.Sells24h == nil {
		return nil
	}
	total := 0
	if s.Buys24h != nil {
		total += *s.Buys24h
	}
	if s.Sells24h != nil {
		total += *s.Sells24h
	}
	return &total
}
