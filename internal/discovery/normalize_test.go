package discovery

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tokenwatch/internal/client/dexscreener"
	"tokenwatch/internal/token"
)

func pairFromJSON(t *testing.T, raw string) dexscreener.Pair {
	t.Helper()
	var pair dexscreener.Pair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	return pair
}

func TestNormalizePair(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	pair := pairFromJSON(t, `{
		"chainId": "solana",
		"url": "https://dexscreener.com/solana/pair1",
		"pairAddress": "Pair1111",
		"baseToken": {"address": "Mint1111", "name": "Moon Cat", "symbol": "MCAT"},
		"priceUsd": "0.00042",
		"txns": {"h24": {"buys": 30, "sells": 12}},
		"volume": {"h1": 1000, "h6": 4000, "h24": 9000},
		"priceChange": {"h1": 2, "h6": 3, "h24": 6},
		"liquidity": {"usd": 50000},
		"fdv": 200000,
		"pairCreatedAt": 1755900000000
	}`)

	snap, err := NormalizePair(token.ChainSolana, pair, now)
	if err != nil {
		t.Fatalf("NormalizePair: %v", err)
	}
	if snap.Key() != "solana:Mint1111" {
		t.Errorf("unexpected key %s", snap.Key())
	}
	if snap.PriceUSD == nil || *snap.PriceUSD != 0.00042 {
		t.Errorf("unexpected price %v", snap.PriceUSD)
	}
	if snap.MarketCapUSD == nil || *snap.MarketCapUSD != 200000 {
		t.Errorf("expected fdv-based market cap 200000, got %v", snap.MarketCapUSD)
	}
	if snap.VolumeUSD24h == nil || *snap.VolumeUSD24h != 9000 {
		t.Errorf("unexpected 24h volume %v", snap.VolumeUSD24h)
	}
	if snap.Buys24h == nil || *snap.Buys24h != 30 || snap.Sells24h == nil || *snap.Sells24h != 12 {
		t.Errorf("unexpected txns %v/%v", snap.Buys24h, snap.Sells24h)
	}
	if snap.PairCreatedAt == nil || snap.PairCreatedAt.UnixMilli() != 1755900000000 {
		t.Errorf("unexpected pairCreatedAt %v", snap.PairCreatedAt)
	}
	if count := snap.TxnCount24h(); count == nil || *count != 42 {
		t.Errorf("expected txn count 42, got %v", count)
	}
}

func TestNormalizePair_AbsentStaysAbsent(t *testing.T) {
	pair := pairFromJSON(t, `{
		"chainId": "bsc",
		"baseToken": {"address": "0xabc", "name": "Bare Token"}
	}`)
	snap, err := NormalizePair(token.ChainBSC, pair, time.Now().UTC())
	if err != nil {
		t.Fatalf("NormalizePair: %v", err)
	}
	if snap.PriceUSD != nil || snap.LiquidityUSD != nil || snap.MarketCapUSD != nil {
		t.Error("expected absent numerics to stay nil")
	}
	if snap.VolumeUSD24h != nil || snap.PriceChange24h != nil {
		t.Error("expected absent windows to stay nil")
	}
	if snap.TxnCount24h() != nil {
		t.Error("expected nil txn count when both sides absent")
	}
	if snap.Age(time.Now()) != nil {
		t.Error("expected nil age without pairCreatedAt")
	}
}

func TestNormalizePair_MarketCapFallback(t *testing.T) {
	pair := pairFromJSON(t, `{
		"chainId": "solana",
		"baseToken": {"address": "Mint1", "name": "Cap Token"},
		"fdv": 0,
		"marketCap": 75000
	}`)
	snap, err := NormalizePair(token.ChainSolana, pair, time.Now().UTC())
	if err != nil {
		t.Fatalf("NormalizePair: %v", err)
	}
	if snap.MarketCapUSD == nil || *snap.MarketCapUSD != 75000 {
		t.Errorf("expected marketCap fallback 75000, got %v", snap.MarketCapUSD)
	}
}

func TestNormalizePair_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		chain token.Chain
		raw   string
		field string
	}{
		{
			name:  "missing address",
			chain: token.ChainSolana,
			raw:   `{"baseToken": {"name": "No Address"}}`,
			field: "address",
		},
		{
			name:  "missing name",
			chain: token.ChainSolana,
			raw:   `{"baseToken": {"address": "Mint1"}}`,
			field: "name",
		},
		{
			name:  "bad chain",
			chain: token.Chain("dogechain"),
			raw:   `{"baseToken": {"address": "0x1", "name": "X"}}`,
			field: "chain",
		},
	}
	for _, tc := range cases {
		_, err := NormalizePair(tc.chain, pairFromJSON(t, tc.raw), time.Now().UTC())
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !errors.Is(err, token.ErrMalformedSnapshot) {
			t.Errorf("%s: expected ErrMalformedSnapshot, got %v", tc.name, err)
		}
		var malformed *token.MalformedSnapshotError
		if !errors.As(err, &malformed) || malformed.Field != tc.field {
			t.Errorf("%s: expected field %q, got %+v", tc.name, tc.field, err)
		}
	}
}
