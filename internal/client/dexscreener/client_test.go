package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dex/search" {
			t.Errorf("expected path /dex/search, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "BONK" {
			t.Errorf("expected q=BONK, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"schemaVersion": "1.0.0",
			"pairs": [{
				"chainId": "solana",
				"dexId": "raydium",
				"url": "https://dexscreener.com/solana/pair1",
				"pairAddress": "Pair1111",
				"baseToken": {"address": "Mint1111", "name": "Bonk Clone", "symbol": "BONK2"},
				"quoteToken": {"address": "So11111111111111111111111111111111111111112", "name": "Wrapped SOL", "symbol": "SOL"},
				"priceUsd": "0.0000012",
				"txns": {"h24": {"buys": 120, "sells": 80}},
				"volume": {"h1": 5000, "h6": 21000, "h24": 90000.5},
				"priceChange": {"h1": 2.4, "h6": 11.1, "h24": -3.2},
				"liquidity": {"usd": 45000},
				"fdv": 1200000,
				"marketCap": 1100000,
				"pairCreatedAt": 1755900000000
			}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL)
	pairs, err := client.Search(context.Background(), "BONK")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}

	pair := pairs[0]
	if pair.ChainID != "solana" {
		t.Errorf("expected chainId solana, got %s", pair.ChainID)
	}
	if pair.BaseToken.Address != "Mint1111" {
		t.Errorf("expected base address Mint1111, got %s", pair.BaseToken.Address)
	}
	if pair.PriceUSD == nil || float64(*pair.PriceUSD) != 0.0000012 {
		t.Errorf("expected priceUsd 0.0000012, got %v", pair.PriceUSD)
	}
	if pair.Volume == nil || pair.Volume.H24 == nil || float64(*pair.Volume.H24) != 90000.5 {
		t.Errorf("expected 24h volume 90000.5, got %v", pair.Volume)
	}
	if pair.PriceChange == nil || pair.PriceChange.H24 == nil || float64(*pair.PriceChange.H24) != -3.2 {
		t.Errorf("expected 24h change -3.2, got %v", pair.PriceChange)
	}
	if pair.Txns == nil || pair.Txns.H24 == nil || pair.Txns.H24.Buys == nil || *pair.Txns.H24.Buys != 120 {
		t.Errorf("expected 120 buys, got %v", pair.Txns)
	}
	if pair.PairCreatedAt == nil || *pair.PairCreatedAt != 1755900000000 {
		t.Errorf("expected pairCreatedAt 1755900000000, got %v", pair.PairCreatedAt)
	}
	if pair.Holders != nil {
		t.Errorf("expected absent holders to stay nil, got %v", *pair.Holders)
	}
}

func TestClient_PairsByChain_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL)
	_, err := client.PairsByChain(context.Background(), "bsc")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", apiErr.Status)
	}
}

func TestParsePairs_SingleObject(t *testing.T) {
	pairs, err := parsePairs([]byte(`{"pair": {"chainId": "ethereum", "baseToken": {"address": "0xabc", "name": "Test", "symbol": "TST"}}}`))
	if err != nil {
		t.Fatalf("parsePairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].BaseToken.Name != "Test" {
		t.Errorf("expected base name Test, got %s", pairs[0].BaseToken.Name)
	}
}

func TestParsePairs_EmptyAndNull(t *testing.T) {
	for _, body := range []string{`{"pairs": []}`, `{"pairs": null, "pair": null}`, `{}`} {
		pairs, err := parsePairs([]byte(body))
		if err != nil {
			t.Fatalf("parsePairs(%s): %v", body, err)
		}
		if len(pairs) != 0 {
			t.Errorf("parsePairs(%s): expected 0 pairs, got %d", body, len(pairs))
		}
	}
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: `12.5`, want: 12.5},
		{in: `"0.0003"`, want: 0.0003},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
		{in: `"abc"`, wantErr: true},
		{in: `[1]`, wantErr: true},
	}
	for _, tc := range cases {
		var n Number
		err := json.Unmarshal([]byte(tc.in), &n)
		if tc.wantErr {
			if err == nil {
				t.Errorf("unmarshal %s: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("unmarshal %s: %v", tc.in, err)
			continue
		}
		if float64(n) != tc.want {
			t.Errorf("unmarshal %s: expected %v, got %v", tc.in, tc.want, float64(n))
		}
	}
}
