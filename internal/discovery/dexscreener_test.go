package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tokenwatch/internal/client/dexscreener"
	"tokenwatch/internal/config"
	"tokenwatch/internal/token"
)

func pairJSON(chainID, addr, name string) string {
	return fmt.Sprintf(`{
		"chainId": %q,
		"pairAddress": "pair-%s",
		"baseToken": {"address": %q, "name": %q, "symbol": "TKN"},
		"liquidity": {"usd": 10000},
		"fdv": 100000
	}`, chainID, addr, addr, name)
}

func TestDexscreenerSource_Fetch(t *testing.T) {
	var searchCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/dex/pairs/solana":
			// One good pair, one wrong-chain pair, one duplicate address.
			fmt.Fprintf(w, `{"pairs": [%s, %s, %s]}`,
				pairJSON("solana", "MintA", "Alpha"),
				pairJSON("bsc", "0xwrong", "Wrong Chain"),
				pairJSON("solana", "MintA", "Alpha Again"),
			)
		case "/dex/search":
			searchCalls.Add(1)
			fmt.Fprintf(w, `{"pairs": [%s, %s]}`,
				pairJSON("solana", "MintB", "Beta"),
				pairJSON("ethereum", "0xeth", "Ether Thing"),
			)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source := &DexscreenerSource{
		Client: dexscreener.NewClient(server.Client(), server.URL),
		Config: config.ScanConfig{
			SearchQueries:    []string{"BONK", "PEPE", "WIF"},
			QueriesPerScan:   2,
			MaxPairsPerChain: 100,
		},
	}

	pairs, err := source.Fetch(context.Background(), token.ChainSolana)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := searchCalls.Load(); got != 2 {
		t.Errorf("expected 2 search calls, got %d", got)
	}
	// MintA once (dup dropped), MintB once, wrong-chain pairs dropped.
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	seen := map[string]bool{}
	for _, pair := range pairs {
		seen[pair.BaseToken.Address] = true
		if pair.ChainID != "solana" {
			t.Errorf("unexpected chain %s", pair.ChainID)
		}
	}
	if !seen["MintA"] || !seen["MintB"] {
		t.Errorf("missing expected pairs, got %v", seen)
	}

	health := source.Health()
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %+v", health)
	}
}

func TestDexscreenerSource_FetchAllEndpointsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	source := &DexscreenerSource{
		Client: dexscreener.NewClient(server.Client(), server.URL),
		Config: config.ScanConfig{SearchQueries: []string{"BONK"}, QueriesPerScan: 1},
	}

	pairs, err := source.Fetch(context.Background(), token.ChainBSC)
	if err == nil {
		t.Fatal("expected error when every endpoint fails")
	}
	if len(pairs) != 0 {
		t.Errorf("expected no pairs, got %d", len(pairs))
	}
	health := source.Health()
	if health.Status != "down" {
		t.Errorf("expected down, got %+v", health)
	}
	if health.LastError == nil {
		t.Error("expected last error to be recorded")
	}
}

func TestDexscreenerSource_RotatedQueriesDeterministicPerMinute(t *testing.T) {
	source := &DexscreenerSource{
		Config: config.ScanConfig{
			SearchQueries:  []string{"A", "B", "C", "D", "E", "F"},
			QueriesPerScan: 3,
		},
	}
	now := time.Date(2026, 8, 24, 12, 0, 30, 0, time.UTC)

	first := source.rotatedQueries(token.ChainSolana, now)
	second := source.rotatedQueries(token.ChainSolana, now.Add(10*time.Second))
	if len(first) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected stable selection within a minute: %v vs %v", first, second)
		}
	}

	otherChain := source.rotatedQueries(token.ChainBSC, now)
	sameOrder := len(otherChain) == len(first)
	if sameOrder {
		for i := range first {
			if first[i] != otherChain[i] {
				sameOrder = false
				break
			}
		}
	}
	if sameOrder {
		t.Log("chains drew the same sample this minute; acceptable but unusual")
	}
}
