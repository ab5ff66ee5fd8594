package rugcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Report(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokens/Mint1111/report" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"risks": {
				"tax": {"buy": 3, "sell": 8},
				"honeypot": false,
				"blacklist": false
			},
			"liquidity": {"locked": true},
			"ownership": {"renounced": false}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL)
	report, err := client.Report(context.Background(), "Mint1111")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report == nil {
		t.Fatal("expected report, got nil")
	}

	verdict := report.Verdict()
	if verdict.Honeypot {
		t.Error("expected honeypot false")
	}
	if verdict.TaxPercentage != 8 {
		t.Errorf("expected tax 8 (worse of buy/sell), got %v", verdict.TaxPercentage)
	}
	if !verdict.LiquidityLocked {
		t.Error("expected liquidity locked")
	}
	// tax 8*2=16, ownership not renounced +15
	if verdict.Score != 31 {
		t.Errorf("expected score 31, got %v", verdict.Score)
	}
}

func TestClient_Report_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL)
	report, err := client.Report(context.Background(), "UnknownMint")
	if err != nil {
		t.Fatalf("expected nil error on 404, got %v", err)
	}
	if report != nil {
		t.Fatalf("expected nil report on 404, got %+v", report)
	}
}

func TestClient_Report_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL)
	_, err := client.Report(context.Background(), "Mint1111")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", apiErr.Status)
	}
}

func TestVerdict_Score(t *testing.T) {
	cases := []struct {
		name string
		v    Verdict
		want float64
	}{
		{
			name: "honeypot dominates",
			v:    Verdict{Honeypot: true, LiquidityLocked: true, OwnerRenounced: true},
			want: 50,
		},
		{
			name: "everything wrong caps at 100",
			v:    Verdict{Honeypot: true, Blacklisted: true, TaxPercentage: 99},
			want: 100,
		},
		{
			name: "tax capped at 30",
			v:    Verdict{TaxPercentage: 40, LiquidityLocked: true, OwnerRenounced: true},
			want: 30,
		},
		{
			name: "clean",
			v:    Verdict{LiquidityLocked: true, OwnerRenounced: true},
			want: 0,
		},
	}
	for _, tc := range cases {
		if got := score(tc.v); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
