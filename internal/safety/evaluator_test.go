package safety

import (
	"reflect"
	"testing"

	"tokenwatch/internal/client/rugcheck"
	"tokenwatch/internal/config"
	"tokenwatch/internal/token"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func baseConfig() config.SafetyConfig {
	return config.SafetyConfig{
		MinLiquidityUSD:         1_000,
		MinMarketCapUSD:         10_000,
		MinVolumeUSD24h:         50,
		MinHolders:              10,
		MinTransactions:         5,
		MaxTaxPercentage:        10,
		VolumeLiquidityMultiple: 20,
		VolumeMarketCapMultiple: 10,
		LiquidityBlocking:       true,
		MarketCapBlocking:       true,
		HoldersBlocking:         true,
	}
}

func cleanSnapshot() token.Snapshot {
	return token.Snapshot{
		Chain:        token.ChainSolana,
		Address:      "MintSafe1111",
		Name:         "Clean Token",
		Symbol:       "CLEAN",
		LiquidityUSD: fptr(50_000),
		MarketCapUSD: fptr(200_000),
		VolumeUSD1h:  fptr(5_000),
		VolumeUSD6h:  fptr(30_000),
		VolumeUSD24h: fptr(50_000),
		Buys24h:      iptr(30),
		Sells24h:     iptr(20),
		HolderCount:  iptr(40),
	}
}

func TestEvaluate_CleanTokenPasses(t *testing.T) {
	e := &Evaluator{Config: baseConfig()}
	res := e.Evaluate(cleanSnapshot(), nil)
	if !res.Passed {
		t.Fatalf("passed=false reasons=%v", res.RejectReasons)
	}
	if len(res.RejectReasons) != 0 || len(res.Flags) != 0 {
		t.Fatalf("reasons=%v flags=%v want none", res.RejectReasons, res.Flags)
	}
}

func TestEvaluate_RejectReasonOrder(t *testing.T) {
	snap := cleanSnapshot()
	snap.LiquidityUSD = fptr(100)
	snap.MarketCapUSD = fptr(5_000)
	snap.VolumeUSD1h = nil
	snap.VolumeUSD6h = nil
	snap.VolumeUSD24h = nil
	snap.Buys24h = nil
	snap.Sells24h = nil
	snap.HolderCount = iptr(2)
	verdict := &rugcheck.Verdict{Honeypot: true, TaxPercentage: 25}

	e := &Evaluator{Config: baseConfig()}
	res := e.Evaluate(snap, verdict)
	if res.Passed {
		t.Fatal("passed=true want false")
	}
	want := []string{ReasonLowLiquidity, ReasonLowMarketCap, ReasonLowHolders, ReasonHoneypot, ReasonExcessiveTax}
	if !reflect.DeepEqual(res.RejectReasons, want) {
		t.Fatalf("reasons=%v want=%v", res.RejectReasons, want)
	}
}

func TestEvaluate_AbsentFieldSemantics(t *testing.T) {
	cfg := baseConfig()
	cfg.VolumeBlocking = true

	// No volume reported: the volume filter stays silent even when blocking.
	snap := cleanSnapshot()
	snap.VolumeUSD1h = nil
	snap.VolumeUSD6h = nil
	snap.VolumeUSD24h = nil
	res := (&Evaluator{Config: cfg}).Evaluate(snap, nil)
	if !res.Passed {
		t.Fatalf("absent volume rejected: %v", res.RejectReasons)
	}

	// Absent holders count as zero and fail the blocking holders filter.
	snap = cleanSnapshot()
	snap.HolderCount = nil
	res = (&Evaluator{Config: baseConfig()}).Evaluate(snap, nil)
	if res.Passed {
		t.Fatal("absent holders passed with min_holders=10")
	}
	if len(res.RejectReasons) != 1 || res.RejectReasons[0] != ReasonLowHolders {
		t.Fatalf("reasons=%v want=[%s]", res.RejectReasons, ReasonLowHolders)
	}

	// Absent liquidity fails the blocking liquidity filter.
	snap = cleanSnapshot()
	snap.LiquidityUSD = nil
	res = (&Evaluator{Config: baseConfig()}).Evaluate(snap, nil)
	if res.Passed || res.RejectReasons[0] != ReasonLowLiquidity {
		t.Fatalf("passed=%v reasons=%v", res.Passed, res.RejectReasons)
	}
}

func TestEvaluate_AdvisoryBecomesBlocking(t *testing.T) {
	snap := cleanSnapshot()
	snap.Buys24h = iptr(30)
	snap.Sells24h = iptr(0)

	res := (&Evaluator{Config: baseConfig()}).Evaluate(snap, nil)
	if !res.Passed {
		t.Fatalf("single-sided blocked by default: %v", res.RejectReasons)
	}
	if len(res.Flags) != 1 || res.Flags[0] != ReasonSingleSided {
		t.Fatalf("flags=%v want=[%s]", res.Flags, ReasonSingleSided)
	}

	cfg := baseConfig()
	cfg.SingleSidedBlocking = true
	res = (&Evaluator{Config: cfg}).Evaluate(snap, nil)
	if res.Passed {
		t.Fatal("single-sided passed with blocking enabled")
	}
	if len(res.RejectReasons) != 1 || res.RejectReasons[0] != ReasonSingleSided {
		t.Fatalf("reasons=%v want=[%s]", res.RejectReasons, ReasonSingleSided)
	}
}

func TestEvaluate_LowVolumeAdvisoryFlag(t *testing.T) {
	snap := cleanSnapshot()
	snap.VolumeUSD1h = nil
	snap.VolumeUSD6h = nil
	snap.VolumeUSD24h = fptr(20)

	res := (&Evaluator{Config: baseConfig()}).Evaluate(snap, nil)
	if !res.Passed {
		t.Fatalf("advisory volume blocked: %v", res.RejectReasons)
	}
	found := false
	for _, f := range res.Flags {
		if f == ReasonLowVolume {
			found = true
		}
	}
	if !found {
		t.Fatalf("flags=%v want contains %s", res.Flags, ReasonLowVolume)
	}
}

func TestEvaluate_FakeVolumeFlags(t *testing.T) {
	snap := cleanSnapshot()
	snap.LiquidityUSD = fptr(2_000)
	snap.VolumeUSD24h = fptr(50_000) // 25x liquidity
	snap.VolumeUSD1h = nil
	snap.VolumeUSD6h = nil

	res := (&Evaluator{Config: baseConfig()}).Evaluate(snap, nil)
	if !res.Passed {
		t.Fatalf("fake volume blocked: %v", res.RejectReasons)
	}
	if !res.FakeVolume() {
		t.Fatalf("FakeVolume()=false flags=%v", res.Flags)
	}
	if res.Flags[0] != FlagFakeVolumeLiquidity {
		t.Fatalf("flags=%v want first=%s", res.Flags, FlagFakeVolumeLiquidity)
	}

	snap = cleanSnapshot()
	snap.MarketCapUSD = fptr(100_000)
	snap.VolumeUSD24h = fptr(1_500_000) // 15x market cap, under 20x liquidity
	snap.LiquidityUSD = fptr(100_000)
	snap.VolumeUSD1h = nil
	snap.VolumeUSD6h = nil
	res = (&Evaluator{Config: baseConfig()}).Evaluate(snap, nil)
	if !res.FakeVolume() {
		t.Fatalf("FakeVolume()=false flags=%v", res.Flags)
	}
}

func TestEvaluate_BlacklistedIsAdvisory(t *testing.T) {
	res := (&Evaluator{Config: baseConfig()}).Evaluate(cleanSnapshot(), &rugcheck.Verdict{Blacklisted: true, TaxPercentage: 2})
	if !res.Passed {
		t.Fatalf("blacklist blocked: %v", res.RejectReasons)
	}
	if len(res.Flags) != 1 || res.Flags[0] != FlagBlacklisted {
		t.Fatalf("flags=%v want=[%s]", res.Flags, FlagBlacklisted)
	}
}

func TestSingleSided(t *testing.T) {
	cases := []struct {
		name  string
		buys  *int
		sells *int
		want  bool
	}{
		{"both active", iptr(10), iptr(5), false},
		{"only buys", iptr(10), iptr(0), true},
		{"only sells", iptr(0), iptr(7), true},
		{"both zero", iptr(0), iptr(0), false},
		{"missing side", iptr(10), nil, false},
		{"missing both", nil, nil, false},
	}
	for _, tc := range cases {
		if got := singleSided(tc.buys, tc.sells); got != tc.want {
			t.Errorf("%s: got=%v want=%v", tc.name, got, tc.want)
		}
	}
}

func TestVolumeSpike(t *testing.T) {
	if !volumeSpike(fptr(600), fptr(1_000), fptr(10_000)) {
		t.Error("1h at 60% of 6h not flagged")
	}
	if !volumeSpike(fptr(100), fptr(9_000), fptr(10_000)) {
		t.Error("6h at 90% of 24h not flagged")
	}
	if volumeSpike(fptr(100), fptr(1_000), fptr(10_000)) {
		t.Error("steady volume flagged")
	}
	if volumeSpike(nil, nil, fptr(10_000)) {
		t.Error("absent windows flagged")
	}
}

func TestWashTrading(t *testing.T) {
	if !washTrading(iptr(100), iptr(99), fptr(150_000)) {
		t.Error("balanced high volume not flagged")
	}
	if washTrading(iptr(100), iptr(99), fptr(50_000)) {
		t.Error("balanced low volume flagged")
	}
	if washTrading(iptr(100), iptr(40), fptr(150_000)) {
		t.Error("lopsided flow flagged")
	}
	if !washTrading(iptr(800), iptr(400), fptr(60_000)) {
		t.Error("1200 trades averaging $50 not flagged")
	}
	if washTrading(nil, iptr(99), fptr(150_000)) {
		t.Error("absent buys flagged")
	}
}

func TestBotTrading(t *testing.T) {
	snap := token.Snapshot{Buys24h: iptr(1_000), Sells24h: iptr(500)}
	if !botTrading(snap) {
		t.Error("1500 trades in 24h not flagged")
	}
	snap = token.Snapshot{VolumeUSD1h: fptr(1_000), VolumeUSD24h: fptr(24_000)}
	if !botTrading(snap) {
		t.Error("exact 1/24 hourly volume not flagged")
	}
	snap = token.Snapshot{VolumeUSD1h: fptr(5_000), VolumeUSD24h: fptr(24_000)}
	if botTrading(snap) {
		t.Error("uneven hourly volume flagged")
	}
}
