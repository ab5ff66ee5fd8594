package safety

import (
	"go.uber.org/zap"

	"tokenwatch/internal/client/rugcheck"
	"tokenwatch/internal/config"
	"tokenwatch/internal/token"
)

// Reject reason identifiers, in filter declaration order. A filter that is
// configured advisory emits the same identifier as a flag instead.
const (
	ReasonLowLiquidity    = "low_liquidity"
	ReasonLowMarketCap    = "low_market_cap"
	ReasonLowVolume       = "low_volume"
	ReasonLowHolders      = "low_holders"
	ReasonLowTransactions = "low_transactions"
	ReasonSingleSided     = "single_sided_trading"
	ReasonHoneypot        = "honeypot"
	ReasonExcessiveTax    = "excessive_tax"
)

// Advisory-only flag identifiers.
const (
	FlagFakeVolumeLiquidity = "fake_volume_liquidity"
	FlagFakeVolumeMarketCap = "fake_volume_market_cap"
	FlagVolumeSpike         = "volume_spike"
	FlagWashTrading         = "wash_trading"
	FlagBotTrading          = "bot_trading"
	FlagBlacklisted         = "blacklisted"
)

const (
	washVolumeFloorUSD = 100_000
	botTxnCeiling24h   = 1440 // one trade per minute, every minute of the day
)

// Result is the outcome of evaluating one snapshot. Passed is true iff no
// blocking filter failed; RejectReasons holds the blocking failures in
// filter declaration order, Flags the advisory ones. Flags accumulate even
// when Passed is true.
type Result struct {
	Snapshot      token.Snapshot
	Passed        bool
	RejectReasons []string
	Flags         []string
}

// FakeVolume reports whether either fake-volume ratio tripped. The
// classifier forces ultra_risk for such tokens regardless of returns.
func (r Result) FakeVolume() bool {
	for _, f := range r.Flags {
		if f == FlagFakeVolumeLiquidity || f == FlagFakeVolumeMarketCap {
			return true
		}
	}
	return false
}

type Evaluator struct {
	Config config.SafetyConfig
	Logger *zap.Logger
}

// Evaluate runs every filter over one snapshot. The rug verdict is optional:
// when nil, the honeypot and tax filters are skipped entirely, so a missing
// report can never block a token on its own.
func (e *Evaluator) Evaluate(snap token.Snapshot, verdict *rugcheck.Verdict) Result {
	res := Result{Snapshot: snap, Passed: true}
	if e == nil {
		return res
	}

	if belowMin(snap.LiquidityUSD, e.Config.MinLiquidityUSD) {
		e.mark(&res, ReasonLowLiquidity, e.Config.LiquidityBlocking)
	}
	if belowMin(snap.MarketCapUSD, e.Config.MinMarketCapUSD) {
		e.mark(&res, ReasonLowMarketCap, e.Config.MarketCapBlocking)
	}
	// Absent volume stays silent: new listings report no volume yet.
	if snap.VolumeUSD24h != nil && *snap.VolumeUSD24h < e.Config.MinVolumeUSD24h {
		e.mark(&res, ReasonLowVolume, e.Config.VolumeBlocking)
	}
	if holderCount(snap) < e.Config.MinHolders {
		e.mark(&res, ReasonLowHolders, e.Config.HoldersBlocking)
	}
	if txns := snap.TxnCount24h(); txns != nil && *txns < e.Config.MinTransactions {
		e.mark(&res, ReasonLowTransactions, e.Config.TransactionsBlocking)
	}
	if singleSided(snap.Buys24h, snap.Sells24h) {
		e.mark(&res, ReasonSingleSided, e.Config.SingleSidedBlocking)
	}
	for _, flag := range e.fakeVolumeFlags(snap) {
		e.mark(&res, flag, false)
	}
	for _, flag := range volumePatternFlags(snap) {
		e.mark(&res, flag, false)
	}
	if verdict != nil {
		if verdict.Honeypot {
			e.mark(&res, ReasonHoneypot, true)
		}
		if verdict.TaxPercentage > e.Config.MaxTaxPercentage {
			e.mark(&res, ReasonExcessiveTax, true)
		}
		if verdict.Blacklisted {
			e.mark(&res, FlagBlacklisted, false)
		}
	}
	return res
}

// mark records one failed filter against the result.
func (e *Evaluator) mark(res *Result, name string, blocking bool) {
	if blocking {
		res.Passed = false
		res.RejectReasons = append(res.RejectReasons, name)
		e.logDebug("safety: reject token",
			zap.String("token", res.Snapshot.Key()),
			zap.String("reason", name))
		return
	}
	res.Flags = append(res.Flags, name)
	e.logDebug("safety: flag token",
		zap.String("token", res.Snapshot.Key()),
		zap.String("flag", name))
}

// fakeVolumeFlags checks 24h volume against multiples of liquidity and
// market cap. Each ratio needs its denominator reported and positive.
func (e *Evaluator) fakeVolumeFlags(snap token.Snapshot) []string {
	if snap.VolumeUSD24h == nil {
		return nil
	}
	vol := *snap.VolumeUSD24h
	var flags []string
	if mult := e.Config.VolumeLiquidityMultiple; mult > 0 && snap.LiquidityUSD != nil && *snap.LiquidityUSD > 0 && vol > *snap.LiquidityUSD*mult {
		flags = append(flags, FlagFakeVolumeLiquidity)
	}
	if mult := e.Config.VolumeMarketCapMultiple; mult > 0 && snap.MarketCapUSD != nil && *snap.MarketCapUSD > 0 && vol > *snap.MarketCapUSD*mult {
		flags = append(flags, FlagFakeVolumeMarketCap)
	}
	return flags
}

func (e *Evaluator) logDebug(msg string, fields ...zap.Field) {
	if e == nil || e.Logger == nil {
		return
	}
	e.Logger.Debug(msg, fields...)
}

// belowMin treats an absent value as zero, so blocking filters fail on
// missing data unless their minimum is zero.
func belowMin(v *float64, min float64) bool {
	val := 0.0
	if v != nil {
		val = *v
	}
	return val < min
}

func holderCount(snap token.Snapshot) int {
	if snap.HolderCount == nil {
		return 0
	}
	return *snap.HolderCount
}

// singleSided needs both sides reported to call the imbalance.
func singleSided(buys, sells *int) bool {
	if buys == nil || sells == nil {
		return false
	}
	return (*buys == 0 && *sells > 0) || (*sells == 0 && *buys > 0)
}

// volumePatternFlags applies manipulation heuristics over the volume
// windows and transaction counts.
func volumePatternFlags(snap token.Snapshot) []string {
	var flags []string
	if volumeSpike(snap.VolumeUSD1h, snap.VolumeUSD6h, snap.VolumeUSD24h) {
		flags = append(flags, FlagVolumeSpike)
	}
	if washTrading(snap.Buys24h, snap.Sells24h, snap.VolumeUSD24h) {
		flags = append(flags, FlagWashTrading)
	}
	if botTrading(snap) {
		flags = append(flags, FlagBotTrading)
	}
	return flags
}

// volumeSpike fires when recent volume is concentrated out of proportion:
// over half the 6h volume inside the last hour, or over 80% of the 24h
// volume inside the last six.
func volumeSpike(v1, v6, v24 *float64) bool {
	if v1 != nil && v6 != nil && *v1 > 0 && *v6 > 0 && *v1 > *v6*0.5 {
		return true
	}
	if v6 != nil && v24 != nil && *v6 > 0 && *v24 > 0 && *v6 > *v24*0.8 {
		return true
	}
	return false
}

// washTrading fires on near-perfectly balanced buys and sells at high
// volume, or on thousands of sub-$100 trades.
func washTrading(buys, sells *int, vol24 *float64) bool {
	if buys == nil || sells == nil {
		return false
	}
	b, s := *buys, *sells
	if b > 0 && s > 0 && vol24 != nil && *vol24 > washVolumeFloorUSD {
		ratio := float64(b) / float64(s)
		if ratio >= 0.95 && ratio <= 1.05 {
			return true
		}
	}
	total := b + s
	if total > 1000 && vol24 != nil && *vol24 > 0 && *vol24/float64(total) < 100 {
		return true
	}
	return false
}

// botTrading fires on transaction cadences no organic market produces:
// more trades than minutes in a day, or hourly volume tracking exactly
// 1/24 of the daily total.
func botTrading(snap token.Snapshot) bool {
	if txns := snap.TxnCount24h(); txns != nil && *txns > botTxnCeiling24h {
		return true
	}
	v1, v24 := snap.VolumeUSD1h, snap.VolumeUSD24h
	if v1 == nil || v24 == nil || *v1 <= 0 || *v24 <= 0 {
		return false
	}
	expected := *v24 / 24
	diff := *v1 - expected
	if diff < 0 {
		diff = -diff
	}
	return diff/expected < 0.1
}
