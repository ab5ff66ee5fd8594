package safety

import (
	"math"

	"tokenwatch/internal/client/rugcheck"
	"tokenwatch/internal/config"
	"tokenwatch/internal/token"
)

// RiskScore grades a token from 0 to 100, higher meaning riskier. The
// weights favor the cheap signals available at scan time: transfer tax,
// thin liquidity, small cap, dead volume and a honeypot verdict. Absent
// numeric fields count as zero, which puts unreported tokens at the risky
// end of each band.
func RiskScore(snap token.Snapshot, verdict *rugcheck.Verdict, cfg config.SafetyConfig) float64 {
	score := 0.0

	if verdict != nil {
		score += math.Min(verdict.TaxPercentage*2, 30)
		if verdict.Honeypot {
			score += 50
		}
	}

	liq := 0.0
	if snap.LiquidityUSD != nil {
		liq = *snap.LiquidityUSD
	}
	switch {
	case liq < cfg.MinLiquidityUSD:
		score += 20
	case liq < cfg.MinLiquidityUSD*2:
		score += 10
	}

	mcap := 0.0
	if snap.MarketCapUSD != nil {
		mcap = *snap.MarketCapUSD
	}
	switch {
	case mcap < 100_000:
		score += 15
	case mcap < 500_000:
		score += 10
	case mcap < 1_000_000:
		score += 5
	}

	vol := 0.0
	if snap.VolumeUSD24h != nil {
		vol = *snap.VolumeUSD24h
	}
	if vol < 1_000 {
		score += 10
	}

	return math.Min(score, 100)
}
