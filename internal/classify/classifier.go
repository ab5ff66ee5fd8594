package classify

import (
	"go.uber.org/zap"

	"tokenwatch/internal/config"
	"tokenwatch/internal/safety"
	"tokenwatch/internal/token"
)

type Classifier struct {
	Config config.ClassifierConfig
	Logger *zap.Logger
}

// Classify maps one snapshot plus its advisory flags onto a risk tier via a
// fixed decision table, evaluated top-down with first match winning:
//
//  1. manipulation flag (fake volume, wash trading) -> ultra_risk
//  2. all three price changes present and negative -> ultra_risk
//  3. 1h above threshold but the longer windows neither both above their
//     thresholds nor both positive -> medium_risk
//  4. 1h and 6h above threshold, 24h below its threshold -> mini_gem
//  5. all three above threshold -> real_gem, or premium_gem for tokens
//     clearing the premium market-cap and volume floors
//  6. anything else, including missing price data -> medium_risk
//
// Threshold comparisons are inclusive; the all-negative rule is strict.
func (c *Classifier) Classify(snap token.Snapshot, flags []string) token.Tier {
	tier := c.decide(snap, flags)
	c.logDebug("classify: tier decided",
		zap.String("token", snap.Key()),
		zap.String("tier", string(tier)))
	return tier
}

func (c *Classifier) decide(snap token.Snapshot, flags []string) token.Tier {
	if hasManipulationFlag(flags) {
		return token.TierUltraRisk
	}

	p1, p6, p24 := snap.PriceChange1h, snap.PriceChange6h, snap.PriceChange24h
	if p1 != nil && p6 != nil && p24 != nil && *p1 < 0 && *p6 < 0 && *p24 < 0 {
		return token.TierUltraRisk
	}

	hit1 := p1 != nil && *p1 >= c.Config.Threshold1hPct
	hit6 := p6 != nil && *p6 >= c.Config.Threshold6hPct
	hit24 := p24 != nil && *p24 >= c.Config.Threshold24hPct
	pos6 := p6 != nil && *p6 > 0
	pos24 := p24 != nil && *p24 > 0

	if hit1 && !(hit6 && hit24) && !(pos6 && pos24) {
		return token.TierMediumRisk
	}
	if hit1 && hit6 && p24 != nil && *p24 < c.Config.Threshold24hPct {
		return token.TierMiniGem
	}
	if hit1 && hit6 && hit24 {
		if c.premium(snap) {
			return token.TierPremiumGem
		}
		return token.TierRealGem
	}
	return token.TierMediumRisk
}

// premium requires both floors met: inclusive on market cap, strict on
// volume. Absent values never qualify.
func (c *Classifier) premium(snap token.Snapshot) bool {
	if snap.MarketCapUSD == nil || snap.VolumeUSD24h == nil {
		return false
	}
	return *snap.MarketCapUSD >= c.Config.PremiumMarketCapUSD &&
		*snap.VolumeUSD24h > c.Config.PremiumVolumeUSD
}

func (c *Classifier) logDebug(msg string, fields ...zap.Field) {
	if c == nil || c.Logger == nil {
		return
	}
	c.Logger.Debug(msg, fields...)
}

func hasManipulationFlag(flags []string) bool {
	for _, f := range flags {
		switch f {
		case safety.FlagFakeVolumeLiquidity, safety.FlagFakeVolumeMarketCap, safety.FlagWashTrading:
			return true
		}
	}
	return false
}
