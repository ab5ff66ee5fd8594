package token

// Tier is the risk classification of a surfaced token. Desirability is
// strictly ordered: ultra_risk < medium_risk < mini_gem < real_gem < premium_gem.
type Tier string

const (
	TierUltraRisk  Tier = "ultra_risk"
	TierMediumRisk Tier = "medium_risk"
	TierMiniGem    Tier = "mini_gem"
	TierRealGem    Tier = "real_gem"
	TierPremiumGem Tier = "premium_gem"
)

// Rank orders tiers for queue priority; higher is better.
func (t Tier) Rank() int {
	switch t {
	case TierUltraRisk:
		return 0
	case TierMediumRisk:
		return 1
	case TierMiniGem:
		return 2
	case TierRealGem:
		return 3
	case TierPremiumGem:
		return 4
	default:
		return -1
	}
}

func (t Tier) Valid() bool {
	return t.Rank() >= 0
}
