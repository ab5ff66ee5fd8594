package rugcheck

// Report is the raw risk report for one token.
type Report struct {
	Risks     *Risks     `json:"risks"`
	Liquidity *Liquidity `json:"liquidity"`
	Ownership *Ownership `json:"ownership"`
}

type Risks struct {
	Tax       *Tax  `json:"tax"`
	Honeypot  *bool `json:"honeypot"`
	Blacklist *bool `json:"blacklist"`
}

type Tax struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

type Liquidity struct {
	Locked *bool `json:"locked"`
}

type Ownership struct {
	Renounced *bool `json:"renounced"`
}

// Verdict is the distilled form the safety evaluator consumes.
type Verdict struct {
	Honeypot        bool
	Blacklisted     bool
	TaxPercentage   float64
	LiquidityLocked bool
	OwnerRenounced  bool
	Score           float64
}

// Verdict flattens a report. Tax is the worse of buy and sell. Missing
// sections default pessimistically for liquidity lock and ownership, matching
// how an absent claim is scored.
func (r *Report) Verdict() Verdict {
	var v Verdict
	if r == nil {
		return v
	}
	if r.Risks != nil {
		if r.Risks.Tax != nil {
			v.TaxPercentage = r.Risks.Tax.Buy
			if r.Risks.Tax.Sell > v.TaxPercentage {
				v.TaxPercentage = r.Risks.Tax.Sell
			}
		}
		if r.Risks.Honeypot != nil {
			v.Honeypot = *r.Risks.Honeypot
		}
		if r.Risks.Blacklist != nil {
			v.Blacklisted = *r.Risks.Blacklist
		}
	}
	if r.Liquidity != nil && r.Liquidity.Locked != nil {
		v.LiquidityLocked = *r.Liquidity.Locked
	}
	if r.Ownership != nil && r.Ownership.Renounced != nil {
		v.OwnerRenounced = *r.Ownership.Renounced
	}
	v.Score = score(v)
	return v
}

// score weighs the individual findings into a 0-100 risk score.
func score(v Verdict) float64 {
	total := 0.0
	if v.Honeypot {
		total += 50
	}
	if v.Blacklisted {
		total += 40
	}
	if v.TaxPercentage > 0 {
		taxScore := v.TaxPercentage * 2
		if taxScore > 30 {
			taxScore = 30
		}
		total += taxScore
	}
	if !v.LiquidityLocked {
		total += 20
	}
	if !v.OwnerRenounced {
		total += 15
	}
	if total > 100 {
		total = 100
	}
	return total
}
