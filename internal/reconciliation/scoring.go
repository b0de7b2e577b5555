package reconciliation

import (
	"fmt"
	"time"
)

// Policy holds the match-scoring weights and classification thresholds.
// The defaults reflect current ops practice; they are tunables, not law,
// and can be overridden from configuration.
type Policy struct {
	AmountWeight    int `json:"amount_weight"`
	CurrencyWeight  int `json:"currency_weight"`
	ReferenceWeight int `json:"reference_weight"`
	DateWeight      int `json:"date_weight"`

	// AutoMatchThreshold and above auto-matches; ReviewThreshold and above
	// (but below auto-match) runs discrepancy detection; below goes to
	// manual review.
	AutoMatchThreshold int `json:"auto_match_threshold"`
	ReviewThreshold    int `json:"review_threshold"`

	// Settlement-date proximity credit: full weight within FullDateCredit,
	// half weight within HalfDateCredit, zero beyond.
	FullDateCredit time.Duration `json:"full_date_credit"`
	HalfDateCredit time.Duration `json:"half_date_credit"`
}

// DefaultPolicy returns the standard 40/20/30/10 weighting with 95/80
// thresholds and 1-day/3-day date windows.
func DefaultPolicy() Policy {
	return Policy{
		AmountWeight:       40,
		CurrencyWeight:     20,
		ReferenceWeight:    30,
		DateWeight:         10,
		AutoMatchThreshold: 95,
		ReviewThreshold:    80,
		FullDateCredit:     24 * time.Hour,
		HalfDateCredit:     72 * time.Hour,
	}
}

// TotalWeight returns the sum of all factor weights.
func (p Policy) TotalWeight() int {
	return p.AmountWeight + p.CurrencyWeight + p.ReferenceWeight + p.DateWeight
}

// Validate rejects policies that cannot produce a meaningful score.
func (p Policy) Validate() error {
	if p.AmountWeight < 0 || p.CurrencyWeight < 0 || p.ReferenceWeight < 0 || p.DateWeight < 0 {
		return fmt.Errorf("scoring weights must not be negative")
	}
	if p.TotalWeight() == 0 {
		return fmt.Errorf("scoring weights must not all be zero")
	}
	if p.AutoMatchThreshold < p.ReviewThreshold {
		return fmt.Errorf("auto-match threshold %d below review threshold %d",
			p.AutoMatchThreshold, p.ReviewThreshold)
	}
	if p.AutoMatchThreshold > 100 || p.ReviewThreshold < 0 {
		return fmt.Errorf("thresholds must fall within 0-100")
	}
	return nil
}
