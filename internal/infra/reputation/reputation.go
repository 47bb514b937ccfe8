// Package reputation scores validator trustworthiness from observable
// protocol state.
//
// Each validator has 3 reputation components:
//   - Reliability: how much of the credit it vouched has never defaulted
//   - Coverage: staked collateral relative to outstanding vouched exposure
//   - Longevity: how long the validator has been operating
//
// Overall = 0.45×reliability + 0.35×coverage + 0.20×longevity
//
// Scores are derived, never stored: the default history, the vouch book, and
// the stake escrow are the state of record, so the score cannot drift from
// the ledger it summarizes.
package reputation

import (
	"time"
)

// ─── Constants ──────────────────────────────────────────────────────────────

const (
	// Component weights (sum to 1.0).
	WeightReliability = 0.45
	WeightCoverage    = 0.35
	WeightLongevity   = 0.20

	// NeutralScore is used when a component has no evidence yet.
	NeutralScore = 0.5

	// FloorScore is the minimum overall score.
	FloorScore = 0.1

	// CeilingScore is the absolute maximum.
	CeilingScore = 1.0

	// LongevityFullDays is how many operating days earn the maximum
	// longevity score.
	LongevityFullDays = 180
)

// ─── Types ──────────────────────────────────────────────────────────────────

// Snapshot is the observable state a score is computed from.
type Snapshot struct {
	VouchedAmount int64     `json:"vouched_amount"` // outstanding face amount vouched
	DefaultTotal  int64     `json:"default_total"`  // cumulative defaults charged
	StakeBalance  int64     `json:"stake_balance"`  // collateral currently escrowed
	ActiveSince   time.Time `json:"active_since"`
}

// Components holds the individual reputation components, each in [0, 1].
type Components struct {
	Reliability float64 `json:"reliability"`
	Coverage    float64 `json:"coverage"`
	Longevity   float64 `json:"longevity"`
}

// Score is a validator's computed reputation.
type Score struct {
	Components Components `json:"components"`
	Overall    float64    `json:"overall"`
	Tier       string     `json:"tier"`
}

// ─── Scoring ────────────────────────────────────────────────────────────────

// Evaluate computes the reputation score for a snapshot at the given time.
func Evaluate(s Snapshot, now time.Time) Score {
	c := Components{
		Reliability: reliability(s),
		Coverage:    coverage(s),
		Longevity:   longevity(s, now),
	}
	overall := WeightReliability*c.Reliability +
		WeightCoverage*c.Coverage +
		WeightLongevity*c.Longevity
	overall = clamp(overall, FloorScore, CeilingScore)
	return Score{Components: c, Overall: overall, Tier: tier(overall)}
}

// reliability is the share of all credit the validator ever stood behind
// that did not end in a default.
func reliability(s Snapshot) float64 {
	exposure := s.VouchedAmount + s.DefaultTotal
	if exposure <= 0 {
		return NeutralScore
	}
	return float64(s.VouchedAmount) / float64(exposure)
}

// coverage compares the stake escrow against the outstanding vouched
// exposure. A validator with nothing vouched is fully covered.
func coverage(s Snapshot) float64 {
	if s.VouchedAmount <= 0 {
		return 1.0
	}
	if s.StakeBalance <= 0 {
		return 0
	}
	ratio := float64(s.StakeBalance) / float64(s.VouchedAmount)
	if ratio > 1 {
		return 1
	}
	return ratio
}

func longevity(s Snapshot, now time.Time) float64 {
	if s.ActiveSince.IsZero() || now.Before(s.ActiveSince) {
		return 0
	}
	days := now.Sub(s.ActiveSince).Hours() / 24
	if days >= LongevityFullDays {
		return 1
	}
	return days / LongevityFullDays
}

// tier returns a human label for the trust level.
func tier(overall float64) string {
	switch {
	case overall >= 0.9:
		return "EXCELLENT"
	case overall >= 0.7:
		return "GOOD"
	case overall >= 0.5:
		return "NEUTRAL"
	case overall >= 0.3:
		return "LOW"
	default:
		return "UNTRUSTED"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
