// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Credit Ledger Types ────────────────────────────────────────────────────

// StakePosition records the provenance of credits earned by staking collateral.
// Repeated stakes of the same token accumulate into one position and refresh
// the timestamp; unstaking burns credits pro-rata to the principal withdrawn.
type StakePosition struct {
	User          string    `json:"user"`
	Token         string    `json:"token"`
	Amount        int64     `json:"amount"`
	CreditsIssued int64     `json:"credits_issued"`
	StakedAt      time.Time `json:"staked_at"`
}

// CreditsOwed returns the credits that must be burned to withdraw the given
// principal. Withdrawing the full principal burns exactly CreditsIssued.
func (s StakePosition) CreditsOwed(withdraw int64) int64 {
	if s.Amount == 0 {
		return 0
	}
	if withdraw >= s.Amount {
		return s.CreditsIssued
	}
	return s.CreditsIssued * withdraw / s.Amount
}

// Commitment is a block of credits earmarked for one user's membership in one
// purse. Committed credits are mutually exclusive with the free balance:
// committing moves them out of the balance into this record.
type Commitment struct {
	User             string `json:"user"`
	PurseID          string `json:"purse_id"`
	Amount           int64  `json:"amount"`
	BackingValidator string `json:"backing_validator,omitempty"` // empty when self-staked
	Active           bool   `json:"active"`
}

// VouchRecord is a validator's record of one vouched user. CreditAmount is the
// face amount vouched (pre-fee), used to compute the shortfall on invalidation.
type VouchRecord struct {
	User         string `json:"user"`
	CreditAmount int64  `json:"credit_amount"`
	Validated    bool   `json:"validated"`
}

// DefaultRecord is one row of the cumulative default history for a
// (validator, user) pair. Amounts only ever grow; this is an audit trail.
type DefaultRecord struct {
	Validator string `json:"validator"`
	User      string `json:"user"`
	Amount    int64  `json:"amount"`
}

// ─── Validator Types ────────────────────────────────────────────────────────

// FeeBpsDenominator is the basis-point denominator for validator fees.
const FeeBpsDenominator = 10_000

// ValidatorRecord is the persistable snapshot of a validator instance.
type ValidatorRecord struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Token  string `json:"token"`
	FeeBps int64  `json:"fee_bps"`
}

// VouchFee returns the validator's cut, in credits, of a vouched amount.
func VouchFee(creditAmount, feeBps int64) int64 {
	return creditAmount * feeBps / FeeBpsDenominator
}

// ─── Default Resolution Types ───────────────────────────────────────────────

// DefaultOutcome reports how one defaulting member was handled during round
// resolution. A failed penalty transfer is recorded here rather than aborting
// the rest of the batch.
type DefaultOutcome struct {
	User        string `json:"user"`
	Amount      int64  `json:"amount"`
	PenaltyPaid bool   `json:"penalty_paid"`
	Reason      string `json:"reason,omitempty"` // set when PenaltyPaid is false
}

// ResolutionReport summarizes one call to a purse's round resolution.
type ResolutionReport struct {
	PurseID   string           `json:"purse_id"`
	Round     int              `json:"round"`
	Recipient string           `json:"recipient"`
	Collected int64            `json:"collected"`
	Defaults  []DefaultOutcome `json:"defaults"`
}
