// Package observability registers the Prometheus metrics exported by the
// protocol services. Metrics are scraped from the daemon's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Credit System Metrics ──────────────────────────────────────────────────

var (
	// CreditsInCirculation is the sum of all free credit balances.
	CreditsInCirculation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ajofi_credits_in_circulation",
		Help: "Sum of all free (spendable) credit balances.",
	})

	// CommittedCredits is the sum of all active purse commitments.
	CommittedCredits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ajofi_committed_credits",
		Help: "Sum of credits committed to active purse memberships.",
	})

	// StakedCollateral is the collateral held in the credit system escrow.
	StakedCollateral = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ajofi_staked_collateral",
		Help: "Collateral staked into the credit system, by token.",
	}, []string{"token"})

	// DefaultsRecorded counts defaulter penalties processed.
	DefaultsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajofi_defaults_recorded_total",
		Help: "Total defaulter penalties processed by the credit system.",
	})

	// PenaltyFailures counts validator penalty calls that failed and were
	// isolated during round resolution.
	PenaltyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajofi_penalty_failures_total",
		Help: "Validator penalty transfers that failed and were recorded instead of applied.",
	})
)

// ─── Validator Metrics ──────────────────────────────────────────────────────

var (
	// ActiveValidators is the number of validator instances in the registry.
	ActiveValidators = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ajofi_active_validators",
		Help: "Validator instances created by the factory.",
	})

	// VouchedUsers counts vouch operations performed.
	VouchedUsers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajofi_vouches_total",
		Help: "Total vouch operations performed by validators.",
	})
)

// ─── Purse Metrics ──────────────────────────────────────────────────────────

var (
	// ActivePurses is the number of purses currently in the ACTIVE state.
	ActivePurses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ajofi_active_purses",
		Help: "Purses currently running contribution rounds.",
	})

	// Payouts counts round payouts made.
	Payouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajofi_payouts_total",
		Help: "Total round payouts transferred to recipients.",
	})

	// RoundsResolved counts rounds closed via timeout resolution.
	RoundsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ajofi_rounds_resolved_total",
		Help: "Rounds closed by timeout resolution rather than full contribution.",
	})
)
