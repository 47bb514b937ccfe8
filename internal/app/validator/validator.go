// Package validator implements validator instances and their factory.
// A validator stakes collateral, vouches for users by transferring fee-adjusted
// credits through the credit system, and absorbs penalties when a vouched user
// defaults in a purse.
package validator

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jerrynoah96/ajofi/internal/app/credits"
	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/domain"
	"github.com/jerrynoah96/ajofi/internal/infra/observability"
)

// Validator is one validator operator's instance. It holds staked collateral
// in its own escrow account and tracks the users it vouches for. Instances
// are never destroyed; a validator whose stake is depleted simply starts
// failing penalty transfers.
type Validator struct {
	mu        sync.Mutex
	id        string
	owner     string
	token     string
	feeBps    int64
	createdAt time.Time

	system *credits.System
	bank   *tokens.Bank
	logger *slog.Logger

	vouched map[string]*domain.VouchRecord
}

// ID returns the validator's registered identifier.
func (v *Validator) ID() string { return v.id }

// Owner returns the operator account that created the validator.
func (v *Validator) Owner() string { return v.owner }

// StakedToken returns the collateral token the validator staked.
func (v *Validator) StakedToken() string { return v.token }

// FeeBps returns the validator's vouching fee in basis points.
func (v *Validator) FeeBps() int64 { return v.feeBps }

// CreatedAt returns when the validator was deployed.
func (v *Validator) CreatedAt() time.Time { return v.createdAt }

func (v *Validator) escrowAccount() string { return tokens.EscrowAccount(v.id) }

// StakeBalance returns the collateral currently held in the validator escrow.
func (v *Validator) StakeBalance() int64 {
	return v.bank.BalanceOf(v.token, v.escrowAccount())
}

// IsValidated reports whether the validator currently vouches for user.
func (v *Validator) IsValidated(user string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.vouched[user]
	return ok && rec.Validated
}

// Exposure returns the total face amount of all active vouches.
func (v *Validator) Exposure() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	var total int64
	for _, rec := range v.vouched {
		if rec.Validated {
			total += rec.CreditAmount
		}
	}
	return total
}

// VouchedAmount returns the face amount vouched for a user.
func (v *Validator) VouchedAmount(user string) (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.vouched[user]
	if !ok || !rec.Validated {
		return 0, false
	}
	return rec.CreditAmount, true
}

// ─── Vouching ───────────────────────────────────────────────────────────────

// ValidateUser vouches for a user: the owner's credits fund the user, minus
// the validator's fee, and the user becomes validator-backed. Owner-only.
func (v *Validator) ValidateUser(caller, user string, creditAmount int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return domain.ErrNotAuthorized
	}
	if rec, ok := v.vouched[user]; ok && rec.Validated {
		return domain.ErrAlreadyValidated
	}
	if creditAmount <= 0 || v.system.Balance(v.owner) < creditAmount {
		return domain.ErrInsufficientCredits
	}

	// Claim the user-validator link first; this enforces at most one active
	// validator per user before any credits move.
	if err := v.system.SetUserValidator(v.id, user, v.id); err != nil {
		return err
	}
	fee := domain.VouchFee(creditAmount, v.feeBps)
	granted := creditAmount - fee
	if err := v.system.ReduceCredits(v.id, v.owner, granted); err != nil {
		if clearErr := v.system.SetUserValidator(v.id, user, ""); clearErr != nil {
			v.logger.Warn("unwind validator link failed", "user", user, "err", clearErr)
		}
		return err
	}
	if err := v.system.AssignCredits(v.id, user, granted); err != nil {
		return fmt.Errorf("assign vouched credits: %w", err)
	}

	v.vouched[user] = &domain.VouchRecord{User: user, CreditAmount: creditAmount, Validated: true}
	observability.VouchedUsers.Inc()
	v.logger.Info("user vouched", "validator", v.id, "user", user, "amount", creditAmount, "fee", fee)
	return nil
}

// InvalidateUser withdraws the vouch for a user. Whatever remains of the
// vouched credits is reclaimed to the owner; credits the user already spent
// or lost elsewhere are recorded as a shortfall in the default history
// rather than silently ignored. Owner-only.
func (v *Validator) InvalidateUser(caller, user string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return domain.ErrNotAuthorized
	}
	rec, ok := v.vouched[user]
	if !ok || !rec.Validated {
		return domain.ErrNotValidated
	}

	reclaim := v.system.Balance(user)
	if reclaim > rec.CreditAmount {
		reclaim = rec.CreditAmount
	}
	if reclaim > 0 {
		if err := v.system.ReduceCredits(v.id, user, reclaim); err != nil {
			return fmt.Errorf("reclaim vouched credits: %w", err)
		}
		if err := v.system.AssignCredits(v.id, v.owner, reclaim); err != nil {
			return fmt.Errorf("return vouched credits: %w", err)
		}
	}
	if shortfall := rec.CreditAmount - reclaim; shortfall > 0 {
		if err := v.system.RecordShortfall(v.id, v.id, user, shortfall); err != nil {
			v.logger.Warn("record shortfall failed", "user", user, "err", err)
		}
	}
	if err := v.system.SetUserValidator(v.id, user, ""); err != nil {
		v.logger.Warn("clear validator link failed", "user", user, "err", err)
	}
	rec.Validated = false
	v.logger.Info("user invalidated", "validator", v.id, "user", user, "reclaimed", reclaim)
	return nil
}

// ─── Penalties ──────────────────────────────────────────────────────────────

// HandleDefaulterPenalty transfers staked collateral to the recipient of the
// round the defaulter missed. A self-default (defaulter == recipient) is a
// no-op: the member only forfeits their own payout opportunity. Only the
// registered credit system may call this.
//
// This method takes no validator lock: it reads only immutable fields and the
// bank serializes the transfer itself. The credit system calls in here while
// holding its own lock, and vouching calls out from under the validator lock;
// locking here as well would order the two locks both ways.
func (v *Validator) HandleDefaulterPenalty(caller, defaulter, recipient string, amount int64) error {
	if caller != v.system.ID() {
		return domain.ErrNotAuthorized
	}
	if defaulter == recipient {
		return nil
	}
	if err := v.bank.Transfer(v.token, v.escrowAccount(), recipient, amount); err != nil {
		return fmt.Errorf("penalty transfer: %w", err)
	}
	v.logger.Info("penalty paid", "validator", v.id, "defaulter", defaulter, "recipient", recipient, "amount", amount)
	return nil
}

// ─── Stake Management ───────────────────────────────────────────────────────

// AddStake escrows more collateral and grants the owner credits 1:1,
// preserving the backing between staked collateral and owner credits.
// Owner-only.
func (v *Validator) AddStake(caller string, amount int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return domain.ErrNotAuthorized
	}
	if amount <= 0 {
		return domain.ErrInsufficientBalance
	}
	if err := v.bank.Transfer(v.token, v.owner, v.escrowAccount(), amount); err != nil {
		return err
	}
	if err := v.system.AssignCredits(v.id, v.owner, amount); err != nil {
		return fmt.Errorf("assign stake credits: %w", err)
	}
	return nil
}

// WithdrawStake burns the owner's credits 1:1 and returns collateral.
// Owner-only; fails if either the owner's credits or the escrow are short.
func (v *Validator) WithdrawStake(caller string, amount int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return domain.ErrNotAuthorized
	}
	if amount <= 0 {
		return domain.ErrInsufficientStake
	}
	if v.bank.BalanceOf(v.token, v.escrowAccount()) < amount {
		return domain.ErrInsufficientStake
	}
	if err := v.system.ReduceCredits(v.id, v.owner, amount); err != nil {
		return err
	}
	if err := v.bank.Transfer(v.token, v.escrowAccount(), v.owner, amount); err != nil {
		// Restore the owner's credits if the escrow transfer still failed.
		if assignErr := v.system.AssignCredits(v.id, v.owner, amount); assignErr != nil {
			v.logger.Warn("unwind stake withdrawal failed", "owner", v.owner, "err", assignErr)
		}
		return err
	}
	return nil
}

// Record returns the persistable snapshot of the validator.
func (v *Validator) Record() domain.ValidatorRecord {
	return domain.ValidatorRecord{ID: v.id, Owner: v.owner, Token: v.token, FeeBps: v.feeBps}
}
