package credits

import (
	"github.com/jerrynoah96/ajofi/internal/domain"
	"github.com/jerrynoah96/ajofi/internal/infra/observability"
)

// CommitCreditsToPurse moves credits from a user's free balance into an
// earmarked commitment for one purse. Callable only by the registered purse.
func (s *System) CommitCreditsToPurse(caller, user, purseID string, amount int64, validator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.purses[caller] && caller != s.cfg.Admin {
		return domain.ErrNotAuthorized
	}
	if !s.purses[purseID] {
		return domain.ErrUnknownPurse
	}
	if validator != "" {
		if _, ok := s.validators[validator]; !ok {
			return domain.ErrUnknownValidator
		}
	}
	key := commitKey{user, purseID}
	if c, ok := s.commitments[key]; ok && c.Active {
		return domain.ErrCommitmentExists
	}
	if amount <= 0 || s.balances[user] < amount {
		return domain.ErrInsufficientCredits
	}

	s.debit(user, amount)
	s.commitments[key] = &domain.Commitment{
		User:             user,
		PurseID:          purseID,
		Amount:           amount,
		BackingValidator: validator,
		Active:           true,
	}
	observability.CommittedCredits.Add(float64(amount))
	s.journalEntry(domain.TxCommit, domain.EntryDebit, user, amount, purseID, "committed to purse")
	s.journalCommitment(*s.commitments[key])
	return nil
}

// ReleasePurseCredits returns a commitment's remaining credits and marks it
// inactive. The beneficiary is the backing validator's owner when the
// membership was validator-backed, otherwise the user. Releasing an inactive
// commitment fails — the guard that makes release idempotent.
func (s *System) ReleasePurseCredits(caller, user, purseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.purses[caller] && caller != s.cfg.Admin {
		return domain.ErrNotAuthorized
	}
	key := commitKey{user, purseID}
	c, ok := s.commitments[key]
	if !ok || !c.Active {
		return domain.ErrCommitmentInactive
	}

	beneficiary := user
	if c.BackingValidator != "" {
		if v, ok := s.validators[c.BackingValidator]; ok {
			beneficiary = v.Owner()
		}
	}
	c.Active = false
	if c.Amount > 0 {
		s.credit(beneficiary, c.Amount)
		observability.CommittedCredits.Sub(float64(c.Amount))
	}
	s.journalEntry(domain.TxRelease, domain.EntryCredit, beneficiary, c.Amount, purseID, "commitment released")
	s.journalCommitment(*c)
	return nil
}

// HandleUserDefault resolves one member's failure to contribute. Callable
// only by the purse the commitment belongs to. On success the committed
// credits are debited, the default history grows, and the backing validator
// transfers the penalty to the round recipient.
//
// A failed validator transfer is caught and reported in the outcome rather
// than returned as an error: one insolvent validator must not halt the rest
// of a round's resolution. Credits are not debited on failure.
func (s *System) HandleUserDefault(caller, user, purseID string, amount int64, recipient string) (domain.DefaultOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome := domain.DefaultOutcome{User: user, Amount: amount}
	if caller != purseID || !s.purses[caller] {
		return outcome, domain.ErrNotAuthorized
	}
	key := commitKey{user, purseID}
	c, ok := s.commitments[key]
	if !ok || !c.Active {
		return outcome, domain.ErrCommitmentInactive
	}
	if c.BackingValidator == "" {
		return outcome, domain.ErrNoValidatorForUser
	}
	if amount <= 0 || amount > c.Amount {
		return outcome, domain.ErrInsufficientCommittedCredits
	}
	v, ok := s.validators[c.BackingValidator]
	if !ok {
		return outcome, domain.ErrUnknownValidator
	}

	if user == recipient {
		// A member defaulting on their own payout round loses only the
		// payout, not additional collateral.
		outcome.Amount = 0
		outcome.Reason = "defaulter is round recipient"
		return outcome, nil
	}

	if err := v.HandleDefaulterPenalty(s.cfg.SystemID, user, recipient, amount); err != nil {
		outcome.Reason = err.Error()
		observability.PenaltyFailures.Inc()
		s.journalEntry(domain.TxPenalty, domain.EntryDebit, user, 0, purseID, "penalty failed: "+err.Error())
		s.logger.Warn("validator penalty failed",
			"validator", c.BackingValidator, "user", user, "purse", purseID, "err", err)
		return outcome, nil
	}

	c.Amount -= amount
	s.addDefaultHistory(c.BackingValidator, user, amount)
	outcome.PenaltyPaid = true
	observability.CommittedCredits.Sub(float64(amount))
	observability.DefaultsRecorded.Inc()
	s.journalEntry(domain.TxPenalty, domain.EntryDebit, user, amount, purseID, "default penalty to "+recipient)
	s.journalCommitment(*c)
	s.logger.Info("default handled",
		"validator", c.BackingValidator, "user", user, "purse", purseID, "amount", amount)
	return outcome, nil
}

func (s *System) journalCommitment(c domain.Commitment) {
	if s.journal == nil {
		return
	}
	if err := s.journal.UpsertCommitment(c); err != nil {
		s.logger.Warn("journal commitment write failed", "user", c.User, "purse", c.PurseID, "err", err)
	}
}
