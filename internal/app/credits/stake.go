package credits

import (
	"fmt"

	"github.com/jerrynoah96/ajofi/internal/domain"
	"github.com/jerrynoah96/ajofi/internal/infra/observability"
)

// Stake escrows collateral and issues credits 1:1. Repeated stakes of the
// same token accumulate into one position and refresh the timelock.
func (s *System) Stake(user, token string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registry.IsWhitelisted(token) {
		return domain.ErrUnknownToken
	}
	if amount <= 0 {
		return domain.ErrInsufficientBalance
	}
	if err := s.bank.Transfer(token, user, s.EscrowAccount(), amount); err != nil {
		return fmt.Errorf("stake collateral: %w", err)
	}
	key := stakeKey{user, token}
	pos, ok := s.stakes[key]
	if !ok {
		pos = &domain.StakePosition{User: user, Token: token}
		s.stakes[key] = pos
	}
	pos.Amount += amount
	pos.CreditsIssued += amount
	pos.StakedAt = s.now()

	s.credit(user, amount)
	observability.StakedCollateral.WithLabelValues(token).Add(float64(amount))
	s.journalEntry(domain.TxStake, domain.EntryCredit, user, amount, "", "staked "+token)
	s.journalStake(*pos)
	s.logger.Info("collateral staked", "user", user, "token", token, "amount", amount)
	return nil
}

// Unstake burns credits pro-rata and returns collateral. amount 0 withdraws
// the entire position. Requires the stake timelock to have elapsed and the
// user to hold the proportional credits owed.
func (s *System) Unstake(user, token string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stakeKey{user, token}
	pos, ok := s.stakes[key]
	if !ok {
		return domain.ErrNoStake
	}
	if s.now().Before(pos.StakedAt.Add(s.cfg.MinStakeTime)) {
		return domain.ErrStakeTimelock
	}
	if amount == 0 {
		amount = pos.Amount
	}
	if amount < 0 || amount > pos.Amount {
		return domain.ErrInsufficientStake
	}
	owed := pos.CreditsOwed(amount)
	if s.balances[user] < owed {
		return domain.ErrInsufficientCredits
	}

	s.debit(user, owed)
	pos.Amount -= amount
	pos.CreditsIssued -= owed
	if err := s.bank.Transfer(token, s.EscrowAccount(), user, amount); err != nil {
		// Escrow always holds at least the sum of open positions; restore
		// the ledger if the substrate still refuses the transfer.
		s.credit(user, owed)
		pos.Amount += amount
		pos.CreditsIssued += owed
		return fmt.Errorf("return collateral: %w", err)
	}
	observability.StakedCollateral.WithLabelValues(token).Sub(float64(amount))
	s.journalEntry(domain.TxUnstake, domain.EntryDebit, user, owed, "", "unstaked "+token)
	if pos.Amount == 0 {
		delete(s.stakes, key)
		if s.journal != nil {
			if err := s.journal.DeleteStake(user, token); err != nil {
				s.logger.Warn("journal stake delete failed", "user", user, "err", err)
			}
		}
	} else {
		s.journalStake(*pos)
	}
	s.logger.Info("collateral unstaked", "user", user, "token", token, "amount", amount, "credits_burned", owed)
	return nil
}

func (s *System) journalStake(pos domain.StakePosition) {
	if s.journal == nil {
		return
	}
	if err := s.journal.UpsertStake(pos); err != nil {
		s.logger.Warn("journal stake write failed", "user", pos.User, "token", pos.Token, "err", err)
	}
}
