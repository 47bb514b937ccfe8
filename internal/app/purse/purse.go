// Package purse implements rotating-savings groups. A purse collects a fixed
// contribution from every member each round and pays the pooled amount to one
// member per round; members who miss the contribution window are resolved as
// defaulters through the credit system.
package purse

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

// Purse is one rotating-savings group.
type Purse struct {
	mu  sync.Mutex
	id  string
	cfg domain.PurseConfig

	admin   string
	system  *credits.System
	bank    *tokens.Bank
	journal domain.Journal
	logger  *slog.Logger
	now     func() time.Time

	state        domain.PurseState
	members      map[string]*domain.Member
	order        []string // join order, used for default processing
	positionTo   map[int]string
	currentRound int
	roundTotal   int64
	roundOpensAt time.Time
}

// ID returns the purse identifier.
func (p *Purse) ID() string { return p.id }

// SetClock replaces the purse's time source. Deadline-sensitive callers and
// tests inject a controlled clock here.
func (p *Purse) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// Config returns the purse configuration.
func (p *Purse) Config() domain.PurseConfig { return p.cfg }

// State returns the current lifecycle state.
func (p *Purse) State() domain.PurseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CurrentRound returns the 1-based round number.
func (p *Purse) CurrentRound() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentRound
}

// MemberOf returns a member's standing.
func (p *Purse) MemberOf(user string) (domain.Member, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[user]
	if !ok {
		return domain.Member{}, false
	}
	return *m, true
}

// Members returns all members in join order.
func (p *Purse) Members() []domain.Member {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Member, 0, len(p.order))
	for _, u := range p.order {
		out = append(out, *p.members[u])
	}
	return out
}

func (p *Purse) escrowAccount() string { return tokens.EscrowAccount(p.id) }

// Record returns the persistable snapshot of the purse.
func (p *Purse) Record() domain.PurseRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record()
}

func (p *Purse) record() domain.PurseRecord {
	return domain.PurseRecord{
		ID:           p.id,
		State:        p.state,
		Config:       p.cfg,
		CurrentRound: p.currentRound,
		RoundTotal:   p.roundTotal,
		MemberCount:  len(p.members),
		RoundOpensAt: p.roundOpensAt,
	}
}

// ─── Joining ────────────────────────────────────────────────────────────────

// Join adds a user at the given position while the purse is open. The
// required credits are committed to the credit system under this purse,
// optionally backed by a validator whose staked token must match the purse
// token. Filling the last position transitions the purse to Active.
func (p *Purse) Join(user string, position int, validatorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != domain.PurseOpen {
		return domain.ErrWrongPurseState
	}
	if position < 1 || position > p.cfg.MaxMembers {
		return domain.ErrPositionOutOfRange
	}
	if _, taken := p.positionTo[position]; taken {
		return domain.ErrPositionTaken
	}
	if _, joined := p.members[user]; joined {
		return domain.ErrAlreadyJoined
	}
	if validatorID != "" {
		v, ok := p.system.ValidatorByID(validatorID)
		if !ok {
			return domain.ErrUnknownValidator
		}
		if !v.IsValidated(user) {
			return domain.ErrNotValidated
		}
		if v.StakedToken() != p.cfg.Token {
			return domain.ErrTokenMismatch
		}
	}
	required := p.cfg.RequiredCredits()
	if err := p.system.CommitCreditsToPurse(p.id, user, p.id, required, validatorID); err != nil {
		return fmt.Errorf("commit credits: %w", err)
	}

	m := &domain.Member{
		User:             user,
		Position:         position,
		BackingValidator: validatorID,
		JoinedAt:         p.now(),
	}
	p.members[user] = m
	p.order = append(p.order, user)
	p.positionTo[position] = user
	p.journalMember(*m)

	if len(p.members) == p.cfg.MaxMembers {
		p.state = domain.PurseActive
		p.currentRound = 1
		p.roundOpensAt = p.now()
		observability.ActivePurses.Inc()
		p.logger.Info("purse active", "purse", p.id, "members", len(p.members))
	}
	p.journalPurse()
	return nil
}

// ─── Contributions ──────────────────────────────────────────────────────────

// Contribute transfers one round contribution from a member into the purse
// escrow. Each member contributes once per round; when every member has
// contributed the payout triggers automatically.
func (p *Purse) Contribute(user string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != domain.PurseActive {
		return domain.ErrWrongPurseState
	}
	m, ok := p.members[user]
	if !ok {
		return domain.ErrNotAMember
	}
	if p.now().Before(p.roundOpensAt) {
		return domain.ErrDelayNotElapsed
	}
	if m.ContributedThisRound {
		return domain.ErrAlreadyContributed
	}
	if p.roundTotal >= p.cfg.ContributionAmount*int64(p.cfg.MaxMembers) {
		return domain.ErrRoundFullyContributed
	}
	if err := p.bank.Transfer(p.cfg.Token, user, p.escrowAccount(), p.cfg.ContributionAmount); err != nil {
		return err
	}

	m.ContributedThisRound = true
	m.TotalContributed += p.cfg.ContributionAmount
	p.roundTotal += p.cfg.ContributionAmount
	p.journalMember(*m)

	if p.roundTotal == p.cfg.ContributionAmount*int64(p.cfg.MaxMembers) {
		p.payout()
	}
	p.journalPurse()
	return nil
}

// payout transfers the round pot to the current position holder and either
// completes the purse or starts the next round. Caller holds p.mu.
func (p *Purse) payout() {
	recipient := p.positionTo[p.currentRound]
	pot := p.roundTotal
	if pot > 0 {
		if err := p.bank.Transfer(p.cfg.Token, p.escrowAccount(), recipient, pot); err != nil {
			// The escrow holds exactly the round total; a failure here is a
			// substrate fault, not a protocol state.
			p.logger.Error("payout transfer failed", "purse", p.id, "recipient", recipient, "err", err)
			return
		}
	}
	m := p.members[recipient]
	m.ReceivedPayout = true
	p.journalMember(*m)
	observability.Payouts.Inc()
	p.logger.Info("round paid out", "purse", p.id, "round", p.currentRound, "recipient", recipient, "amount", pot)

	p.roundTotal = 0
	if p.currentRound == p.cfg.MaxMembers {
		p.complete()
		return
	}
	p.currentRound++
	for _, u := range p.order {
		p.members[u].ContributedThisRound = false
		p.journalMember(*p.members[u])
	}
	// The next round's contribution window opens one interval after payout.
	p.roundOpensAt = p.now().Add(p.cfg.RoundInterval)
}

// complete finishes the rotation and releases every remaining commitment.
// Caller holds p.mu.
func (p *Purse) complete() {
	p.state = domain.PurseCompleted
	observability.ActivePurses.Dec()
	p.releaseCommitments()
	p.logger.Info("purse completed", "purse", p.id)
}

func (p *Purse) releaseCommitments() {
	for _, u := range p.order {
		if err := p.system.ReleasePurseCredits(p.id, u, p.id); err != nil {
			p.logger.Warn("release commitment failed", "purse", p.id, "user", u, "err", err)
		}
	}
}

// ─── Default Resolution ─────────────────────────────────────────────────────

// ResolveRound closes a round whose contribution window has expired. Every
// member who has not contributed is reported to the credit system as a
// defaulter; failures of individual validator penalty calls are recorded in
// the report and do not block resolution of the other members. The round
// then pays out whatever was actually collected and the next round starts.
// Callable by anyone once the delay has elapsed.
func (p *Purse) ResolveRound() (*domain.ResolutionReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != domain.PurseActive {
		return nil, domain.ErrWrongPurseState
	}
	if p.roundTotal >= p.cfg.ContributionAmount*int64(p.cfg.MaxMembers) {
		return nil, domain.ErrRoundFullyContributed
	}
	if p.now().Before(p.roundOpensAt.Add(p.cfg.MaxDelay)) {
		return nil, domain.ErrDelayNotElapsed
	}

	recipient := p.positionTo[p.currentRound]
	report := &domain.ResolutionReport{
		PurseID:   p.id,
		Round:     p.currentRound,
		Recipient: recipient,
		Collected: p.roundTotal,
	}
	// Defaulters are processed in join order. Each one is handled
	// independently so a single failing validator cannot freeze the round
	// for everyone else.
	for _, u := range p.order {
		m := p.members[u]
		if m.ContributedThisRound {
			continue
		}
		outcome, err := p.system.HandleUserDefault(p.id, u, p.id, p.cfg.ContributionAmount, recipient)
		if err != nil {
			outcome.Reason = err.Error()
			p.logger.Warn("default not processed", "purse", p.id, "user", u, "err", err)
		}
		report.Defaults = append(report.Defaults, outcome)
	}

	observability.RoundsResolved.Inc()
	p.logger.Info("round resolved", "purse", p.id, "round", p.currentRound,
		"collected", p.roundTotal, "defaults", len(report.Defaults))
	p.payout()
	p.journalPurse()
	return report, nil
}

// ─── Termination ────────────────────────────────────────────────────────────

// Terminate is the administrative emergency exit. The current round's
// contributions are refunded to their contributors, every commitment is
// released, and the purse becomes permanently inert.
func (p *Purse) Terminate(caller string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if caller != p.admin {
		return domain.ErrNotAuthorized
	}
	if p.state.Terminal() {
		return domain.ErrWrongPurseState
	}
	wasActive := p.state == domain.PurseActive
	for _, u := range p.order {
		m := p.members[u]
		if m.ContributedThisRound {
			if err := p.bank.Transfer(p.cfg.Token, p.escrowAccount(), u, p.cfg.ContributionAmount); err != nil {
				p.logger.Warn("refund failed", "purse", p.id, "user", u, "err", err)
			}
		}
	}
	p.roundTotal = 0
	p.state = domain.PurseTerminated
	if wasActive {
		observability.ActivePurses.Dec()
	}
	p.releaseCommitments()
	p.journalPurse()
	p.logger.Info("purse terminated", "purse", p.id)
	return nil
}

// ─── Journaling ─────────────────────────────────────────────────────────────

func (p *Purse) journalPurse() {
	if p.journal == nil {
		return
	}
	if err := p.journal.UpsertPurse(p.record()); err != nil {
		p.logger.Warn("journal purse write failed", "purse", p.id, "err", err)
	}
}

func (p *Purse) journalMember(m domain.Member) {
	if p.journal == nil {
		return
	}
	if err := p.journal.UpsertMember(p.id, m); err != nil {
		p.logger.Warn("journal member write failed", "purse", p.id, "user", m.User, "err", err)
	}
}
