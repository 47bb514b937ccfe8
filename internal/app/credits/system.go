// Package credits implements the credit system: the hub that issues and
// tracks credits, mediates every credit movement between users, validators,
// and purses, and resolves defaults.
//
// The system exclusively owns the credit ledger. Purses and validators hold
// only token collateral and call in through the public entry points here —
// no component writes another's state directly.
package credits

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/domain"
	"github.com/jerrynoah96/ajofi/internal/infra/observability"
)

// Config controls credit system policy.
type Config struct {
	SystemID     string        // caller identity presented on validator penalty calls
	Admin        string        // account allowed to mutate the capability tables
	MinStakeTime time.Duration // timelock before staked collateral may be withdrawn
}

// DefaultConfig returns the protocol defaults.
func DefaultConfig() Config {
	return Config{
		SystemID:     "credit-system",
		Admin:        "admin",
		MinStakeTime: 24 * time.Hour,
	}
}

type stakeKey struct{ user, token string }

type commitKey struct{ user, purse string }

type defaultKey struct{ validator, user string }

// System is the credit ledger and its capability tables.
type System struct {
	mu       sync.Mutex
	cfg      Config
	bank     *tokens.Bank
	registry *tokens.Registry
	journal  domain.Journal
	logger   *slog.Logger
	now      func() time.Time

	balances       map[string]int64
	stakes         map[stakeKey]*domain.StakePosition
	commitments    map[commitKey]*domain.Commitment
	userValidator  map[string]string
	defaultHistory map[defaultKey]int64
	authorized     map[string]bool // factories and purses permitted to mutate credits
	validators     map[string]domain.ValidatorBackend
	purses         map[string]bool
	nextEntryID    int64
}

// New creates a credit system over the given bank and token registry.
// journal may be nil; journal failures never fail an operation.
func New(cfg Config, bank *tokens.Bank, registry *tokens.Registry, journal domain.Journal, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		cfg:            cfg,
		bank:           bank,
		registry:       registry,
		journal:        journal,
		logger:         logger,
		now:            time.Now,
		balances:       make(map[string]int64),
		stakes:         make(map[stakeKey]*domain.StakePosition),
		commitments:    make(map[commitKey]*domain.Commitment),
		userValidator:  make(map[string]string),
		defaultHistory: make(map[defaultKey]int64),
		authorized:     make(map[string]bool),
		validators:     make(map[string]domain.ValidatorBackend),
		purses:         make(map[string]bool),
	}
}

// ID returns the caller identity this system presents on penalty calls.
func (s *System) ID() string { return s.cfg.SystemID }

// EscrowAccount returns the bank account holding staked collateral.
func (s *System) EscrowAccount() string { return tokens.EscrowAccount(s.cfg.SystemID) }

// ─── Capability Tables ──────────────────────────────────────────────────────

// Authorize adds a caller (a factory) to the credit-mutation capability set.
// Admin-gated.
func (s *System) Authorize(caller, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caller != s.cfg.Admin {
		return domain.ErrNotAuthorized
	}
	s.authorized[id] = true
	s.logger.Info("caller authorized", "id", id)
	return nil
}

// RegisterValidator registers a validator instance. The caller must already be
// authorized (the validator factory); the validator itself becomes an
// authorized caller so it can move credits when vouching.
func (s *System) RegisterValidator(caller string, v domain.ValidatorBackend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAuthorized(caller) {
		return domain.ErrNotAuthorized
	}
	s.validators[v.ID()] = v
	s.authorized[v.ID()] = true
	return nil
}

// RegisterPurse registers a purse so it may commit, release, and report
// defaults against its own members. The caller must already be authorized
// (the purse factory).
func (s *System) RegisterPurse(caller, purseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAuthorized(caller) {
		return domain.ErrNotAuthorized
	}
	s.purses[purseID] = true
	s.authorized[purseID] = true
	return nil
}

// ValidatorByID looks up a registered validator instance.
func (s *System) ValidatorByID(id string) (domain.ValidatorBackend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.validators[id]
	return v, ok
}

// IsRegisteredPurse reports whether a purse id is registered.
func (s *System) IsRegisteredPurse(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purses[id]
}

func (s *System) isAuthorized(caller string) bool {
	return s.authorized[caller] || caller == s.cfg.Admin
}

// ─── Privileged Credit Mutation ─────────────────────────────────────────────

// AssignCredits grants credits to a user. Restricted to authorized callers.
func (s *System) AssignCredits(caller, user string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAuthorized(caller) {
		return domain.ErrNotAuthorized
	}
	if amount <= 0 {
		return domain.ErrInsufficientCredits
	}
	s.credit(user, amount)
	s.journalEntry(domain.TxAssign, domain.EntryCredit, user, amount, "", "assigned by "+caller)
	return nil
}

// ReduceCredits removes credits from a user. Restricted to authorized callers.
func (s *System) ReduceCredits(caller, user string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAuthorized(caller) {
		return domain.ErrNotAuthorized
	}
	if amount <= 0 || s.balances[user] < amount {
		return domain.ErrInsufficientCredits
	}
	s.debit(user, amount)
	s.journalEntry(domain.TxReduce, domain.EntryDebit, user, amount, "", "reduced by "+caller)
	return nil
}

// ─── Validator Links ────────────────────────────────────────────────────────

// SetUserValidator sets or clears a user's backing validator. A user has at
// most one active validator. Clearing is allowed by the current validator or
// the admin; switching to a different validator requires the current
// validator's consent or an admin override.
func (s *System) SetUserValidator(caller, user, validator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.userValidator[user]
	if validator == "" {
		if current == "" {
			return nil
		}
		if caller != current && caller != s.cfg.Admin {
			return domain.ErrNotAuthorized
		}
		delete(s.userValidator, user)
		return nil
	}
	if _, ok := s.validators[validator]; !ok {
		return domain.ErrUnknownValidator
	}
	if current != "" && current != validator && caller != current && caller != s.cfg.Admin {
		return domain.ErrValidatorActive
	}
	if caller != validator && caller != current && caller != s.cfg.Admin {
		return domain.ErrNotAuthorized
	}
	s.userValidator[user] = validator
	return nil
}

// UserValidator returns the user's active backing validator, if any.
func (s *System) UserValidator(user string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.userValidator[user]
	return v, ok
}

// RecordShortfall adds to the cumulative default history for a
// (validator, user) pair without moving any credits. Used by validators when
// invalidation finds fewer credits than were vouched. Authorized callers only.
func (s *System) RecordShortfall(caller, validator, user string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAuthorized(caller) {
		return domain.ErrNotAuthorized
	}
	if amount <= 0 {
		return nil
	}
	s.addDefaultHistory(validator, user, amount)
	return nil
}

// DefaultHistory returns the cumulative default records for a validator,
// sorted by user.
func (s *System) DefaultHistory(validator string) []domain.DefaultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DefaultRecord
	for k, amt := range s.defaultHistory {
		if k.validator == validator {
			out = append(out, domain.DefaultRecord{Validator: k.validator, User: k.user, Amount: amt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out
}

// ─── Accessors ──────────────────────────────────────────────────────────────

// Balance returns a user's free credit balance.
func (s *System) Balance(user string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[user]
}

// StakeOf returns a user's stake position for a token.
func (s *System) StakeOf(user, token string) (domain.StakePosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.stakes[stakeKey{user, token}]
	if !ok {
		return domain.StakePosition{}, false
	}
	return *p, true
}

// CommitmentOf returns the commitment for a (user, purse) pair.
func (s *System) CommitmentOf(user, purseID string) (domain.Commitment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[commitKey{user, purseID}]
	if !ok {
		return domain.Commitment{}, false
	}
	return *c, true
}

// ─── Internal Helpers (caller holds s.mu) ───────────────────────────────────

func (s *System) credit(user string, amount int64) {
	s.balances[user] += amount
	observability.CreditsInCirculation.Add(float64(amount))
}

func (s *System) debit(user string, amount int64) {
	s.balances[user] -= amount
	observability.CreditsInCirculation.Sub(float64(amount))
}

func (s *System) addDefaultHistory(validator, user string, amount int64) {
	k := defaultKey{validator, user}
	s.defaultHistory[k] += amount
	if s.journal != nil {
		if err := s.journal.UpsertDefaultRecord(domain.DefaultRecord{
			Validator: validator, User: user, Amount: s.defaultHistory[k],
		}); err != nil {
			s.logger.Warn("journal default record failed", "validator", validator, "user", user, "err", err)
		}
	}
}

func (s *System) journalEntry(tx domain.TransactionType, side domain.EntryType, account string, amount int64, purseID, desc string) {
	if s.journal == nil {
		return
	}
	s.nextEntryID++
	e := domain.LedgerEntry{
		ID:          s.nextEntryID,
		Timestamp:   s.now(),
		Type:        tx,
		EntryType:   side,
		Account:     account,
		Amount:      amount,
		PurseID:     purseID,
		Description: desc,
		Balance:     s.balances[account],
	}
	if err := s.journal.AppendLedgerEntry(e); err != nil {
		s.logger.Warn("journal ledger entry failed", "type", tx, "account", account, "err", err)
	}
}
