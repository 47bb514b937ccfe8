package validator

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jerrynoah96/ajofi/internal/app/credits"
	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/domain"
	"github.com/jerrynoah96/ajofi/internal/infra/observability"
)

// FactoryConfig is the global stake and fee policy. Updates apply only to
// future validator creations, never retroactively.
type FactoryConfig struct {
	MaxFeeBps      int64
	MinStakeAmount int64
}

// DefaultFactoryConfig returns the protocol defaults.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{MaxFeeBps: 1000, MinStakeAmount: 100}
}

// Factory creates and tracks validator instances, one per operator.
type Factory struct {
	mu    sync.Mutex
	id    string
	admin string
	cfg   FactoryConfig

	system   *credits.System
	registry *tokens.Registry
	bank     *tokens.Bank
	journal  domain.Journal
	logger   *slog.Logger

	byOperator map[string]*Validator
	byID       map[string]*Validator
}

// NewFactory creates a validator factory. The factory must be authorized with
// the credit system (via System.Authorize) before it can create validators.
func NewFactory(admin string, cfg FactoryConfig, system *credits.System, registry *tokens.Registry, bank *tokens.Bank, journal domain.Journal, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		id:         "validator-factory",
		admin:      admin,
		cfg:        cfg,
		system:     system,
		registry:   registry,
		bank:       bank,
		journal:    journal,
		logger:     logger,
		byOperator: make(map[string]*Validator),
		byID:       make(map[string]*Validator),
	}
}

// ID returns the factory's caller identity with the credit system.
func (f *Factory) ID() string { return f.id }

// CreateValidator deploys a validator for an operator: escrows the initial
// stake, grants the operator credits 1:1, and registers the instance with the
// credit system. One validator per operator.
func (f *Factory) CreateValidator(operator string, feeBps int64, token string, stakeAmount int64) (*Validator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byOperator[operator]; ok {
		return nil, domain.ErrValidatorExists
	}
	if feeBps < 0 || feeBps > f.cfg.MaxFeeBps {
		return nil, domain.ErrFeeTooHigh
	}
	if stakeAmount < f.cfg.MinStakeAmount {
		return nil, domain.ErrInsufficientStake
	}
	if !f.registry.IsWhitelisted(token) {
		return nil, domain.ErrUnknownToken
	}

	v := &Validator{
		id:        "validator-" + uuid.NewString(),
		owner:     operator,
		token:     token,
		feeBps:    feeBps,
		createdAt: time.Now(),
		system:    f.system,
		bank:      f.bank,
		logger:    f.logger,
		vouched:   make(map[string]*domain.VouchRecord),
	}
	if err := f.bank.Transfer(token, operator, v.escrowAccount(), stakeAmount); err != nil {
		return nil, err
	}
	if err := f.system.RegisterValidator(f.id, v); err != nil {
		return nil, err
	}
	if err := f.system.AssignCredits(f.id, operator, stakeAmount); err != nil {
		return nil, err
	}

	f.byOperator[operator] = v
	f.byID[v.id] = v
	observability.ActiveValidators.Inc()
	if f.journal != nil {
		if err := f.journal.UpsertValidator(v.Record()); err != nil {
			f.logger.Warn("journal validator write failed", "id", v.id, "err", err)
		}
	}
	f.logger.Info("validator created", "id", v.id, "operator", operator, "fee_bps", feeBps, "stake", stakeAmount)
	return v, nil
}

// UpdateConfig replaces the global stake/fee policy for future creations.
// Admin-gated.
func (f *Factory) UpdateConfig(caller string, cfg FactoryConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.admin {
		return domain.ErrNotAuthorized
	}
	f.cfg = cfg
	f.logger.Info("factory config updated", "max_fee_bps", cfg.MaxFeeBps, "min_stake", cfg.MinStakeAmount)
	return nil
}

// Config returns the current creation policy.
func (f *Factory) Config() FactoryConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

// ValidatorFor returns the validator created by an operator.
func (f *Factory) ValidatorFor(operator string) (*Validator, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byOperator[operator]
	return v, ok
}

// ValidatorByID returns the validator instance with the given id.
func (f *Factory) ValidatorByID(id string) (*Validator, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byID[id]
	return v, ok
}

// IsValidator reports whether the id names a validator this factory created.
// "Active" means present in the registry; solvency is the validator's own
// concern.
func (f *Factory) IsValidator(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	return ok
}

// ActiveValidators returns all validator instances, sorted by id.
func (f *Factory) ActiveValidators() []*Validator {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Validator, 0, len(f.byID))
	for _, v := range f.byID {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
