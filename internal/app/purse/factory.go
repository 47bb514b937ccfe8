package purse

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jerrynoah96/ajofi/internal/app/credits"
	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/domain"
)

// Factory creates purse instances and registers them with the credit system.
type Factory struct {
	mu    sync.Mutex
	id    string
	admin string

	system   *credits.System
	registry *tokens.Registry
	bank     *tokens.Bank
	journal  domain.Journal
	logger   *slog.Logger

	purses map[string]*Purse
}

// NewFactory creates a purse factory. The factory must be authorized with the
// credit system before it can register purses.
func NewFactory(admin string, system *credits.System, registry *tokens.Registry, bank *tokens.Bank, journal domain.Journal, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		id:       "purse-factory",
		admin:    admin,
		system:   system,
		registry: registry,
		bank:     bank,
		journal:  journal,
		logger:   logger,
		purses:   make(map[string]*Purse),
	}
}

// ID returns the factory's caller identity with the credit system.
func (f *Factory) ID() string { return f.id }

// CreatePurse validates the configuration, registers a new purse with the
// credit system, and returns it in the Open state.
func (f *Factory) CreatePurse(cfg domain.PurseConfig) (*Purse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !f.registry.IsWhitelisted(cfg.Token) {
		return nil, domain.ErrUnknownToken
	}

	p := &Purse{
		id:         "purse-" + uuid.NewString(),
		cfg:        cfg,
		admin:      f.admin,
		system:     f.system,
		bank:       f.bank,
		journal:    f.journal,
		logger:     f.logger,
		now:        time.Now,
		state:      domain.PurseOpen,
		members:    make(map[string]*domain.Member),
		positionTo: make(map[int]string),
	}
	if err := f.system.RegisterPurse(f.id, p.id); err != nil {
		return nil, err
	}

	f.purses[p.id] = p
	p.journalPurse()
	f.logger.Info("purse created", "purse", p.id, "token", cfg.Token,
		"contribution", cfg.ContributionAmount, "max_members", cfg.MaxMembers)
	return p, nil
}

// Purse returns a purse by id.
func (f *Factory) Purse(id string) (*Purse, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purses[id]
	return p, ok
}

// List returns all purses, sorted by id.
func (f *Factory) List() []*Purse {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Purse, 0, len(f.purses))
	for _, p := range f.purses {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
