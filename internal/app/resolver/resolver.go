// Package resolver runs the background sweep that force-resolves overdue
// purse rounds. Members who miss a round's contribution window do not block
// the rotation forever: the sweep finds active purses whose delay has expired
// and triggers default resolution on them.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jerrynoah96/ajofi/internal/app/purse"
	"github.com/jerrynoah96/ajofi/internal/domain"
)

// Config controls sweep behavior.
type Config struct {
	Interval time.Duration // time between sweeps
}

// DefaultConfig returns safe resolver defaults.
func DefaultConfig() Config {
	return Config{Interval: time.Minute}
}

// Resolver periodically resolves overdue rounds across all purses.
type Resolver struct {
	mu     sync.Mutex
	cfg    Config
	purses *purse.Factory
	logger *slog.Logger

	resolved  int64
	failed    int64
	lastSweep time.Time
}

// New creates a resolver over the purse factory.
func New(cfg Config, purses *purse.Factory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Resolver{cfg: cfg, purses: purses, logger: logger}
}

// Run sweeps until ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	r.logger.Info("resolver started", "interval", r.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("resolver stopped")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep resolves every overdue round once and returns how many rounds it
// resolved. Purses that are not active, already fully contributed, or still
// inside their delay window are skipped silently.
func (r *Resolver) Sweep() int {
	resolved := 0
	for _, p := range r.purses.List() {
		report, err := p.ResolveRound()
		switch {
		case err == nil:
			resolved++
			r.logger.Info("overdue round resolved",
				"purse", report.PurseID, "round", report.Round, "defaults", len(report.Defaults))
		case errors.Is(err, domain.ErrWrongPurseState),
			errors.Is(err, domain.ErrDelayNotElapsed),
			errors.Is(err, domain.ErrRoundFullyContributed):
			// Nothing due on this purse.
		default:
			r.mu.Lock()
			r.failed++
			r.mu.Unlock()
			r.logger.Warn("sweep resolution failed", "purse", p.ID(), "err", err)
		}
	}

	r.mu.Lock()
	r.resolved += int64(resolved)
	r.lastSweep = time.Now()
	r.mu.Unlock()
	return resolved
}

// Stats reports sweep counters.
type Stats struct {
	Resolved  int64     `json:"resolved"`
	Failed    int64     `json:"failed"`
	LastSweep time.Time `json:"last_sweep"`
}

// Stats returns current sweep statistics.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Resolved: r.resolved, Failed: r.failed, LastSweep: r.lastSweep}
}
