// Package tokens provides the collateral token whitelist and the in-process
// token bank. The bank is the account-based value model the protocol runs on:
// escrow accounts hold collateral, and every collateral move is a transfer
// between named accounts.
package tokens

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/jerrynoah96/ajofi/internal/domain"
)

// Registry is the whitelist of acceptable collateral token identifiers.
type Registry struct {
	mu        sync.Mutex
	admin     string
	whitelist map[string]bool
	journal   domain.Journal
	logger    *slog.Logger
}

// NewRegistry creates a token registry. journal may be nil.
func NewRegistry(admin string, journal domain.Journal, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		admin:     admin,
		whitelist: make(map[string]bool),
		journal:   journal,
		logger:    logger,
	}
}

// SetWhitelist adds or removes a token from the whitelist. Admin-gated.
func (r *Registry) SetWhitelist(caller, token string, allowed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.admin {
		return domain.ErrNotAuthorized
	}
	if allowed {
		r.whitelist[token] = true
	} else {
		delete(r.whitelist, token)
	}
	if r.journal != nil {
		if err := r.journal.SetTokenWhitelist(token, allowed); err != nil {
			r.logger.Warn("journal whitelist write failed", "token", token, "err", err)
		}
	}
	r.logger.Info("token whitelist updated", "token", token, "allowed", allowed)
	return nil
}

// IsWhitelisted reports whether a token is an acceptable collateral token.
func (r *Registry) IsWhitelisted(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.whitelist[token]
}

// ListWhitelisted returns all whitelisted tokens, sorted.
func (r *Registry) ListWhitelisted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.whitelist))
	for t := range r.whitelist {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
