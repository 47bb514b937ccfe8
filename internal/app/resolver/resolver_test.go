package resolver

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jerrynoah96/ajofi/internal/app/credits"
	"github.com/jerrynoah96/ajofi/internal/app/purse"
	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/app/validator"
	"github.com/jerrynoah96/ajofi/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildOverduePurse wires an active purse with one non-contributor whose
// contribution window has expired, driven by the returned clock pointer.
func buildOverduePurse(t *testing.T) (*purse.Factory, *time.Time) {
	t.Helper()
	bank := tokens.NewBank()
	registry := tokens.NewRegistry("admin", nil, quietLogger())
	if err := registry.SetWhitelist("admin", "USDC", true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	system := credits.New(credits.DefaultConfig(), bank, registry, nil, quietLogger())
	validators := validator.NewFactory("admin", validator.DefaultFactoryConfig(), system, registry, bank, nil, quietLogger())
	purses := purse.NewFactory("admin", system, registry, bank, nil, quietLogger())
	for _, id := range []string{validators.ID(), purses.ID()} {
		if err := system.Authorize("admin", id); err != nil {
			t.Fatalf("authorize %s: %v", id, err)
		}
	}

	bank.Mint("USDC", "operator", 1000)
	v, err := validators.CreateValidator("operator", 0, "USDC", 1000)
	if err != nil {
		t.Fatalf("create validator: %v", err)
	}

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := purses.CreatePurse(domain.PurseConfig{
		Token: "USDC", ContributionAmount: 100, MaxMembers: 2,
		RoundInterval: time.Hour, MaxDelay: 10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("create purse: %v", err)
	}
	p.SetClock(func() time.Time { return clock })

	for i, u := range []string{"alice", "bob"} {
		bank.Mint("USDC", u, 500)
		if err := v.ValidateUser("operator", u, 100); err != nil {
			t.Fatalf("vouch %s: %v", u, err)
		}
		if err := p.Join(u, i+1, v.ID()); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
	}
	if err := p.Contribute("alice"); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	return purses, &clock
}

func TestSweepResolvesOverdueRounds(t *testing.T) {
	purses, clock := buildOverduePurse(t)
	r := New(DefaultConfig(), purses, quietLogger())

	// Inside the window nothing is due.
	if got := r.Sweep(); got != 0 {
		t.Errorf("early sweep resolved %d, want 0", got)
	}

	*clock = clock.Add(11 * time.Minute)
	if got := r.Sweep(); got != 1 {
		t.Errorf("sweep resolved %d, want 1", got)
	}

	stats := r.Stats()
	if stats.Resolved != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.LastSweep.IsZero() {
		t.Error("LastSweep not recorded")
	}

	// The freshly started round is not due again.
	if got := r.Sweep(); got != 0 {
		t.Errorf("repeat sweep resolved %d, want 0", got)
	}
}

func TestNewClampsInterval(t *testing.T) {
	r := New(Config{Interval: 0}, nil, quietLogger())
	if r.cfg.Interval != time.Minute {
		t.Errorf("interval = %v, want 1m", r.cfg.Interval)
	}
}
