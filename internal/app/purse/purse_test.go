package purse

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jerrynoah96/ajofi/internal/app/credits"
	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/app/validator"
	"github.com/jerrynoah96/ajofi/internal/domain"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	bank       *tokens.Bank
	system     *credits.System
	validators *validator.Factory
	purses     *Factory
	clock      time.Time
}

// newFixture wires the full service graph with USDC whitelisted.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	bank := tokens.NewBank()
	registry := tokens.NewRegistry("admin", nil, quietLogger())
	if err := registry.SetWhitelist("admin", "USDC", true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	system := credits.New(credits.DefaultConfig(), bank, registry, nil, quietLogger())
	validators := validator.NewFactory("admin", validator.DefaultFactoryConfig(), system, registry, bank, nil, quietLogger())
	purses := NewFactory("admin", system, registry, bank, nil, quietLogger())
	for _, id := range []string{validators.ID(), purses.ID()} {
		if err := system.Authorize("admin", id); err != nil {
			t.Fatalf("authorize %s: %v", id, err)
		}
	}
	return &fixture{
		bank:       bank,
		system:     system,
		validators: validators,
		purses:     purses,
		clock:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testConfig() domain.PurseConfig {
	return domain.PurseConfig{
		Token:              "USDC",
		ContributionAmount: 100,
		MaxMembers:         3,
		RoundInterval:      7 * 24 * time.Hour,
		MaxDelay:           24 * time.Hour,
	}
}

// newPurse creates a purse driven by the fixture clock.
func (f *fixture) newPurse(t *testing.T, cfg domain.PurseConfig) *Purse {
	t.Helper()
	p, err := f.purses.CreatePurse(cfg)
	if err != nil {
		t.Fatalf("create purse: %v", err)
	}
	p.now = func() time.Time { return f.clock }
	return p
}

// fundMember mints tokens and stakes enough for the purse commitment.
func (f *fixture) fundMember(t *testing.T, user string, stake int64) {
	t.Helper()
	f.bank.Mint("USDC", user, 1000)
	if err := f.system.Stake(user, "USDC", stake); err != nil {
		t.Fatalf("stake %s: %v", user, err)
	}
}

// ─── Creation ───────────────────────────────────────────────────────────────

func TestCreatePurse(t *testing.T) {
	f := newFixture(t)

	if _, err := f.purses.CreatePurse(domain.PurseConfig{}); !errors.Is(err, domain.ErrUnknownToken) {
		t.Errorf("empty config = %v, want ErrUnknownToken", err)
	}
	cfg := testConfig()
	cfg.MaxMembers = 1
	if _, err := f.purses.CreatePurse(cfg); !errors.Is(err, domain.ErrInvalidPurseConfig) {
		t.Errorf("single member = %v, want ErrInvalidPurseConfig", err)
	}

	p := f.newPurse(t, testConfig())
	if p.State() != domain.PurseOpen {
		t.Errorf("state = %s, want OPEN", p.State())
	}
	if !f.system.IsRegisteredPurse(p.ID()) {
		t.Error("purse not registered with credit system")
	}
	if got, ok := f.purses.Purse(p.ID()); !ok || got != p {
		t.Error("factory lookup failed")
	}
}

// ─── Joining ────────────────────────────────────────────────────────────────

func TestJoinAndActivation(t *testing.T) {
	f := newFixture(t)
	p := f.newPurse(t, testConfig())
	for _, u := range []string{"alice", "bob", "carol"} {
		f.fundMember(t, u, 200) // RequiredCredits = 100 × 2
	}

	if err := p.Join("alice", 0, ""); !errors.Is(err, domain.ErrPositionOutOfRange) {
		t.Errorf("position 0 = %v, want ErrPositionOutOfRange", err)
	}
	if err := p.Join("alice", 4, ""); !errors.Is(err, domain.ErrPositionOutOfRange) {
		t.Errorf("position 4 = %v, want ErrPositionOutOfRange", err)
	}
	if err := p.Join("alice", 1, "validator-9"); !errors.Is(err, domain.ErrUnknownValidator) {
		t.Errorf("unknown validator = %v, want ErrUnknownValidator", err)
	}

	if err := p.Join("alice", 1, ""); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	// Joining commits the full worst-case amount.
	if got := f.system.Balance("alice"); got != 0 {
		t.Errorf("alice credits after join = %d, want 0", got)
	}
	c, ok := f.system.CommitmentOf("alice", p.ID())
	if !ok || !c.Active || c.Amount != 200 {
		t.Errorf("commitment = %+v, %v, want active 200", c, ok)
	}

	if err := p.Join("bob", 1, ""); !errors.Is(err, domain.ErrPositionTaken) {
		t.Errorf("taken position = %v, want ErrPositionTaken", err)
	}
	if err := p.Join("alice", 2, ""); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Errorf("rejoin = %v, want ErrAlreadyJoined", err)
	}

	// A user without enough free credits cannot join.
	f.bank.Mint("USDC", "dave", 1000)
	if err := p.Join("dave", 2, ""); err == nil {
		t.Error("creditless join succeeded")
	}

	if err := p.Join("bob", 2, ""); err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if p.State() != domain.PurseOpen {
		t.Errorf("state before full = %s, want OPEN", p.State())
	}
	if err := p.Join("carol", 3, ""); err != nil {
		t.Fatalf("join carol: %v", err)
	}

	// Filling the last seat activates the purse exactly once.
	if p.State() != domain.PurseActive {
		t.Errorf("state = %s, want ACTIVE", p.State())
	}
	if p.CurrentRound() != 1 {
		t.Errorf("round = %d, want 1", p.CurrentRound())
	}
	f.fundMember(t, "erin", 200)
	if err := p.Join("erin", 2, ""); !errors.Is(err, domain.ErrWrongPurseState) {
		t.Errorf("join active purse = %v, want ErrWrongPurseState", err)
	}
}

// ─── Rotation ───────────────────────────────────────────────────────────────

func TestFullRotation(t *testing.T) {
	f := newFixture(t)
	p := f.newPurse(t, testConfig())
	members := []string{"alice", "bob", "carol"}
	for i, u := range members {
		f.fundMember(t, u, 200)
		if err := p.Join(u, i+1, ""); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
	}

	if err := p.Contribute("dave"); !errors.Is(err, domain.ErrNotAMember) {
		t.Errorf("non-member contribute = %v, want ErrNotAMember", err)
	}

	for round := 1; round <= 3; round++ {
		recipient := members[round-1]
		before := f.bank.BalanceOf("USDC", recipient)

		if round > 1 {
			// Each later round opens one RoundInterval after the previous
			// payout; contributing before then is rejected.
			if err := p.Contribute(members[0]); !errors.Is(err, domain.ErrDelayNotElapsed) {
				t.Errorf("round %d contribute before open = %v, want ErrDelayNotElapsed", round, err)
			}
			f.clock = f.clock.Add(testConfig().RoundInterval)
		}

		if err := p.Contribute(members[0]); err != nil {
			t.Fatalf("round %d contribute %s: %v", round, members[0], err)
		}
		if err := p.Contribute(members[0]); !errors.Is(err, domain.ErrAlreadyContributed) {
			t.Errorf("round %d double contribute = %v, want ErrAlreadyContributed", round, err)
		}
		for _, u := range members[1:] {
			if err := p.Contribute(u); err != nil {
				t.Fatalf("round %d contribute %s: %v", round, u, err)
			}
		}

		// Paying in 100 and collecting the 300 pot nets +200.
		after := f.bank.BalanceOf("USDC", recipient)
		if after-before != 200 {
			t.Errorf("round %d recipient %s net = %d, want 200", round, recipient, after-before)
		}
		m, _ := p.MemberOf(recipient)
		if !m.ReceivedPayout {
			t.Errorf("round %d recipient %s not marked paid", round, recipient)
		}
	}

	if p.State() != domain.PurseCompleted {
		t.Errorf("state = %s, want COMPLETED", p.State())
	}
	if err := p.Contribute(members[0]); !errors.Is(err, domain.ErrWrongPurseState) {
		t.Errorf("contribute after completion = %v, want ErrWrongPurseState", err)
	}
	for _, u := range members {
		m, _ := p.MemberOf(u)
		if m.TotalContributed != 300 {
			t.Errorf("%s total contributed = %d, want 300", u, m.TotalContributed)
		}
		// Completion releases the commitment back to the member.
		if got := f.system.Balance(u); got != 200 {
			t.Errorf("%s credits after completion = %d, want 200", u, got)
		}
		if c, _ := f.system.CommitmentOf(u, p.ID()); c.Active {
			t.Errorf("%s commitment still active", u)
		}
	}
	// The pot account empties out.
	if got := f.bank.BalanceOf("USDC", tokens.EscrowAccount(p.ID())); got != 0 {
		t.Errorf("purse escrow = %d, want 0", got)
	}
}

func TestContributeRequiresActive(t *testing.T) {
	f := newFixture(t)
	p := f.newPurse(t, testConfig())
	f.fundMember(t, "alice", 200)
	if err := p.Join("alice", 1, ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := p.Contribute("alice"); !errors.Is(err, domain.ErrWrongPurseState) {
		t.Errorf("contribute while open = %v, want ErrWrongPurseState", err)
	}
}

// ─── Default Resolution ─────────────────────────────────────────────────────

// resolveFixture builds an active validator-backed purse where carol has not
// contributed to round 1.
func resolveFixture(t *testing.T) (*fixture, *Purse, *validator.Validator) {
	t.Helper()
	f := newFixture(t)
	f.bank.Mint("USDC", "operator", 1000)
	v, err := f.validators.CreateValidator("operator", 0, "USDC", 1000)
	if err != nil {
		t.Fatalf("create validator: %v", err)
	}

	p := f.newPurse(t, testConfig())
	members := []string{"alice", "bob", "carol"}
	for i, u := range members {
		f.bank.Mint("USDC", u, 1000)
		if err := v.ValidateUser("operator", u, 200); err != nil {
			t.Fatalf("vouch %s: %v", u, err)
		}
		if err := p.Join(u, i+1, v.ID()); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
	}
	for _, u := range []string{"alice", "bob"} {
		if err := p.Contribute(u); err != nil {
			t.Fatalf("contribute %s: %v", u, err)
		}
	}
	return f, p, v
}

func TestResolveRound(t *testing.T) {
	f, p, v := resolveFixture(t)

	if _, err := p.ResolveRound(); !errors.Is(err, domain.ErrDelayNotElapsed) {
		t.Errorf("early resolve = %v, want ErrDelayNotElapsed", err)
	}

	f.clock = f.clock.Add(24*time.Hour + time.Minute)
	report, err := p.ResolveRound()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if report.Round != 1 || report.Recipient != "alice" || report.Collected != 200 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Defaults) != 1 {
		t.Fatalf("defaults = %+v, want one", report.Defaults)
	}
	d := report.Defaults[0]
	if d.User != "carol" || !d.PenaltyPaid || d.Amount != 100 {
		t.Errorf("default outcome = %+v, want carol paid 100", d)
	}

	// Alice gets the partial pot plus the penalty from the validator stake.
	if got := f.bank.BalanceOf("USDC", "alice"); got != 1200 {
		t.Errorf("alice tokens = %d, want 1200", got)
	}
	if got := v.StakeBalance(); got != 900 {
		t.Errorf("validator stake = %d, want 900", got)
	}
	// Carol's commitment shrinks by the defaulted amount.
	if c, _ := f.system.CommitmentOf("carol", p.ID()); c.Amount != 100 {
		t.Errorf("carol commitment = %d, want 100", c.Amount)
	}
	hist := f.system.DefaultHistory(v.ID())
	if len(hist) != 1 || hist[0].User != "carol" || hist[0].Amount != 100 {
		t.Errorf("default history = %+v, want carol/100", hist)
	}

	// The next round starts with clean contribution flags.
	if p.CurrentRound() != 2 {
		t.Errorf("round = %d, want 2", p.CurrentRound())
	}
	for _, u := range []string{"alice", "bob", "carol"} {
		m, _ := p.MemberOf(u)
		if m.ContributedThisRound {
			t.Errorf("%s flag not reset", u)
		}
	}
}

func TestResolveAfterFullRound(t *testing.T) {
	_, p, _ := resolveFixture(t)
	if err := p.Contribute("carol"); err != nil {
		t.Fatalf("contribute carol: %v", err)
	}
	// Carol's contribution completed round 1 and started round 2; the new
	// round's window has not expired yet.
	if p.CurrentRound() != 2 {
		t.Errorf("round = %d, want 2", p.CurrentRound())
	}
	if _, err := p.ResolveRound(); !errors.Is(err, domain.ErrDelayNotElapsed) {
		t.Errorf("resolve of fresh round = %v, want ErrDelayNotElapsed", err)
	}
}

// ─── Termination ────────────────────────────────────────────────────────────

func TestTerminate(t *testing.T) {
	f, p, v := resolveFixture(t)

	if err := p.Terminate("mallory"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("non-admin terminate = %v, want ErrNotAuthorized", err)
	}
	if err := p.Terminate("admin"); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if p.State() != domain.PurseTerminated {
		t.Errorf("state = %s, want TERMINATED", p.State())
	}

	// This round's contributions come back to their contributors.
	for _, u := range []string{"alice", "bob"} {
		if got := f.bank.BalanceOf("USDC", u); got != 1000 {
			t.Errorf("%s tokens after refund = %d, want 1000", u, got)
		}
	}
	// Vouched commitments release to the validator's owner.
	if got := f.system.Balance("operator"); got != 1000 {
		t.Errorf("operator credits = %d, want 1000", got)
	}
	if c, _ := f.system.CommitmentOf("alice", p.ID()); c.Active {
		t.Error("alice commitment still active")
	}
	_ = v

	if err := p.Terminate("admin"); !errors.Is(err, domain.ErrWrongPurseState) {
		t.Errorf("double terminate = %v, want ErrWrongPurseState", err)
	}
	if err := p.Contribute("carol"); !errors.Is(err, domain.ErrWrongPurseState) {
		t.Errorf("contribute after terminate = %v, want ErrWrongPurseState", err)
	}
}
