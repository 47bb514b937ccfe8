package validator

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jerrynoah96/ajofi/internal/app/credits"
	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/domain"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	bank    *tokens.Bank
	system  *credits.System
	factory *Factory
}

// newFixture wires a credit system and an authorized validator factory with
// USDC whitelisted and the operator funded.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	bank := tokens.NewBank()
	registry := tokens.NewRegistry("admin", nil, quietLogger())
	if err := registry.SetWhitelist("admin", "USDC", true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	system := credits.New(credits.DefaultConfig(), bank, registry, nil, quietLogger())
	factory := NewFactory("admin", DefaultFactoryConfig(), system, registry, bank, nil, quietLogger())
	if err := system.Authorize("admin", factory.ID()); err != nil {
		t.Fatalf("authorize factory: %v", err)
	}
	bank.Mint("USDC", "operator", 5000)
	return &fixture{bank: bank, system: system, factory: factory}
}

func (f *fixture) createValidator(t *testing.T, feeBps, stake int64) *Validator {
	t.Helper()
	v, err := f.factory.CreateValidator("operator", feeBps, "USDC", stake)
	if err != nil {
		t.Fatalf("create validator: %v", err)
	}
	return v
}

// ─── Factory ────────────────────────────────────────────────────────────────

func TestCreateValidator(t *testing.T) {
	f := newFixture(t)
	v := f.createValidator(t, 500, 1000)

	if v.Owner() != "operator" || v.StakedToken() != "USDC" || v.FeeBps() != 500 {
		t.Errorf("validator = %+v", v.Record())
	}
	if got := v.StakeBalance(); got != 1000 {
		t.Errorf("stake balance = %d, want 1000", got)
	}
	// The stake grants the operator credits 1:1.
	if got := f.system.Balance("operator"); got != 1000 {
		t.Errorf("operator credits = %d, want 1000", got)
	}
	if !f.factory.IsValidator(v.ID()) {
		t.Error("factory does not know its own validator")
	}
	if got, ok := f.factory.ValidatorFor("operator"); !ok || got != v {
		t.Error("ValidatorFor(operator) lookup failed")
	}
}

func TestCreateValidatorRejections(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint("USDC", "other", 1000)

	tests := []struct {
		name     string
		operator string
		feeBps   int64
		token    string
		stake    int64
		wantErr  error
	}{
		{"fee above cap", "other", 1001, "USDC", 1000, domain.ErrFeeTooHigh},
		{"negative fee", "other", -1, "USDC", 1000, domain.ErrFeeTooHigh},
		{"stake below minimum", "other", 500, "USDC", 99, domain.ErrInsufficientStake},
		{"token not whitelisted", "other", 500, "DOGE", 1000, domain.ErrUnknownToken},
		{"unfunded operator", "broke", 500, "USDC", 1000, domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.factory.CreateValidator(tt.operator, tt.feeBps, tt.token, tt.stake)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateValidator = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// One validator per operator.
	f.createValidator(t, 500, 1000)
	if _, err := f.factory.CreateValidator("operator", 500, "USDC", 1000); !errors.Is(err, domain.ErrValidatorExists) {
		t.Errorf("second validator = %v, want ErrValidatorExists", err)
	}
}

func TestUpdateConfigFutureOnly(t *testing.T) {
	f := newFixture(t)

	if err := f.factory.UpdateConfig("mallory", FactoryConfig{MaxFeeBps: 1, MinStakeAmount: 1}); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("non-admin update = %v, want ErrNotAuthorized", err)
	}
	v := f.createValidator(t, 900, 1000)
	if err := f.factory.UpdateConfig("admin", FactoryConfig{MaxFeeBps: 100, MinStakeAmount: 2000}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	// The existing validator keeps its fee; only future creations see the cap.
	if v.FeeBps() != 900 {
		t.Errorf("existing fee = %d, want 900", v.FeeBps())
	}
	f.bank.Mint("USDC", "other", 5000)
	if _, err := f.factory.CreateValidator("other", 900, "USDC", 5000); !errors.Is(err, domain.ErrFeeTooHigh) {
		t.Errorf("create under new cap = %v, want ErrFeeTooHigh", err)
	}
}

// ─── Vouching ───────────────────────────────────────────────────────────────

func TestValidateUserFeeSplit(t *testing.T) {
	f := newFixture(t)
	v := f.createValidator(t, 500, 1000) // 5% fee

	if err := v.ValidateUser("mallory", "bob", 200); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("non-owner vouch = %v, want ErrNotAuthorized", err)
	}
	if err := v.ValidateUser("operator", "bob", 2000); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Errorf("over-vouch = %v, want ErrInsufficientCredits", err)
	}

	if err := v.ValidateUser("operator", "bob", 200); err != nil {
		t.Fatalf("vouch: %v", err)
	}
	// fee = 200 × 500 / 10000 = 10; the fee never leaves the owner.
	if got := f.system.Balance("bob"); got != 190 {
		t.Errorf("bob credits = %d, want 190", got)
	}
	if got := f.system.Balance("operator"); got != 810 {
		t.Errorf("operator credits = %d, want 810", got)
	}
	if !v.IsValidated("bob") {
		t.Error("bob not validated")
	}
	if amt, ok := v.VouchedAmount("bob"); !ok || amt != 200 {
		t.Errorf("vouched amount = %d, %v, want face 200", amt, ok)
	}
	if got, ok := f.system.UserValidator("bob"); !ok || got != v.ID() {
		t.Errorf("user validator link = %q, %v", got, ok)
	}

	if err := v.ValidateUser("operator", "bob", 100); !errors.Is(err, domain.ErrAlreadyValidated) {
		t.Errorf("double vouch = %v, want ErrAlreadyValidated", err)
	}
}

func TestValidateUserOnePerUser(t *testing.T) {
	f := newFixture(t)
	v1 := f.createValidator(t, 0, 1000)
	f.bank.Mint("USDC", "other", 5000)
	v2, err := f.factory.CreateValidator("other", 0, "USDC", 1000)
	if err != nil {
		t.Fatalf("second validator: %v", err)
	}

	if err := v1.ValidateUser("operator", "bob", 100); err != nil {
		t.Fatalf("first vouch: %v", err)
	}
	// Another validator cannot claim a user who is already backed.
	if err := v2.ValidateUser("other", "bob", 100); !errors.Is(err, domain.ErrValidatorActive) {
		t.Errorf("second vouch = %v, want ErrValidatorActive", err)
	}
}

func TestInvalidateUser(t *testing.T) {
	f := newFixture(t)
	v := f.createValidator(t, 0, 1000) // no fee, keeps the arithmetic plain

	if err := v.InvalidateUser("operator", "bob"); !errors.Is(err, domain.ErrNotValidated) {
		t.Errorf("invalidate unvouched = %v, want ErrNotValidated", err)
	}
	if err := v.ValidateUser("operator", "bob", 200); err != nil {
		t.Fatalf("vouch: %v", err)
	}
	if err := v.InvalidateUser("mallory", "bob"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("non-owner invalidate = %v, want ErrNotAuthorized", err)
	}

	if err := v.InvalidateUser("operator", "bob"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if got := f.system.Balance("operator"); got != 1000 {
		t.Errorf("operator credits = %d, want 1000", got)
	}
	if got := f.system.Balance("bob"); got != 0 {
		t.Errorf("bob credits = %d, want 0", got)
	}
	if v.IsValidated("bob") {
		t.Error("bob still validated")
	}
	if _, ok := f.system.UserValidator("bob"); ok {
		t.Error("user validator link survived invalidation")
	}
	if len(f.system.DefaultHistory(v.ID())) != 0 {
		t.Error("full reclaim recorded a shortfall")
	}
}

func TestInvalidateUserShortfall(t *testing.T) {
	f := newFixture(t)
	v := f.createValidator(t, 0, 1000)

	if err := v.ValidateUser("operator", "bob", 200); err != nil {
		t.Fatalf("vouch: %v", err)
	}
	// Bob spends 150 of the vouched credits elsewhere.
	if err := f.system.ReduceCredits("admin", "bob", 150); err != nil {
		t.Fatalf("spend: %v", err)
	}

	if err := v.InvalidateUser("operator", "bob"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	// Only the remaining 50 comes back; the missing 150 is recorded.
	if got := f.system.Balance("operator"); got != 850 {
		t.Errorf("operator credits = %d, want 850", got)
	}
	hist := f.system.DefaultHistory(v.ID())
	if len(hist) != 1 || hist[0].User != "bob" || hist[0].Amount != 150 {
		t.Errorf("default history = %+v, want bob/150", hist)
	}
}

// ─── Penalties ──────────────────────────────────────────────────────────────

func TestHandleDefaulterPenalty(t *testing.T) {
	f := newFixture(t)
	v := f.createValidator(t, 0, 1000)

	if err := v.HandleDefaulterPenalty("mallory", "bob", "carol", 100); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("non-system caller = %v, want ErrNotAuthorized", err)
	}

	if err := v.HandleDefaulterPenalty(f.system.ID(), "bob", "carol", 100); err != nil {
		t.Fatalf("penalty: %v", err)
	}
	if got := f.bank.BalanceOf("USDC", "carol"); got != 100 {
		t.Errorf("recipient balance = %d, want 100", got)
	}
	if got := v.StakeBalance(); got != 900 {
		t.Errorf("stake after penalty = %d, want 900", got)
	}

	// Self-default moves nothing.
	if err := v.HandleDefaulterPenalty(f.system.ID(), "bob", "bob", 100); err != nil {
		t.Fatalf("self penalty: %v", err)
	}
	if got := v.StakeBalance(); got != 900 {
		t.Errorf("stake after self penalty = %d, want 900", got)
	}

	// A depleted stake fails the transfer rather than going negative.
	if err := v.HandleDefaulterPenalty(f.system.ID(), "bob", "carol", 5000); err == nil {
		t.Error("over-penalty succeeded")
	}
}

// ─── Stake Management ───────────────────────────────────────────────────────

func TestAddAndWithdrawStake(t *testing.T) {
	f := newFixture(t)
	v := f.createValidator(t, 0, 1000)

	if err := v.AddStake("mallory", 500); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("non-owner add = %v, want ErrNotAuthorized", err)
	}
	if err := v.AddStake("operator", 500); err != nil {
		t.Fatalf("add stake: %v", err)
	}
	if got := v.StakeBalance(); got != 1500 {
		t.Errorf("stake = %d, want 1500", got)
	}
	if got := f.system.Balance("operator"); got != 1500 {
		t.Errorf("operator credits = %d, want 1500", got)
	}

	if err := v.WithdrawStake("operator", 2000); !errors.Is(err, domain.ErrInsufficientStake) {
		t.Errorf("over-withdraw = %v, want ErrInsufficientStake", err)
	}
	if err := v.WithdrawStake("operator", 700); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := v.StakeBalance(); got != 800 {
		t.Errorf("stake after withdraw = %d, want 800", got)
	}
	if got := f.system.Balance("operator"); got != 800 {
		t.Errorf("operator credits after withdraw = %d, want 800", got)
	}
	if got := f.bank.BalanceOf("USDC", "operator"); got != 4200 {
		t.Errorf("operator tokens = %d, want 4200", got)
	}
}

func TestWithdrawStakeRequiresCredits(t *testing.T) {
	f := newFixture(t)
	v := f.createValidator(t, 0, 1000)

	// The operator vouches their credits away; collateral stays locked until
	// the credits come back.
	if err := v.ValidateUser("operator", "bob", 1000); err != nil {
		t.Fatalf("vouch: %v", err)
	}
	if err := v.WithdrawStake("operator", 1000); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Errorf("withdraw without credits = %v, want ErrInsufficientCredits", err)
	}
	if err := v.InvalidateUser("operator", "bob"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := v.WithdrawStake("operator", 1000); err != nil {
		t.Errorf("withdraw after reclaim: %v", err)
	}
}
