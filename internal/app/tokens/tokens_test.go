package tokens

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jerrynoah96/ajofi/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─── Registry ───────────────────────────────────────────────────────────────

func TestRegistryWhitelist(t *testing.T) {
	r := NewRegistry("admin", nil, quietLogger())

	if err := r.SetWhitelist("mallory", "USDC", true); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("non-admin whitelist = %v, want ErrNotAuthorized", err)
	}
	if r.IsWhitelisted("USDC") {
		t.Error("USDC whitelisted before admin approval")
	}

	if err := r.SetWhitelist("admin", "USDC", true); err != nil {
		t.Fatalf("admin whitelist: %v", err)
	}
	if !r.IsWhitelisted("USDC") {
		t.Error("USDC not whitelisted after admin approval")
	}

	if err := r.SetWhitelist("admin", "USDC", false); err != nil {
		t.Fatalf("admin de-whitelist: %v", err)
	}
	if r.IsWhitelisted("USDC") {
		t.Error("USDC still whitelisted after removal")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry("admin", nil, quietLogger())
	for _, tok := range []string{"DAI", "USDC", "NGN"} {
		if err := r.SetWhitelist("admin", tok, true); err != nil {
			t.Fatalf("whitelist %s: %v", tok, err)
		}
	}

	got := r.ListWhitelisted()
	want := []string{"DAI", "NGN", "USDC"}
	if len(got) != len(want) {
		t.Fatalf("ListWhitelisted() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListWhitelisted()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// ─── Bank ───────────────────────────────────────────────────────────────────

func TestBankTransfer(t *testing.T) {
	b := NewBank()
	b.Mint("USDC", "alice", 500)

	if err := b.Transfer("USDC", "alice", "bob", 200); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := b.BalanceOf("USDC", "alice"); got != 300 {
		t.Errorf("alice balance = %d, want 300", got)
	}
	if got := b.BalanceOf("USDC", "bob"); got != 200 {
		t.Errorf("bob balance = %d, want 200", got)
	}
}

func TestBankTransferInsufficient(t *testing.T) {
	b := NewBank()
	b.Mint("USDC", "alice", 100)

	if err := b.Transfer("USDC", "alice", "bob", 101); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("overdraw = %v, want ErrInsufficientBalance", err)
	}
	// Atomic: nothing moved.
	if got := b.BalanceOf("USDC", "alice"); got != 100 {
		t.Errorf("alice balance = %d, want 100", got)
	}
	if got := b.BalanceOf("USDC", "bob"); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}
}

func TestBankTransferEdgeCases(t *testing.T) {
	b := NewBank()
	b.Mint("USDC", "alice", 100)

	if err := b.Transfer("USDC", "alice", "bob", -1); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("negative amount = %v, want ErrInsufficientBalance", err)
	}
	if err := b.Transfer("USDC", "alice", "bob", 0); err != nil {
		t.Errorf("zero amount = %v, want nil", err)
	}
	if err := b.Transfer("USDC", "alice", "alice", 50); err != nil {
		t.Errorf("self transfer = %v, want nil", err)
	}
	if got := b.BalanceOf("USDC", "alice"); got != 100 {
		t.Errorf("alice balance = %d, want 100", got)
	}
}

func TestEscrowAccount(t *testing.T) {
	if got := EscrowAccount("purse-1"); got != "escrow:purse-1" {
		t.Errorf("EscrowAccount = %q, want %q", got, "escrow:purse-1")
	}
}
