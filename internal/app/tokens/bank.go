package tokens

import (
	"sync"

	"github.com/jerrynoah96/ajofi/internal/domain"
)

// Bank holds account-based collateral balances, one ledger per token.
// Escrow accounts (credit system stake escrow, validator stake, purse pots)
// are ordinary accounts addressed by the owning component's identifier.
type Bank struct {
	mu       sync.Mutex
	balances map[string]map[string]int64 // token → account → amount
}

// NewBank creates an empty token bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[string]map[string]int64)}
}

// EscrowAccount names the escrow account owned by a component instance.
func EscrowAccount(ownerID string) string {
	return "escrow:" + ownerID
}

// Mint credits an account with freshly issued tokens. Used by deployment
// tooling and tests to fund accounts; the protocol itself only transfers.
func (b *Bank) Mint(token, account string, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[token] == nil {
		b.balances[token] = make(map[string]int64)
	}
	b.balances[token][account] += amount
}

// Transfer moves amount of token from one account to another. The debit and
// credit happen under one lock: a transfer either fully applies or not at all.
func (b *Bank) Transfer(token, from, to string, amount int64) error {
	if amount < 0 {
		return domain.ErrInsufficientBalance
	}
	if amount == 0 || from == to {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[token][from] < amount {
		return domain.ErrInsufficientBalance
	}
	b.balances[token][from] -= amount
	b.balances[token][to] += amount
	return nil
}

// BalanceOf returns the token balance of an account.
func (b *Bank) BalanceOf(token, account string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[token][account]
}
