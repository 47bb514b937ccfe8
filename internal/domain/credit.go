package domain

import "time"

// ─── Ledger Entry Types ─────────────────────────────────────────────────────
// Every credit movement produces DEBIT/CREDIT rows. Internal transfers
// (vouching, fee splits, commit/release) are zero-sum across the two
// endpoints; only STAKE and UNSTAKE change the credits in circulation.

// EntryType represents the accounting side of a ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// TransactionType represents the business reason for a credit operation.
type TransactionType string

const (
	TxStake      TransactionType = "STAKE"
	TxUnstake    TransactionType = "UNSTAKE"
	TxAssign     TransactionType = "ASSIGN"
	TxReduce     TransactionType = "REDUCE"
	TxVouch      TransactionType = "VOUCH"
	TxVouchFee   TransactionType = "VOUCH_FEE"
	TxReclaim    TransactionType = "RECLAIM"
	TxCommit     TransactionType = "COMMIT"
	TxRelease    TransactionType = "RELEASE"
	TxPenalty    TransactionType = "PENALTY"
	TxContribute TransactionType = "CONTRIBUTE"
	TxPayout     TransactionType = "PAYOUT"
	TxRefund     TransactionType = "REFUND"
)

// LedgerEntry is a single row in the double-entry credit ledger.
type LedgerEntry struct {
	ID          int64           `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        TransactionType `json:"type"`
	EntryType   EntryType       `json:"entry_type"`
	Account     string          `json:"account"`
	Amount      int64           `json:"amount"`
	PurseID     string          `json:"purse_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Balance     int64           `json:"balance"`
}
