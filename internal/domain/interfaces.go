package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ValidatorBackend is the credit system's view of one validator instance.
// The credit system never touches validator storage directly — penalties and
// vouch lookups go through this interface.
type ValidatorBackend interface {
	// ID returns the validator's registered identifier.
	ID() string

	// Owner returns the operator account that staked the validator.
	Owner() string

	// StakedToken returns the collateral token the validator staked.
	StakedToken() string

	// IsValidated reports whether the validator currently vouches for user.
	IsValidated(user string) bool

	// HandleDefaulterPenalty transfers amount of staked collateral to the
	// recipient of the round the defaulter missed. A self-default
	// (defaulter == recipient) is a no-op. Only the registered credit
	// system may call this.
	HandleDefaulterPenalty(caller, defaulter, recipient string, amount int64) error
}

// Journal abstracts write-through persistence of protocol state. Services
// treat journal failures as non-fatal: the in-memory ledger is the state of
// record and journal writes are logged-and-continued on error.
type Journal interface {
	AppendLedgerEntry(e LedgerEntry) error
	UpsertStake(s StakePosition) error
	DeleteStake(user, token string) error
	UpsertCommitment(c Commitment) error
	UpsertDefaultRecord(r DefaultRecord) error
	UpsertValidator(v ValidatorRecord) error
	UpsertPurse(p PurseRecord) error
	UpsertMember(purseID string, m Member) error
	SetTokenWhitelist(token string, allowed bool) error
}
