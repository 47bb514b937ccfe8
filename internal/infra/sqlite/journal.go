package sqlite

import (
	"time"

	"github.com/jerrynoah96/ajofi/internal/domain"
)

// DB implements domain.Journal.
var _ domain.Journal = (*DB)(nil)

// ─── Ledger Entries ─────────────────────────────────────────────────────────

// AppendLedgerEntry stores one double-entry ledger row.
func (db *DB) AppendLedgerEntry(e domain.LedgerEntry) error {
	_, err := db.db.Exec(`
		INSERT INTO ledger_entries (entry_id, timestamp, tx_type, entry_type, account, amount, purse_id, description, balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Timestamp.Format(time.RFC3339Nano), string(e.Type), string(e.EntryType),
		e.Account, e.Amount, e.PurseID, e.Description, e.Balance)
	return err
}

// LedgerEntries returns the most recent entries for an account, newest first.
// An empty account returns entries across all accounts.
func (db *DB) LedgerEntries(account string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.db.Query(`
		SELECT entry_id, timestamp, tx_type, entry_type, account, amount, purse_id, description, balance
		FROM ledger_entries
		WHERE (? = '' OR account = ?)
		ORDER BY id DESC LIMIT ?
	`, account, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ts, txType, entryType string
		if err := rows.Scan(&e.ID, &ts, &txType, &entryType, &e.Account, &e.Amount, &e.PurseID, &e.Description, &e.Balance); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Type = domain.TransactionType(txType)
		e.EntryType = domain.EntryType(entryType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ─── Stakes ─────────────────────────────────────────────────────────────────

// UpsertStake saves a stake position.
func (db *DB) UpsertStake(s domain.StakePosition) error {
	_, err := db.db.Exec(`
		INSERT INTO stakes (user, token, amount, credits_issued, staked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user, token) DO UPDATE SET
			amount         = excluded.amount,
			credits_issued = excluded.credits_issued,
			staked_at      = excluded.staked_at
	`, s.User, s.Token, s.Amount, s.CreditsIssued, s.StakedAt.Format(time.RFC3339Nano))
	return err
}

// DeleteStake removes a fully withdrawn stake position.
func (db *DB) DeleteStake(user, token string) error {
	_, err := db.db.Exec(`DELETE FROM stakes WHERE user = ? AND token = ?`, user, token)
	return err
}

// ─── Commitments ────────────────────────────────────────────────────────────

// UpsertCommitment saves a purse commitment.
func (db *DB) UpsertCommitment(c domain.Commitment) error {
	active := 0
	if c.Active {
		active = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO commitments (user, purse_id, amount, backing_validator, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user, purse_id) DO UPDATE SET
			amount            = excluded.amount,
			backing_validator = excluded.backing_validator,
			active            = excluded.active
	`, c.User, c.PurseID, c.Amount, c.BackingValidator, active)
	return err
}

// ─── Default History ────────────────────────────────────────────────────────

// UpsertDefaultRecord saves the cumulative default amount for a
// (validator, user) pair.
func (db *DB) UpsertDefaultRecord(r domain.DefaultRecord) error {
	_, err := db.db.Exec(`
		INSERT INTO default_history (validator, user, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(validator, user) DO UPDATE SET amount = excluded.amount
	`, r.Validator, r.User, r.Amount)
	return err
}

// DefaultHistory returns all default records for a validator.
func (db *DB) DefaultHistory(validator string) ([]domain.DefaultRecord, error) {
	rows, err := db.db.Query(`
		SELECT validator, user, amount FROM default_history
		WHERE validator = ? ORDER BY user
	`, validator)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DefaultRecord
	for rows.Next() {
		var r domain.DefaultRecord
		if err := rows.Scan(&r.Validator, &r.User, &r.Amount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Validators ─────────────────────────────────────────────────────────────

// UpsertValidator saves a validator snapshot.
func (db *DB) UpsertValidator(v domain.ValidatorRecord) error {
	_, err := db.db.Exec(`
		INSERT INTO validators (id, owner, token, fee_bps)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner   = excluded.owner,
			token   = excluded.token,
			fee_bps = excluded.fee_bps
	`, v.ID, v.Owner, v.Token, v.FeeBps)
	return err
}

// ─── Purses ─────────────────────────────────────────────────────────────────

// UpsertPurse saves a purse snapshot.
func (db *DB) UpsertPurse(p domain.PurseRecord) error {
	_, err := db.db.Exec(`
		INSERT INTO purses (id, state, token, contribution_amount, max_members,
			round_interval_ns, max_delay_ns, current_round, round_total, member_count, round_opens_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state          = excluded.state,
			current_round  = excluded.current_round,
			round_total    = excluded.round_total,
			member_count   = excluded.member_count,
			round_opens_at = excluded.round_opens_at
	`, p.ID, string(p.State), p.Config.Token, p.Config.ContributionAmount, p.Config.MaxMembers,
		int64(p.Config.RoundInterval), int64(p.Config.MaxDelay),
		p.CurrentRound, p.RoundTotal, p.MemberCount, p.RoundOpensAt.Format(time.RFC3339Nano))
	return err
}

// UpsertMember saves a purse member's standing.
func (db *DB) UpsertMember(purseID string, m domain.Member) error {
	contributed, paid := 0, 0
	if m.ContributedThisRound {
		contributed = 1
	}
	if m.ReceivedPayout {
		paid = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO purse_members (purse_id, user, position, contributed_round, received_payout,
			total_contributed, backing_validator, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(purse_id, user) DO UPDATE SET
			contributed_round = excluded.contributed_round,
			received_payout   = excluded.received_payout,
			total_contributed = excluded.total_contributed
	`, purseID, m.User, m.Position, contributed, paid, m.TotalContributed, m.BackingValidator,
		m.JoinedAt.Format(time.RFC3339Nano))
	return err
}

// ─── Token Whitelist ────────────────────────────────────────────────────────

// SetTokenWhitelist saves a whitelist decision.
func (db *DB) SetTokenWhitelist(token string, allowed bool) error {
	allowedInt := 0
	if allowed {
		allowedInt = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO token_whitelist (token, allowed) VALUES (?, ?)
		ON CONFLICT(token) DO UPDATE SET allowed = excluded.allowed
	`, token, allowedInt)
	return err
}

// WhitelistedTokens returns the tokens currently marked allowed.
func (db *DB) WhitelistedTokens() ([]string, error) {
	rows, err := db.db.Query(`SELECT token FROM token_whitelist WHERE allowed = 1 ORDER BY token`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
