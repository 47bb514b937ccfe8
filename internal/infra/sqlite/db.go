// Package sqlite persists the protocol's ledger and component state.
// It is a write-through journal: services push state here as it changes, and
// the HTTP API reads history (ledger entries, default records) back out.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; one connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

// migrate applies the schema. Each string is a single SQL statement
// (SQLite executes one at a time).
func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id    INTEGER NOT NULL,
			timestamp   TEXT NOT NULL,
			tx_type     TEXT NOT NULL,
			entry_type  TEXT NOT NULL,
			account     TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			purse_id    TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			balance     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_purse ON ledger_entries(purse_id)`,

		`CREATE TABLE IF NOT EXISTS stakes (
			user           TEXT NOT NULL,
			token          TEXT NOT NULL,
			amount         INTEGER NOT NULL,
			credits_issued INTEGER NOT NULL,
			staked_at      TEXT NOT NULL,
			PRIMARY KEY (user, token)
		)`,

		`CREATE TABLE IF NOT EXISTS commitments (
			user              TEXT NOT NULL,
			purse_id          TEXT NOT NULL,
			amount            INTEGER NOT NULL,
			backing_validator TEXT NOT NULL DEFAULT '',
			active            INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (user, purse_id)
		)`,

		`CREATE TABLE IF NOT EXISTS default_history (
			validator TEXT NOT NULL,
			user      TEXT NOT NULL,
			amount    INTEGER NOT NULL,
			PRIMARY KEY (validator, user)
		)`,

		`CREATE TABLE IF NOT EXISTS validators (
			id      TEXT PRIMARY KEY,
			owner   TEXT NOT NULL,
			token   TEXT NOT NULL,
			fee_bps INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS purses (
			id                  TEXT PRIMARY KEY,
			state               TEXT NOT NULL,
			token               TEXT NOT NULL,
			contribution_amount INTEGER NOT NULL,
			max_members         INTEGER NOT NULL,
			round_interval_ns   INTEGER NOT NULL,
			max_delay_ns        INTEGER NOT NULL,
			current_round       INTEGER NOT NULL DEFAULT 0,
			round_total         INTEGER NOT NULL DEFAULT 0,
			member_count        INTEGER NOT NULL DEFAULT 0,
			round_opens_at      TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS purse_members (
			purse_id          TEXT NOT NULL,
			user              TEXT NOT NULL,
			position          INTEGER NOT NULL,
			contributed_round INTEGER NOT NULL DEFAULT 0,
			received_payout   INTEGER NOT NULL DEFAULT 0,
			total_contributed INTEGER NOT NULL DEFAULT 0,
			backing_validator TEXT NOT NULL DEFAULT '',
			joined_at         TEXT NOT NULL,
			PRIMARY KEY (purse_id, user)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_purse ON purse_members(purse_id, position)`,

		`CREATE TABLE IF NOT EXISTS token_whitelist (
			token   TEXT PRIMARY KEY,
			allowed INTEGER NOT NULL DEFAULT 1
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
