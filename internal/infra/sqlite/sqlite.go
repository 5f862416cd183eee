// Package sqlite persists invoices and invoice settings. It implements
// domain.InvoiceStore with optimistic concurrency: updates compare-and-swap
// on the version column, and invoice number allocation runs inside an
// immediate transaction so concurrent creations cannot collide.
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
// Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer keeps immediate transactions meaningful; SQLite
	// serializes writes anyway.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.db.Close()
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Invoice aggregate rows. Line items, tax items, payment records,
		// and time entry ids are owned exclusively by the aggregate and
		// stored as JSON documents. Money amounts are decimal strings.
		`CREATE TABLE IF NOT EXISTS invoices (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			version             INTEGER NOT NULL,
			client_id           INTEGER NOT NULL,
			project_id          INTEGER NOT NULL,
			created_by          TEXT NOT NULL,
			number              TEXT NOT NULL,
			number_prefix       TEXT NOT NULL DEFAULT '',
			number_value        INTEGER NOT NULL,
			number_suffix       TEXT NOT NULL DEFAULT '',
			invoice_type        TEXT NOT NULL,
			status              TEXT NOT NULL,
			invoice_date        TEXT NOT NULL,
			due_date            TEXT NOT NULL,
			sent_date           TEXT,
			viewed_at           TEXT,
			currency            TEXT NOT NULL,
			line_items          TEXT NOT NULL DEFAULT '[]',
			tax_items           TEXT NOT NULL DEFAULT '[]',
			discount_percentage REAL NOT NULL DEFAULT 0,
			discount_amount     TEXT NOT NULL DEFAULT '0',
			subtotal            TEXT NOT NULL DEFAULT '0',
			tax_total           TEXT NOT NULL DEFAULT '0',
			total               TEXT NOT NULL DEFAULT '0',
			payment_status      TEXT NOT NULL,
			payment_records     TEXT NOT NULL DEFAULT '[]',
			amount_paid         TEXT NOT NULL DEFAULT '0',
			notes               TEXT NOT NULL DEFAULT '',
			time_entry_ids      TEXT NOT NULL DEFAULT '[]',
			created_at          TEXT NOT NULL,
			updated_at          TEXT NOT NULL,
			UNIQUE(created_by, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_series
			ON invoices(created_by, number_prefix, number_suffix, number_value)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_client ON invoices(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(created_by, status)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_due ON invoices(payment_status, due_date)`,

		// Per-owner invoice settings: numbering series and payment terms.
		`CREATE TABLE IF NOT EXISTS invoice_settings (
			owner_id           TEXT PRIMARY KEY,
			number_prefix      TEXT NOT NULL DEFAULT 'INV',
			number_suffix      TEXT NOT NULL DEFAULT '',
			next_number        INTEGER NOT NULL DEFAULT 1,
			payment_terms_days INTEGER NOT NULL DEFAULT 30,
			currency           TEXT NOT NULL DEFAULT 'USD',
			updated_at         TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
