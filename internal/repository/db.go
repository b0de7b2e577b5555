package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reconciliation_records (
			record_id TEXT PRIMARY KEY,
			merchant_id TEXT NOT NULL,
			connector TEXT NOT NULL,
			batch_id TEXT NOT NULL,
			record_type TEXT NOT NULL,
			status TEXT NOT NULL,
			match_score INTEGER,
			hyperswitch_data TEXT,
			connector_data TEXT,
			auto_matched INTEGER NOT NULL DEFAULT 0,
			manual_intervention_required INTEGER NOT NULL DEFAULT 0,
			reviewed_by TEXT,
			review_notes TEXT,
			reconciliation_date DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			processed_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_batch ON reconciliation_records(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_status ON reconciliation_records(status)`,
		`CREATE INDEX IF NOT EXISTS idx_records_merchant ON reconciliation_records(merchant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_connector ON reconciliation_records(connector)`,
		`CREATE INDEX IF NOT EXISTS idx_records_recon_date ON reconciliation_records(reconciliation_date)`,

		`CREATE TABLE IF NOT EXISTS record_discrepancies (
			id TEXT PRIMARY KEY,
			record_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL,
			expected_value TEXT,
			actual_value TEXT,
			severity TEXT NOT NULL,
			resolved INTEGER NOT NULL DEFAULT 0,
			resolution_notes TEXT,
			resolved_at DATETIME,
			resolved_by TEXT,
			FOREIGN KEY (record_id) REFERENCES reconciliation_records(record_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_record ON record_discrepancies(record_id)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_type ON record_discrepancies(type)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_severity ON record_discrepancies(severity)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
