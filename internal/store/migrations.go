package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS load_hours (
    business_date TEXT NOT NULL,
    hour INTEGER NOT NULL,
    load_mw REAL NOT NULL,
    fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (business_date, hour)
);

CREATE TABLE IF NOT EXISTS renewable_hours (
    business_date TEXT NOT NULL,
    hour INTEGER NOT NULL,
    pv_mw REAL NOT NULL,
    wind_mw REAL NOT NULL,
    fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (business_date, hour)
);

CREATE TABLE IF NOT EXISTS baseload_quarters (
    business_date TEXT NOT NULL,
    quarter INTEGER NOT NULL,
    gen_mw REAL NOT NULL,
    fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (business_date, quarter)
);

CREATE TABLE IF NOT EXISTS exchange_hours (
    business_date TEXT NOT NULL,
    hour INTEGER NOT NULL,
    exchange_mw REAL NOT NULL,
    fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (business_date, hour)
);

CREATE TABLE IF NOT EXISTS reserve_plans (
    plan_date TEXT PRIMARY KEY,
    fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS reserve_slots (
    plan_date TEXT NOT NULL,
    slot INTEGER NOT NULL,
    available_mw REAL,
    required_mw REAL,
    PRIMARY KEY (plan_date, slot)
);

CREATE TABLE IF NOT EXISTS ingest_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    row_count INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_load_date ON load_hours(business_date);
CREATE INDEX IF NOT EXISTS idx_renewable_date ON renewable_hours(business_date);
CREATE INDEX IF NOT EXISTS idx_baseload_date ON baseload_quarters(business_date);
CREATE INDEX IF NOT EXISTS idx_exchange_date ON exchange_hours(business_date);
CREATE INDEX IF NOT EXISTS idx_ingest_source_time ON ingest_runs(source, started_at);
`,
	},
	{
		Version:     2,
		Description: "Add settings table for portfolio configuration",
		SQL: `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME
);
`,
	},
	{
		Version:     3,
		Description: "Add briefs table for generated daily summaries",
		SQL: `
CREATE TABLE IF NOT EXISTS briefs (
    brief_date TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    model TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`,
	},
	{
		Version:     4,
		Description: "Add quality_flags column to ingest_runs",
		SQL: `
ALTER TABLE ingest_runs ADD COLUMN quality_flags TEXT;
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
