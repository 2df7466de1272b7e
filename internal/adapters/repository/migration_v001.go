package repository

import (
	"context"
	"database/sql"
)

// migrateV001 creates the timeline_events table and its year index.
func migrateV001(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS timeline_events (
			id                  TEXT PRIMARY KEY,
			title               TEXT NOT NULL,
			category            TEXT NOT NULL DEFAULT '',
			region              TEXT NOT NULL DEFAULT 'Global',
			start_year          INTEGER,
			end_year            INTEGER,
			representative_year REAL,
			description         TEXT NOT NULL DEFAULT '',
			start_date          TEXT NOT NULL DEFAULT '',
			end_date            TEXT NOT NULL DEFAULT '',
			lat                 REAL,
			lon                 REAL,
			location_label      TEXT NOT NULL DEFAULT '',
			location_confidence TEXT NOT NULL DEFAULT '',
			created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_timeline_events_years ON timeline_events(start_year, end_year)`,
		`CREATE INDEX IF NOT EXISTS idx_timeline_events_category ON timeline_events(category)`,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
