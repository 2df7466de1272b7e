package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/pkg/logger"
	"github.com/chronoverse/chronoverse/pkg/metrics"
)

const eventColumns = `id, title, category, region, start_year, end_year, representative_year,
	description, start_date, end_date, lat, lon, location_label, location_confidence`

const upsertEvent = `
	INSERT INTO timeline_events (` + eventColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		category = excluded.category,
		region = excluded.region,
		start_year = excluded.start_year,
		end_year = excluded.end_year,
		representative_year = excluded.representative_year,
		description = excluded.description,
		start_date = excluded.start_date,
		end_date = excluded.end_date,
		lat = excluded.lat,
		lon = excluded.lon,
		location_label = excluded.location_label,
		location_confidence = excluded.location_confidence,
		updated_at = CURRENT_TIMESTAMP`

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
	opts   storeOptions

	window *sql.Stmt
	get    *sql.Stmt
}

// OpenSQLite opens (creating if needed) the database at path, applies
// migrations and returns a ready store. Use ":memory:" for a private
// in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: SQLite serializes writers and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := NewMigrationRunner(db).Run(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	s, err := NewSQLiteStore(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(ctx context.Context, db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}

	var err error
	s.window, err = db.PrepareContext(ctx, `
		SELECT `+eventColumns+`
		FROM timeline_events
		WHERE start_year IS NOT NULL AND end_year IS NOT NULL
		  AND MAX(start_year, end_year) >= ? AND MIN(start_year, end_year) <= ?
		ORDER BY start_year, id`)
	if err != nil {
		return nil, fmt.Errorf("prepare window: %w", err)
	}
	s.get, err = db.PrepareContext(ctx, `SELECT `+eventColumns+` FROM timeline_events WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare get: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) check() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Window implements Store.Window.
func (s *SQLiteStore) Window(ctx context.Context, start, end int64) ([]model.Event, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.window.QueryContext(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	return scanEvents(rows)
}

// All implements Store.All.
func (s *SQLiteStore) All(ctx context.Context) ([]model.Event, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM timeline_events ORDER BY start_year, id`)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	return scanEvents(rows)
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Event, error) {
	if err := s.check(); err != nil {
		return model.Event{}, err
	}
	e, err := scanEvent(s.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get %s: %w", id, err)
	}
	return e, nil
}

// Upsert implements Store.Upsert.
func (s *SQLiteStore) Upsert(ctx context.Context, events []model.Event) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	n := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = insertAll(ctx, tx, events)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.reportSize(ctx)
	return n, nil
}

// Replace implements Store.Replace.
func (s *SQLiteStore) Replace(ctx context.Context, events []model.Event) error {
	if err := s.check(); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_events`); err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
		_, err := insertAll(ctx, tx, events)
		return err
	})
	if err != nil {
		return err
	}
	s.reportSize(ctx)
	return nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timeline_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close releases statements and the database handle.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return errors.Join(s.window.Close(), s.get.Close(), s.db.Close())
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) reportSize(ctx context.Context) {
	if !s.opts.reportMetrics {
		return
	}
	n, err := s.Count(ctx)
	if err != nil {
		s.opts.log.Warn(ctx, "count after write failed", logger.Error(err))
		return
	}
	metrics.SetDatasetSize(n)
}

func insertAll(ctx context.Context, tx *sql.Tx, events []model.Event) (int, error) {
	stmt, err := tx.PrepareContext(ctx, upsertEvent)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		if _, err := stmt.ExecContext(ctx, eventArgs(&events[i])...); err != nil {
			return i, fmt.Errorf("upsert %s: %w", events[i].ID, err)
		}
	}
	return len(events), nil
}

func eventArgs(e *model.Event) []any {
	var lat, lon sql.NullFloat64
	var label, confidence string
	if e.Location != nil {
		lat = sql.NullFloat64{Float64: e.Location.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: e.Location.Lon, Valid: true}
		label, confidence = e.Location.Label, e.Location.Confidence
	}
	return []any{
		e.ID, e.Title, e.Category, e.RegionOrDefault(),
		nullInt(e.StartYear), nullInt(e.EndYear), nullFloat(e.RepresentativeYear),
		e.Description, e.StartDate, e.EndDate,
		lat, lon, label, confidence,
	}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		e                 model.Event
		start, end        sql.NullInt64
		rep, lat, lon     sql.NullFloat64
		label, confidence string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Category, &e.Region, &start, &end, &rep,
		&e.Description, &e.StartDate, &e.EndDate, &lat, &lon, &label, &confidence); err != nil {
		return model.Event{}, err
	}
	if start.Valid {
		e.StartYear = model.Int64(start.Int64)
	}
	if end.Valid {
		e.EndYear = model.Int64(end.Int64)
	}
	if rep.Valid {
		e.RepresentativeYear = model.Float64(rep.Float64)
	}
	if lat.Valid && lon.Valid {
		e.Location = &model.Location{Lat: lat.Float64, Lon: lon.Float64, Label: label, Confidence: confidence}
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
