package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/repository"
)

const defaultSQLitePath = "data/irec.db"

// SQLiteRepository implements AnalyticsPersistence on a local SQLite file.
// It is the fallback store when ClickHouse is not reachable.
type SQLiteRepository struct {
	path string
	db   *sql.DB
}

var _ repository.AnalyticsPersistence = (*SQLiteRepository)(nil)

// OpenSQLite creates (if needed) and opens the database at path and ensures
// the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids "database is locked" between pooled connections.
	db.SetMaxOpenConns(1)
	if err := ensureWAL(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteRepository{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS itemized_events (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	quantity TEXT NOT NULL,
	payment_method TEXT,
	status TEXT,
	participant TEXT,
	ts INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS itemized_events_project_ts ON itemized_events(project_id, ts);
CREATE TABLE IF NOT EXISTS analytics_snapshots (
	project_id TEXT NOT NULL,
	generated_at INTEGER NOT NULL,
	utilization_rate REAL,
	liquidity_score REAL,
	activity_score REAL,
	warnings INTEGER,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS analytics_snapshots_project ON analytics_snapshots(project_id, generated_at);
`

// Path returns the file backing the store.
func (s *SQLiteRepository) Path() string {
	return s.path
}

func (s *SQLiteRepository) SaveSnapshot(ctx context.Context, result *model.AnalyticsResult) error {
	payload, err := encodeSnapshot(result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analytics_snapshots (
			project_id, generated_at, utilization_rate, liquidity_score,
			activity_score, warnings, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ProjectID,
		result.GeneratedAt.UTC().UnixMilli(),
		result.Metrics.UtilizationRate,
		result.Metrics.LiquidityScore,
		result.Metrics.ActivityScore,
		len(result.Warnings),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", result.ProjectID, err)
	}
	return nil
}

func (s *SQLiteRepository) LatestSnapshot(ctx context.Context, projectID string) (*model.AnalyticsResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM analytics_snapshots
		WHERE project_id = ?
		ORDER BY generated_at DESC, rowid DESC
		LIMIT 1`, projectID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot %s: %w", projectID, err)
	}
	return decodeSnapshot(payload)
}

// SaveEvents upserts events in one transaction.
func (s *SQLiteRepository) SaveEvents(ctx context.Context, events []model.ItemizedEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO itemized_events (
			id, project_id, kind, quantity, payment_method, status,
			participant, ts, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			quantity = excluded.quantity,
			payment_method = excluded.payment_method,
			status = excluded.status,
			participant = excluded.participant,
			ts = excluded.ts,
			payload = excluded.payload`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		row, err := toEventRow(e)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			row.ID, row.ProjectID, row.Kind, row.Quantity, row.PaymentMethod,
			row.Status, row.Participant, row.Timestamp.UnixMilli(), row.Payload,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert event %s: %w", row.ID, err)
		}
	}
	return tx.Commit()
}

// GetEventsSince returns a project's events after since, newest first.
func (s *SQLiteRepository) GetEventsSince(ctx context.Context, projectID string, since time.Time) ([]model.ItemizedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM itemized_events
		WHERE project_id = ? AND ts > ?
		ORDER BY ts DESC, id`, projectID, since.UTC().UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ItemizedEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		e, err := decodeEvent(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// Close closes the DB.
func (s *SQLiteRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
