package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/repository"
)

// ClickHouseRepository implements AnalyticsPersistence on ClickHouse. It keeps
// every composed snapshot and every synthesized event for later analysis.
type ClickHouseRepository struct {
	conn driver.Conn
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	// Timeout is the dial timeout in seconds.
	Timeout int
}

var _ repository.AnalyticsPersistence = (*ClickHouseRepository)(nil)

func NewClickHouseRepository(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseRepository, error) {
	database := cfg.Database
	if database == "" {
		database = "default"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: time.Duration(cfg.Timeout) * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := createTablesIfNotExist(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &ClickHouseRepository{conn: conn}, nil
}

func createTablesIfNotExist(ctx context.Context, conn driver.Conn) error {
	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS itemized_events (
			id String,
			project_id String,
			kind LowCardinality(String),
			quantity Decimal128(6),
			payment_method LowCardinality(String),
			status LowCardinality(String),
			participant String,
			timestamp DateTime,
			payload String,
			stored_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(stored_at)
		ORDER BY (project_id, kind, id)
	`)
	if err != nil {
		return err
	}

	return conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analytics_snapshots (
			project_id String,
			generated_at DateTime64(3),
			utilization_rate Float64,
			liquidity_score Float64,
			activity_score Float64,
			retired Decimal128(6),
			transfer_volume Decimal128(6),
			warnings UInt32,
			payload String
		) ENGINE = MergeTree()
		ORDER BY (project_id, generated_at)
	`)
}

// SaveSnapshot appends an analytics snapshot.
func (r *ClickHouseRepository) SaveSnapshot(ctx context.Context, result *model.AnalyticsResult) error {
	payload, err := encodeSnapshot(result)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO analytics_snapshots (
			project_id, generated_at, utilization_rate, liquidity_score,
			activity_score, retired, transfer_volume, warnings, payload
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`
	return r.conn.AsyncInsert(ctx, query, false,
		result.ProjectID,
		result.GeneratedAt,
		result.Metrics.UtilizationRate,
		result.Metrics.LiquidityScore,
		result.Metrics.ActivityScore,
		result.Totals.RetiredInEvents,
		result.Totals.TransferVolume,
		uint32(len(result.Warnings)),
		payload,
	)
}

// LatestSnapshot returns the newest snapshot of a project, or nil.
func (r *ClickHouseRepository) LatestSnapshot(ctx context.Context, projectID string) (*model.AnalyticsResult, error) {
	query := `
		SELECT payload
		FROM analytics_snapshots
		WHERE project_id = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`
	var payload string
	if err := r.conn.QueryRow(ctx, query, projectID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeSnapshot(payload)
}

// SaveEvents writes events in one batch. Re-saving an event replaces it on
// merge.
func (r *ClickHouseRepository) SaveEvents(ctx context.Context, events []model.ItemizedEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO itemized_events (
			id, project_id, kind, quantity, payment_method, status,
			participant, timestamp, payload
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, e := range events {
		row, err := toEventRow(e)
		if err != nil {
			_ = batch.Abort()
			return err
		}
		if err := batch.Append(
			row.ID,
			row.ProjectID,
			row.Kind,
			e.Quantity,
			row.PaymentMethod,
			row.Status,
			row.Participant,
			row.Timestamp,
			row.Payload,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append event %s: %w", row.ID, err)
		}
	}
	return batch.Send()
}

// GetEventsSince returns a project's events after since, newest first.
func (r *ClickHouseRepository) GetEventsSince(ctx context.Context, projectID string, since time.Time) ([]model.ItemizedEvent, error) {
	query := `
		SELECT payload
		FROM itemized_events FINAL
		WHERE project_id = ? AND timestamp > ?
		ORDER BY timestamp DESC, id
	`
	rows, err := r.conn.Query(ctx, query, projectID, since.UTC())
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ClickHouseRepository) Close() error {
	return r.conn.Close()
}
