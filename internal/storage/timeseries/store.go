// Package timeseries implements the append-only, time-indexed adapter over
// the same PostgreSQL pool as the relational adapter, emulating a hypertable
// with plain indexed tables (spec §4.1 "time-series adapter").
package timeseries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

// Store implements storage.TimeSeriesAdapter for portfolio_snapshots only;
// Insert rejects episodic_memories, emotional_memories and any other table
// with an error.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ storage.TimeSeriesAdapter = (*Store)(nil)

// Insert appends a row to table. Only portfolio_snapshots is supported; any
// other table name returns an "unsupported table" error.
func (s *Store) Insert(ctx context.Context, table string, row storage.TimeSeriesRow) error {
	switch table {
	case "portfolio_snapshots":
		totalValue, _ := row.Fields["total_value"].(float64)
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO portfolio_snapshots (user_id, taken_at, total_value, holdings)
			VALUES ($1,$2,$3,$4)`,
			row.UserID, row.Timestamp, totalValue, toJSON(row.Fields["holdings"]))
		if err != nil {
			return fmt.Errorf("insert portfolio snapshot: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("timeseries: unsupported table %q", table)
	}
}

// Delete removes rows from table matching predicate. Since predicate is a Go
// func, this first scans every row of table, for all users, from the zero
// time up to 24 hours from now, and applies predicate to each.
func (s *Store) Delete(ctx context.Context, table string, predicate func(storage.TimeSeriesRow) bool) error {
	rows, err := s.RangeScan(ctx, storage.RangePredicate{Table: table, From: time.Time{}, To: time.Now().Add(24 * time.Hour)})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if !predicate(r) {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND taken_at = $2`, table), r.UserID, r.Timestamp); err != nil {
			return fmt.Errorf("delete timeseries row: %w", err)
		}
	}
	return nil
}

func (s *Store) RangeScan(ctx context.Context, p storage.RangePredicate) ([]storage.TimeSeriesRow, error) {
	switch p.Table {
	case "portfolio_snapshots":
		return s.rangeScanSnapshots(ctx, p)
	default:
		return nil, fmt.Errorf("timeseries: unsupported table %q", p.Table)
	}
}

func (s *Store) rangeScanSnapshots(ctx context.Context, p storage.RangePredicate) ([]storage.TimeSeriesRow, error) {
	query := `SELECT user_id, taken_at, total_value, holdings FROM portfolio_snapshots WHERE taken_at >= $1 AND taken_at <= $2`
	args := []any{p.From, p.To}
	if p.UserID != "" {
		query += ` AND user_id = $3`
		args = append(args, p.UserID)
	}
	query += ` ORDER BY taken_at ASC`
	if p.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", p.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("range scan snapshots: %w", err)
	}
	defer rows.Close()

	var out []storage.TimeSeriesRow
	for rows.Next() {
		var userID string
		var takenAt time.Time
		var totalValue float64
		var holdingsJSON string
		if err := rows.Scan(&userID, &takenAt, &totalValue, &holdingsJSON); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, storage.TimeSeriesRow{
			UserID:    userID,
			Timestamp: takenAt,
			Fields: map[string]interface{}{
				"total_value": totalValue,
				"holdings":    fromJSON(holdingsJSON),
			},
		})
	}
	return out, rows.Err()
}

func (s *Store) Health(ctx context.Context) storage.Health {
	start := time.Now()
	err := s.db.PingContext(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return storage.Health{OK: false, LatencyMS: latency, Detail: err.Error()}
	}
	return storage.Health{OK: true, LatencyMS: latency}
}
