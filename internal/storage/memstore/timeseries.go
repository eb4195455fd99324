package memstore

import (
	"context"
	"sync"

	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

// TimeSeries is an in-process implementation of storage.TimeSeriesAdapter,
// keyed by table name, mirroring the hypertable-emulation shape of
// internal/storage/timeseries.Store but without a PostgreSQL dependency.
type TimeSeries struct {
	mu   sync.Mutex
	rows map[string][]storage.TimeSeriesRow
}

func NewTimeSeries() *TimeSeries {
	return &TimeSeries{rows: make(map[string][]storage.TimeSeriesRow)}
}

var _ storage.TimeSeriesAdapter = (*TimeSeries)(nil)

func (t *TimeSeries) Insert(_ context.Context, table string, row storage.TimeSeriesRow) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[table] = append(t.rows[table], row)
	return nil
}

func (t *TimeSeries) Delete(_ context.Context, table string, predicate func(storage.TimeSeriesRow) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.rows[table][:0]
	for _, r := range t.rows[table] {
		if !predicate(r) {
			kept = append(kept, r)
		}
	}
	t.rows[table] = kept
	return nil
}

func (t *TimeSeries) RangeScan(_ context.Context, p storage.RangePredicate) ([]storage.TimeSeriesRow, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []storage.TimeSeriesRow
	for _, r := range t.rows[p.Table] {
		if p.UserID != "" && r.UserID != p.UserID {
			continue
		}
		if !p.From.IsZero() && r.Timestamp.Before(p.From) {
			continue
		}
		if !p.To.IsZero() && r.Timestamp.After(p.To) {
			continue
		}
		out = append(out, r)
		if p.Limit > 0 && len(out) >= p.Limit {
			break
		}
	}
	return out, nil
}

func (t *TimeSeries) Health(_ context.Context) storage.Health {
	return storage.Health{OK: true, LatencyMS: 0}
}
