// Package portfolio projects current holdings from the append-only
// transaction ledger and materializes periodic value snapshots to the
// time-series store (spec.md §4.5 "Portfolio projector").
package portfolio

import (
	"context"
	"sort"
	"time"

	domainportfolio "github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
)

const snapshotTable = "portfolio_snapshots"

// PriceLookup resolves the current market price for a ticker, used only when
// materializing a snapshot's total value. Callers without a live quote feed
// may pass a lookup that returns the holding's own AvgPrice.
type PriceLookup func(ctx context.Context, ticker string) (float64, error)

// Projector reconstructs holdings by folding transactions and writes
// periodic snapshots.
type Projector struct {
	relational storage.RelationalAdapter
	timeseries storage.TimeSeriesAdapter
	now        func() time.Time
}

func New(relational storage.RelationalAdapter, timeseries storage.TimeSeriesAdapter) *Projector {
	return &Projector{relational: relational, timeseries: timeseries, now: time.Now}
}

// WithClock overrides the projector's clock (test hook).
func (p *Projector) WithClock(now func() time.Time) *Projector {
	p.now = now
	return p
}

// RecordTransaction appends an immutable ledger entry and refolds the
// resulting holding, enforcing ticker uniqueness per user implicitly via the
// single Holding row keyed by (user_id, ticker) (spec §3.2 invariant).
func (p *Projector) RecordTransaction(ctx context.Context, tx domainportfolio.Transaction) (domainportfolio.Holding, error) {
	if !domainportfolio.ValidTicker(tx.Ticker) {
		return domainportfolio.Holding{}, apperrors.InvalidField("ticker", "must match [A-Z]{1,5}")
	}

	if err := p.relational.AppendTransaction(ctx, tx); err != nil {
		return domainportfolio.Holding{}, apperrors.StorageFailure("relational", err)
	}

	return p.Refold(ctx, tx.UserID, tx.Ticker)
}

// Refold reconstructs a single (user, ticker) holding from its full
// transaction history and persists it, overwriting any prior row.
func (p *Projector) Refold(ctx context.Context, userID, ticker string) (domainportfolio.Holding, error) {
	txs, err := p.relational.ListTransactions(ctx, userID, ticker)
	if err != nil {
		return domainportfolio.Holding{}, apperrors.StorageFailure("relational", err)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].OccurredAt.Before(txs[j].OccurredAt)
	})

	h := domainportfolio.FoldTransactions(userID, ticker, txs)
	if err := p.relational.UpsertHolding(ctx, h); err != nil {
		return domainportfolio.Holding{}, apperrors.StorageFailure("relational", err)
	}
	return h, nil
}

// Holdings returns every current holding for a user.
func (p *Projector) Holdings(ctx context.Context, userID string) ([]domainportfolio.Holding, error) {
	holdings, err := p.relational.ListHoldings(ctx, userID)
	if err != nil {
		return nil, apperrors.StorageFailure("relational", err)
	}
	return holdings, nil
}

// Snapshot materializes a historical total-value point for a user's
// portfolio into the time-series store (spec §4.5: "snapshots are
// periodically materialized... for historical value tracking").
func (p *Projector) Snapshot(ctx context.Context, userID string, priceOf PriceLookup) (domainportfolio.Snapshot, error) {
	holdings, err := p.relational.ListHoldings(ctx, userID)
	if err != nil {
		return domainportfolio.Snapshot{}, apperrors.StorageFailure("relational", err)
	}

	snap := domainportfolio.Snapshot{
		UserID:   userID,
		TakenAt:  p.now(),
		Holdings: make(map[string]float64, len(holdings)),
	}

	for _, h := range holdings {
		if h.Shares <= 0 {
			continue
		}
		price := h.AvgPrice
		if priceOf != nil {
			resolved, err := priceOf(ctx, h.Ticker)
			if err != nil {
				return domainportfolio.Snapshot{}, apperrors.DependencyUnavailable("price feed", err)
			}
			price = resolved
		}
		value := h.Shares * price
		snap.Holdings[h.Ticker] = value
		snap.TotalValue += value
	}

	fields := make(map[string]interface{}, len(snap.Holdings)+1)
	for ticker, value := range snap.Holdings {
		fields[ticker] = value
	}
	fields["total_value"] = snap.TotalValue

	row := storage.TimeSeriesRow{UserID: userID, Timestamp: snap.TakenAt, Fields: fields}
	if err := p.timeseries.Insert(ctx, snapshotTable, row); err != nil {
		return domainportfolio.Snapshot{}, apperrors.StorageFailure("timeseries", err)
	}

	return snap, nil
}

// History returns materialized snapshots for a user within [from, to].
func (p *Projector) History(ctx context.Context, userID string, from, to time.Time, limit int) ([]storage.TimeSeriesRow, error) {
	rows, err := p.timeseries.RangeScan(ctx, storage.RangePredicate{
		Table: snapshotTable, UserID: userID, From: from, To: to, Limit: limit,
	})
	if err != nil {
		return nil, apperrors.StorageFailure("timeseries", err)
	}
	return rows, nil
}
