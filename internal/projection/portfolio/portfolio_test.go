package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainportfolio "github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/memstore"
)

func newTestProjector(clock func() time.Time) (*Projector, *memstore.Relational, *memstore.TimeSeries) {
	rel := memstore.NewRelational()
	ts := memstore.NewTimeSeries()
	p := New(rel, ts).WithClock(clock)
	return p, rel, ts
}

func TestRecordTransaction_RejectsInvalidTicker(t *testing.T) {
	p, _, _ := newTestProjector(time.Now)
	_, err := p.RecordTransaction(context.Background(), domainportfolio.Transaction{
		UserID: "u1", Ticker: "too-long-ticker", Kind: domainportfolio.TxBuy, Shares: 1, Price: 1,
	})
	require.Error(t, err)
}

func TestRecordTransaction_FoldsBuysIntoHolding(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p, _, _ := newTestProjector(func() time.Time { return base })

	_, err := p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u1", Ticker: "AAPL", Kind: domainportfolio.TxBuy, Shares: 10, Price: 100, OccurredAt: base,
	})
	require.NoError(t, err)

	h, err := p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u1", Ticker: "AAPL", Kind: domainportfolio.TxBuy, Shares: 10, Price: 200, OccurredAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	require.Equal(t, 20.0, h.Shares)
	require.InDelta(t, 150.0, h.AvgPrice, 1e-9)
}

func TestRecordTransaction_SellReducesShares(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p, _, _ := newTestProjector(func() time.Time { return base })

	_, err := p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u1", Ticker: "MSFT", Kind: domainportfolio.TxBuy, Shares: 10, Price: 50, OccurredAt: base,
	})
	require.NoError(t, err)

	h, err := p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u1", Ticker: "MSFT", Kind: domainportfolio.TxSell, Shares: 4, Price: 60, OccurredAt: base.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, h.Shares)
}

func TestHoldings_ListsOnlyRequestedUser(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestProjector(time.Now)

	_, err := p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u1", Ticker: "AAPL", Kind: domainportfolio.TxBuy, Shares: 1, Price: 1, OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u2", Ticker: "TSLA", Kind: domainportfolio.TxBuy, Shares: 1, Price: 1, OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	holdings, err := p.Holdings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	require.Equal(t, "AAPL", holdings[0].Ticker)
}

func TestSnapshot_MaterializesTotalValueUsingAvgPriceByDefault(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p, _, _ := newTestProjector(func() time.Time { return base })

	_, err := p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u1", Ticker: "AAPL", Kind: domainportfolio.TxBuy, Shares: 10, Price: 100, OccurredAt: base,
	})
	require.NoError(t, err)

	snap, err := p.Snapshot(ctx, "u1", nil)
	require.NoError(t, err)
	require.Equal(t, 1000.0, snap.TotalValue)
	require.Equal(t, base, snap.TakenAt)
}

func TestSnapshot_UsesPriceLookupWhenProvided(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p, _, _ := newTestProjector(func() time.Time { return base })

	_, err := p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u1", Ticker: "AAPL", Kind: domainportfolio.TxBuy, Shares: 10, Price: 100, OccurredAt: base,
	})
	require.NoError(t, err)

	lookup := func(_ context.Context, ticker string) (float64, error) {
		require.Equal(t, "AAPL", ticker)
		return 150, nil
	}

	snap, err := p.Snapshot(ctx, "u1", lookup)
	require.NoError(t, err)
	require.Equal(t, 1500.0, snap.TotalValue)
}

func TestHistory_ReturnsSnapshotsWithinWindow(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p, _, _ := newTestProjector(func() time.Time { return base })

	_, err := p.RecordTransaction(ctx, domainportfolio.Transaction{
		UserID: "u1", Ticker: "AAPL", Kind: domainportfolio.TxBuy, Shares: 10, Price: 100, OccurredAt: base,
	})
	require.NoError(t, err)
	_, err = p.Snapshot(ctx, "u1", nil)
	require.NoError(t, err)

	rows, err := p.History(ctx, "u1", base.Add(-time.Hour), base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
