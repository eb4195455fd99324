package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidTicker(t *testing.T) {
	assert.True(t, ValidTicker("NVDA"))
	assert.True(t, ValidTicker("F"))
	assert.False(t, ValidTicker("nvda"))
	assert.False(t, ValidTicker("TOOLONG1"))
	assert.False(t, ValidTicker(""))
}

func TestFoldTransactions_BuyThenSell(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Kind: TxBuy, Shares: 10, Price: 100, OccurredAt: t0},
		{Kind: TxBuy, Shares: 10, Price: 200, OccurredAt: t0.Add(24 * time.Hour)},
		{Kind: TxSell, Shares: 5, Price: 250, OccurredAt: t0.Add(48 * time.Hour)},
	}

	h := FoldTransactions("u1", "NVDA", txs)

	assert.Equal(t, "u1", h.UserID)
	assert.Equal(t, "NVDA", h.Ticker)
	assert.Equal(t, 15.0, h.Shares)
	assert.Equal(t, t0, h.FirstAcquired)
	assert.InDelta(t, 150.0, h.AvgPrice, 0.01)
}

func TestFoldTransactions_DividendDoesNotChangeShares(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Kind: TxBuy, Shares: 10, Price: 100, OccurredAt: t0},
		{Kind: TxDividend, Shares: 0, Price: 1.5, OccurredAt: t0.Add(time.Hour)},
	}

	h := FoldTransactions("u1", "NVDA", txs)
	assert.Equal(t, 10.0, h.Shares)
}

func TestFoldTransactions_Split(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Kind: TxBuy, Shares: 10, Price: 100, OccurredAt: t0},
		{Kind: TxSplit, Price: 2, OccurredAt: t0.Add(time.Hour)},
	}

	h := FoldTransactions("u1", "NVDA", txs)
	assert.Equal(t, 20.0, h.Shares)
}
