// Package portfolio models holdings reconstructed by folding an append-only
// transaction ledger, per spec §4.5 "Portfolio projector".
package portfolio

import (
	"regexp"
	"time"
)

// TransactionKind is the append-only ledger entry type.
type TransactionKind string

const (
	TxBuy      TransactionKind = "buy"
	TxSell     TransactionKind = "sell"
	TxDividend TransactionKind = "dividend"
	TxSplit    TransactionKind = "split"
)

// Holding is the current-position view for (user_id, ticker); exactly one row
// per pair (spec §3.2 invariant).
type Holding struct {
	UserID        string
	Ticker        string
	AssetName     string
	Shares        float64
	AvgPrice      float64
	FirstAcquired time.Time
	LastUpdated   time.Time
}

// Transaction is one immutable ledger entry; the source of truth for
// reconstructing a Holding.
type Transaction struct {
	ID        string
	UserID    string
	Ticker    string
	Kind      TransactionKind
	Shares    float64
	Price     float64
	OccurredAt time.Time
	CreatedAt time.Time
}

// Snapshot is a periodically materialized historical value point for a user's
// overall portfolio, written to the time-series store.
type Snapshot struct {
	UserID    string
	TakenAt   time.Time
	TotalValue float64
	Holdings  map[string]float64 // ticker -> market value at TakenAt
}

var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// ValidTicker reports whether t matches the accepted [A-Z]{1,5} grammar
// (spec §4.3 enrichment: "ticker rejected if not in [A-Z]{1,5}").
func ValidTicker(t string) bool {
	return tickerPattern.MatchString(t)
}

// FoldTransactions reconstructs the current Holding for a ticker by folding
// its transactions in chronological order. Transactions must already be
// sorted by OccurredAt ascending.
func FoldTransactions(userID, ticker string, txs []Transaction) Holding {
	h := Holding{UserID: userID, Ticker: ticker}
	var costBasis float64

	for _, tx := range txs {
		switch tx.Kind {
		case TxBuy:
			costBasis += tx.Shares * tx.Price
			h.Shares += tx.Shares
			if h.FirstAcquired.IsZero() {
				h.FirstAcquired = tx.OccurredAt
			}
		case TxSell:
			if h.Shares > 0 {
				avgCost := costBasis / h.Shares
				costBasis -= avgCost * tx.Shares
			}
			h.Shares -= tx.Shares
		case TxSplit:
			if tx.Price > 0 {
				h.Shares *= tx.Price
			}
		case TxDividend:
			// dividends do not change share count or cost basis
		}
		h.LastUpdated = tx.OccurredAt
	}

	if h.Shares > 0 {
		h.AvgPrice = costBasis / h.Shares
	}
	return h
}
