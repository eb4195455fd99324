package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	domainportfolio "github.com/ankitaa186/agentic-memories-sub004/internal/domain/portfolio"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
)

// getPortfolioSummary handles GET /v1/portfolio/summary: current holdings
// reconstructed by folding the transaction ledger (spec.md §4.5).
func (h *handler) getPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	userID := queryParam(r, "user_id")
	if userID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	holdings, err := h.app.Portfolio.Holdings(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": userID, "holdings": holdings})
}

type holdingRequest struct {
	UserID string  `json:"user_id"`
	Ticker string  `json:"ticker"`
	Kind   string  `json:"kind"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
}

// postHolding handles POST /v1/portfolio/holding and its PUT alias: records
// a new transaction and refolds the holding (spec.md §6.1).
func (h *handler) postHolding(w http.ResponseWriter, r *http.Request) {
	var body holdingRequest
	if err := decodeJSON(r.Body, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	if body.UserID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, body.UserID) {
		return
	}
	if !domainportfolio.ValidTicker(body.Ticker) {
		writeServiceError(w, apperrors.InvalidField("ticker", "must match [A-Z]{1,5}"))
		return
	}

	kind := domainportfolio.TransactionKind(body.Kind)
	if kind == "" {
		kind = domainportfolio.TxBuy
	}

	now := time.Now()
	tx := domainportfolio.Transaction{
		ID: "tx_" + uuid.New().String(), UserID: body.UserID, Ticker: body.Ticker,
		Kind: kind, Shares: body.Shares, Price: body.Price, OccurredAt: now, CreatedAt: now,
	}

	holding, err := h.app.Portfolio.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holding)
}

// deleteHolding handles DELETE /v1/portfolio/holding?user_id=&ticker=: records
// a full-sell transaction and refolds to zero shares rather than removing
// the ledger history.
func (h *handler) deleteHolding(w http.ResponseWriter, r *http.Request) {
	userID := queryParam(r, "user_id")
	ticker := queryParam(r, "ticker")
	if userID == "" || ticker == "" {
		writeServiceError(w, apperrors.MissingField("user_id/ticker"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	existing, ok, err := h.app.Stores.Relational.GetHolding(r.Context(), userID, ticker)
	if err != nil {
		writeServiceError(w, apperrors.StorageFailure("relational", err))
		return
	}
	if !ok {
		writeServiceError(w, apperrors.NotFound("holding", ticker))
		return
	}

	now := time.Now()
	tx := domainportfolio.Transaction{
		ID: "tx_" + uuid.New().String(), UserID: userID, Ticker: ticker,
		Kind: domainportfolio.TxSell, Shares: existing.Shares, Price: existing.AvgPrice,
		OccurredAt: now, CreatedAt: now,
	}
	holding, err := h.app.Portfolio.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holding)
}
