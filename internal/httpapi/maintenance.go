package httpapi

import (
	"net/http"

	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
)

// postMaintenance handles POST /v1/maintenance and its /compact and
// /compact_all aliases: all of them run the full per-user maintenance pass
// (consolidation, forgetting, compaction, promotion, reconciliation) since
// maintenance.Engine exposes no separately invokable compaction-only step.
func (h *handler) postMaintenance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	userID := body.UserID
	if userID == "" {
		userID = queryParam(r, "user_id")
	}
	if userID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	report, err := h.app.Maintenance.Run(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// postMaintenanceUnlock handles POST /v1/maintenance/unlock: clears a stuck
// per-user maintenance lock left behind by a crashed run.
func (h *handler) postMaintenanceUnlock(w http.ResponseWriter, r *http.Request) {
	userID := queryParam(r, "user_id")
	if userID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	if err := h.app.Maintenance.ForceUnlock(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlocked", "user_id": userID})
}
