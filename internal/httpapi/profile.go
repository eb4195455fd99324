package httpapi

import (
	"net/http"

	domainprofile "github.com/ankitaa186/agentic-memories-sub004/internal/domain/profile"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
)

// getProfile handles GET /v1/profile: the full per-user projection.
func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID := queryParam(r, "user_id")
	if userID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	snap, err := h.app.Profile.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// getProfileCategory handles GET /v1/profile/{category}: fields scoped to
// one of the eight fixed categories.
func (h *handler) getProfileCategory(w http.ResponseWriter, r *http.Request) {
	userID := queryParam(r, "user_id")
	if userID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	category := domainprofile.Category(routeVar(r, "category"))
	if !domainprofile.ValidCategory(category) {
		writeServiceError(w, apperrors.InvalidField("category", "not one of the eight recognized profile categories"))
		return
	}

	snap, err := h.app.Profile.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var fields []interface{}
	for _, f := range snap.Fields {
		if f.Category == category {
			fields = append(fields, f)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": userID, "category": category, "fields": fields})
}

// putProfileField handles PUT /v1/profile/{cat}/{field}: an explicit user
// overwrite, authoritative over future enrichment (spec.md §4.5).
func (h *handler) putProfileField(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		Value  string `json:"value"`
	}
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

	category := domainprofile.Category(routeVar(r, "cat"))
	field := routeVar(r, "field")

	f, err := h.app.Profile.Overwrite(r.Context(), body.UserID, category, field, body.Value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// getProfileCompleteness handles GET /v1/profile/completeness: the
// populated/total percentage across the fixed category set.
func (h *handler) getProfileCompleteness(w http.ResponseWriter, r *http.Request) {
	userID := queryParam(r, "user_id")
	if userID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	snap, err := h.app.Profile.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": userID, "completeness": snap.Completeness})
}
