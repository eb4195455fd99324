package httpapi

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/retrieval"
)

type retrieveRequest struct {
	UserID    string   `json:"user_id"`
	Query     string   `json:"query"`
	Layer     string   `json:"layer"`
	Type      string   `json:"type"`
	Tags      []string `json:"tags"`
	Since     *time.Time `json:"since"`
	Until     *time.Time `json:"until"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
	Synthesize bool    `json:"synthesize"`
	Anchor    string   `json:"anchor_memory_id"`
}

// getRetrieve handles GET /v1/retrieve: query-string form of hybrid
// retrieval, convenient for read-only callers.
func (h *handler) getRetrieve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	body := retrieveRequest{
		UserID: q.Get("user_id"),
		Query:  q.Get("query"),
		Layer:  q.Get("layer"),
		Type:   q.Get("type"),
		Limit:  limit,
		Offset: offset,
	}
	if body.UserID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, body.UserID) {
		return
	}
	h.runRetrieve(w, r, body)
}

// postRetrieve handles POST /v1/retrieve: full-bodied hybrid retrieval with
// filters and optional synthesis (spec.md §4.4, §6.1). The request carries
// no persona field, so no persona override is passed to the engine.
func (h *handler) postRetrieve(w http.ResponseWriter, r *http.Request) {
	var body retrieveRequest
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
	h.runRetrieve(w, r, body)
}

func (h *handler) runRetrieve(w http.ResponseWriter, r *http.Request, body retrieveRequest) {
	filters := retrieval.Filters{Layer: body.Layer, Type: body.Type, Tags: body.Tags, Since: body.Since, Until: body.Until}
	opts := retrieval.Options{Synthesize: body.Synthesize, AnchorMemoryID: body.Anchor}

	res, err := h.app.Retrieval.Retrieve(r.Context(), body.UserID, body.Query, filters, body.Limit, body.Offset, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// postStructuredRetrieve handles POST /v1/retrieve/structured: filter-only
// retrieval with no semantic query, used for browsing by layer/type/tags.
func (h *handler) postStructuredRetrieve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string     `json:"user_id"`
		Layer  string     `json:"layer"`
		Type   string     `json:"type"`
		Tags   []string   `json:"tags"`
		Since  *time.Time `json:"since"`
		Until  *time.Time `json:"until"`
		Limit  int        `json:"limit"`
		Offset int        `json:"offset"`
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

	filters := retrieval.Filters{Layer: body.Layer, Type: body.Type, Tags: body.Tags, Since: body.Since, Until: body.Until}
	res, err := h.app.Retrieval.Retrieve(r.Context(), body.UserID, "", filters, body.Limit, body.Offset, retrieval.Options{})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// postNarrative handles POST /v1/narrative: synthesizes a prose narrative
// over a user's memories within a time window (spec.md §4.5).
func (h *handler) postNarrative(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string    `json:"user_id"`
		Since  time.Time `json:"since"`
		Until  time.Time `json:"until"`
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
	if body.Until.IsZero() {
		body.Until = time.Now()
	}

	narrative, err := h.app.Narrative.Build(r.Context(), body.UserID, body.Since, body.Until)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, narrative)
}
