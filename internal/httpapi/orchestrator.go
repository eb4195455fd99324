package httpapi

import (
	"net/http"

	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/extraction"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
)

type turnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// postMessage handles POST /v1/orchestrator/message: appends one turn to the
// conversation's streaming buffer, flushing when threshold/idle/explicit
// conditions are met (spec.md §4.8).
func (h *handler) postMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID         string      `json:"user_id"`
		ConversationID string      `json:"conversation_id"`
		Turn           turnPayload `json:"turn"`
		Flush          bool        `json:"flush"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	if body.UserID == "" || body.ConversationID == "" {
		writeServiceError(w, apperrors.MissingField("user_id/conversation_id"))
		return
	}
	if !requirePathUser(w, r, body.UserID) {
		return
	}

	outcome, err := h.app.Streaming.Append(r.Context(), body.UserID, body.ConversationID, llmclient.Turn{Role: body.Turn.Role, Content: body.Turn.Content}, body.Flush)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// postTranscript handles POST /v1/orchestrator/transcript: runs the full
// extraction pipeline over a whole conversation transcript synchronously.
func (h *handler) postTranscript(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID  string        `json:"user_id"`
		History []turnPayload `json:"history"`
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

	history := make([]llmclient.Turn, len(body.History))
	for i, t := range body.History {
		history[i] = llmclient.Turn{Role: t.Role, Content: t.Content}
	}

	out, err := h.app.Extraction.Run(r.Context(), extraction.Input{UserID: body.UserID, History: history})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// postOrchestratorRetrieve handles POST /v1/orchestrator/retrieve: the
// proactive-injection path the orchestrator uses mid-conversation. Synthesis
// is always on; the request's synthesize field is ignored.
func (h *handler) postOrchestratorRetrieve(w http.ResponseWriter, r *http.Request) {
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
	body.Synthesize = true
	h.runRetrieve(w, r, body)
}
