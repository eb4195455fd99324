package httpapi

import (
	"net/http"
	"time"

	domainintent "github.com/ankitaa186/agentic-memories-sub004/internal/domain/intent"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/intent"
)

type intentScheduleRequest struct {
	CronExpression       string     `json:"cron_expression"`
	IntervalMinutes      int        `json:"interval_minutes"`
	FireAt               *time.Time `json:"fire_at"`
	Timezone             string     `json:"timezone"`
	CheckIntervalMinutes int        `json:"check_interval_minutes"`
}

type intentConditionRequest struct {
	Expression    string `json:"expression"`
	CooldownHours int    `json:"cooldown_hours"`
	FireMode      string `json:"fire_mode"`
}

type createIntentRequest struct {
	UserID         string                  `json:"user_id"`
	IntentName     string                  `json:"intent_name"`
	Description    string                  `json:"description"`
	TriggerType    string                  `json:"trigger_type"`
	Schedule       intentScheduleRequest   `json:"trigger_schedule"`
	Condition      intentConditionRequest  `json:"trigger_condition"`
	ActionType     string                  `json:"action_type"`
	ActionContext  string                  `json:"action_context"`
	ActionPriority string                  `json:"action_priority"`
	ExpiresAt      *time.Time              `json:"expires_at"`
	MaxExecutions  *int                    `json:"max_executions"`
}

func (req createIntentRequest) toDomain() domainintent.ScheduledIntent {
	return domainintent.ScheduledIntent{
		UserID:      req.UserID,
		IntentName:  req.IntentName,
		Description: req.Description,
		TriggerType: domainintent.TriggerType(req.TriggerType),
		Schedule: domainintent.TriggerSchedule{
			CronExpression:       req.Schedule.CronExpression,
			IntervalMinutes:      req.Schedule.IntervalMinutes,
			FireAt:               req.Schedule.FireAt,
			Timezone:             req.Schedule.Timezone,
			CheckIntervalMinutes: req.Schedule.CheckIntervalMinutes,
		},
		Condition: domainintent.TriggerCondition{
			Expression:    req.Condition.Expression,
			CooldownHours: req.Condition.CooldownHours,
			FireMode:      domainintent.FireMode(req.Condition.FireMode),
		},
		ActionType:     domainintent.ActionType(req.ActionType),
		ActionContext:  req.ActionContext,
		ActionPriority: domainintent.ActionPriority(req.ActionPriority),
		ExpiresAt:      req.ExpiresAt,
		MaxExecutions:  req.MaxExecutions,
	}
}

// postIntent handles POST /v1/intents: registers a new scheduled intent
// (spec.md §4.7, §6.1).
func (h *handler) postIntent(w http.ResponseWriter, r *http.Request) {
	var body createIntentRequest
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

	created, err := h.app.Intents.Create(r.Context(), body.toDomain())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// getIntents handles GET /v1/intents?user_id=: every intent owned by the
// caller.
func (h *handler) getIntents(w http.ResponseWriter, r *http.Request) {
	userID := queryParam(r, "user_id")
	if userID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	list, err := h.app.Intents.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// getIntent handles GET /v1/intents/{id}.
func (h *handler) getIntent(w http.ResponseWriter, r *http.Request) {
	id := routeVar(r, "id")
	si, ok, err := h.app.Intents.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		writeServiceError(w, apperrors.NotFound("intent", id))
		return
	}
	if !requirePathUser(w, r, si.UserID) {
		return
	}
	writeJSON(w, http.StatusOK, si)
}

// patchIntent handles PATCH /v1/intents/{id}: partial update, re-validating
// the merged record.
func (h *handler) patchIntent(w http.ResponseWriter, r *http.Request) {
	id := routeVar(r, "id")
	var body struct {
		IntentName     *string    `json:"intent_name"`
		Description    *string    `json:"description"`
		Enabled        *bool      `json:"enabled"`
		ActionContext  *string    `json:"action_context"`
		ActionPriority *string    `json:"action_priority"`
		ExpiresAt      *time.Time `json:"expires_at"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeServiceError(w, err)
		return
	}

	existing, ok, err := h.app.Intents.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		writeServiceError(w, apperrors.NotFound("intent", id))
		return
	}
	if !requirePathUser(w, r, existing.UserID) {
		return
	}

	updated, err := h.app.Intents.Update(r.Context(), id, func(si *domainintent.ScheduledIntent) {
		if body.IntentName != nil {
			si.IntentName = *body.IntentName
		}
		if body.Description != nil {
			si.Description = *body.Description
		}
		if body.Enabled != nil {
			si.Enabled = *body.Enabled
		}
		if body.ActionContext != nil {
			si.ActionContext = *body.ActionContext
		}
		if body.ActionPriority != nil {
			si.ActionPriority = domainintent.ActionPriority(*body.ActionPriority)
		}
		if body.ExpiresAt != nil {
			si.ExpiresAt = body.ExpiresAt
		}
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// deleteIntent handles DELETE /v1/intents/{id}.
func (h *handler) deleteIntent(w http.ResponseWriter, r *http.Request) {
	id := routeVar(r, "id")
	existing, ok, err := h.app.Intents.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		writeServiceError(w, apperrors.NotFound("intent", id))
		return
	}
	if !requirePathUser(w, r, existing.UserID) {
		return
	}

	if err := h.app.Intents.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// getPendingIntents handles GET /v1/intents/pending?user_id=: due intents,
// annotated with cooldown state, for the proactive worker to claim
// (spec.md §4.7).
func (h *handler) getPendingIntents(w http.ResponseWriter, r *http.Request) {
	userID := queryParam(r, "user_id")
	if userID != "" && !requirePathUser(w, r, userID) {
		return
	}

	pending, err := h.app.Intents.Pending(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

// postFireIntent handles POST /v1/intents/{id}/fire: records the proactive
// worker's execution outcome, applying cooldown and fire-mode rules.
func (h *handler) postFireIntent(w http.ResponseWriter, r *http.Request) {
	id := routeVar(r, "id")
	var body struct {
		Status         string                 `json:"status"`
		TriggerData    map[string]interface{} `json:"trigger_data"`
		GateResult     string                 `json:"gate_result"`
		MessageID      string                 `json:"message_id"`
		MessagePreview string                 `json:"message_preview"`
		TimingMS       int64                  `json:"timing_ms"`
		ErrorMessage   string                 `json:"error_message"`
		CorrelationID  string                 `json:"correlation_id"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeServiceError(w, err)
		return
	}

	existing, ok, err := h.app.Intents.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		writeServiceError(w, apperrors.NotFound("intent", id))
		return
	}
	if !requirePathUser(w, r, existing.UserID) {
		return
	}

	result, err := h.app.Intents.Fire(r.Context(), id, intent.FireRequest{
		Status:         domainintent.ExecutionStatus(body.Status),
		TriggerData:    body.TriggerData,
		GateResult:     body.GateResult,
		MessageID:      body.MessageID,
		MessagePreview: body.MessagePreview,
		TimingMS:       body.TimingMS,
		ErrorMessage:   body.ErrorMessage,
		CorrelationID:  body.CorrelationID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
