package httpapi

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/ankitaa186/agentic-memories-sub004/internal/domain/memory"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
	"github.com/ankitaa186/agentic-memories-sub004/internal/extraction"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/orchestrator/persistence"
)

// maxContentLength enforces spec.md §8's boundary: content over 5000
// characters is rejected with VALIDATION_ERROR.
const maxContentLength = 5000

// directMemoryRequest decodes both the common memory fields and every
// type-specific field spec.md §6.1 lists as activating a typed store
// (episodic/emotional/procedural/portfolio). A field may also be supplied
// nested under Metadata; typedMetadata merges both, with the top-level
// field winning on conflict.
type directMemoryRequest struct {
	UserID      string                 `json:"user_id"`
	Content     string                 `json:"content"`
	Layer       string                 `json:"layer"`
	Type        string                 `json:"type"`
	Importance  float64                `json:"importance"`
	Confidence  float64                `json:"confidence"`
	Tags        []string               `json:"tags"`
	PersonaTags []string               `json:"persona_tags"`
	Metadata    map[string]interface{} `json:"metadata"`

	// Episodic
	EventTimestamp   *time.Time `json:"event_timestamp"`
	EventType        string     `json:"event_type"`
	Location         string     `json:"location"`
	Participants     []string   `json:"participants"`
	EmotionalValence float64    `json:"emotional_valence"`
	EmotionalArousal float64    `json:"emotional_arousal"`
	ImportanceScore  float64    `json:"importance_score"`

	// Emotional
	EmotionalState string  `json:"emotional_state"`
	Valence        float64 `json:"valence"`
	Arousal        float64 `json:"arousal"`
	Dominance      float64 `json:"dominance"`
	Intensity      float64 `json:"intensity"`
	Duration       float64 `json:"duration"`
	TriggerEvent   string  `json:"trigger_event"`

	// Procedural
	SkillName        string   `json:"skill_name"`
	ProficiencyLevel string   `json:"proficiency_level"`
	PracticeCount    int      `json:"practice_count"`
	SuccessRate      float64  `json:"success_rate"`
	DifficultyRating float64  `json:"difficulty_rating"`
	Prerequisites    []string `json:"prerequisites"`

	// Portfolio
	Ticker    string  `json:"ticker"`
	AssetName string  `json:"asset_name"`
	Shares    float64 `json:"shares"`
	AvgPrice  float64 `json:"avg_price"`
}

// typedMetadata merges the request's metadata map with its typed top-level
// fields, keyed the way extraction.BuildTypedProjections expects (spec.md
// §3.1 field names), so the direct-store path and the extraction pipeline
// derive typed projections identically.
func (body directMemoryRequest) typedMetadata() map[string]interface{} {
	md := make(map[string]interface{}, len(body.Metadata))
	for k, v := range body.Metadata {
		md[k] = v
	}

	if body.EventTimestamp != nil && !body.EventTimestamp.IsZero() {
		md["event_timestamp"] = *body.EventTimestamp
		md["event_type"] = body.EventType
		md["location"] = body.Location
		md["emotional_valence"] = body.EmotionalValence
		md["emotional_arousal"] = body.EmotionalArousal
		md["importance_score"] = body.ImportanceScore
	}

	if body.EmotionalState != "" {
		md["emotional_state"] = body.EmotionalState
		md["valence"] = body.Valence
		md["arousal"] = body.Arousal
		md["dominance"] = body.Dominance
		md["intensity"] = body.Intensity
		md["duration"] = body.Duration
		md["trigger_event"] = body.TriggerEvent
	}

	if body.SkillName != "" {
		md["skill_name"] = body.SkillName
		md["proficiency_level"] = body.ProficiencyLevel
		md["practice_count"] = body.PracticeCount
		md["success_rate"] = body.SuccessRate
		md["difficulty_rating"] = body.DifficultyRating
	}

	if body.Ticker != "" {
		md["ticker"] = body.Ticker
		md["asset_name"] = body.AssetName
		md["shares"] = body.Shares
		md["avg_price"] = body.AvgPrice
	}

	return md
}

type storageReport struct {
	Chromadb  bool `json:"chromadb"`
	Episodic  bool `json:"episodic,omitempty"`
	Emotional bool `json:"emotional,omitempty"`
	Procedural bool `json:"procedural,omitempty"`
}

type directMemoryResponse struct {
	Status    string        `json:"status"`
	MemoryID  string        `json:"memory_id"`
	Message   string        `json:"message,omitempty"`
	Storage   storageReport `json:"storage"`
	ErrorCode string        `json:"error_code,omitempty"`
}

// postDirectMemory handles POST /v1/memories/direct: a pre-formatted write
// bypassing the extraction pipeline (spec.md §6.1).
func (h *handler) postDirectMemory(w http.ResponseWriter, r *http.Request) {
	var body directMemoryRequest
	if err := decodeJSON(r.Body, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	if body.UserID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}
	if body.Content == "" {
		writeServiceError(w, apperrors.MissingField("content"))
		return
	}
	if utf8.RuneCountInString(body.Content) > maxContentLength {
		writeServiceError(w, apperrors.InvalidField("content", "must not exceed 5000 characters"))
		return
	}
	if !requirePathUser(w, r, body.UserID) {
		return
	}

	layer := memory.Layer(body.Layer)
	if layer == "" {
		layer = memory.LayerLongTerm
	}
	if !memory.ValidLayer(layer) {
		writeServiceError(w, apperrors.InvalidField("layer", "not a recognized memory layer"))
		return
	}
	kind := memory.Kind(body.Type)
	if kind == "" {
		kind = memory.KindExplicit
	}

	now := time.Now()
	embedding, err := h.app.Collaborators.Embedder.Embed(r.Context(), body.Content)
	if err != nil {
		writeJSON(w, apperrors.GetHTTPStatus(apperrors.EmbeddingUnavailable(err)), directMemoryResponse{
			Status: "error", ErrorCode: string(apperrors.CodeEmbedding), Message: err.Error(),
		})
		return
	}

	m := memory.Memory{
		ID:          memory.DeterministicID(body.UserID, body.Content, now),
		UserID:      body.UserID,
		Content:     body.Content,
		Embedding:   embedding,
		Layer:       layer,
		Type:        kind,
		Importance:  memory.Clamp01(body.Importance),
		Confidence:  memory.Clamp01(body.Confidence),
		CreatedAt:   now,
		UpdatedAt:   now,
		LastAccessedAt: now,
		Tags:        body.Tags,
		PersonaTags: body.PersonaTags,
		Source:      memory.SourceDirectAPI,
		Metadata:    body.typedMetadata(),
	}

	episodic, emotional, procedural, holding := extraction.BuildTypedProjections(m)
	plan := persistence.DerivePlan(m, episodic, emotional, procedural, holding)
	outcome, err := h.app.Persistence.Persist(r.Context(), plan)
	if err != nil {
		writeJSON(w, apperrors.GetHTTPStatus(err), directMemoryResponse{
			Status: "error", ErrorCode: string(apperrors.GetCode(err)), Message: err.Error(),
		})
		return
	}

	resp := directMemoryResponse{Status: "ok", MemoryID: outcome.MemoryID, Storage: storageReport{}}
	for _, a := range outcome.Attempts {
		switch a.Adapter {
		case persistence.AdapterVector:
			resp.Storage.Chromadb = a.OK
		case persistence.AdapterEpisodic:
			resp.Storage.Episodic = a.OK
		case persistence.AdapterEmotional:
			resp.Storage.Emotional = a.OK
		case persistence.AdapterProcedural:
			resp.Storage.Procedural = a.OK
		}
	}
	if !outcome.OK {
		resp.Status = "error"
		resp.ErrorCode = string(apperrors.CodeStorage)
	}
	writeJSON(w, http.StatusOK, resp)
}

// deleteMemory handles DELETE /v1/memories/{id}?user_id=: authorizes against
// the stored metadata's user_id, then deletes the vector row followed by
// best-effort typed rows consulting the stored_in_* routing flags
// (spec.md §6.1, §4.2).
func (h *handler) deleteMemory(w http.ResponseWriter, r *http.Request) {
	id := routeVar(r, "id")
	userID := queryParam(r, "user_id")
	if userID == "" {
		writeServiceError(w, apperrors.MissingField("user_id"))
		return
	}

	matches, err := h.app.Stores.Vector.Get(r.Context(), []string{id})
	if err != nil {
		writeServiceError(w, apperrors.StorageFailure("vector", err))
		return
	}
	if len(matches) == 0 {
		writeServiceError(w, apperrors.NotFound("memory", id))
		return
	}
	stored := matches[0]
	storedUserID, _ := stored.Metadata["user_id"].(string)
	if storedUserID != userID {
		writeServiceError(w, apperrors.Forbidden("user_id does not match stored memory"))
		return
	}
	if !requirePathUser(w, r, userID) {
		return
	}

	if err := h.app.Stores.Vector.Delete(r.Context(), id); err != nil {
		writeServiceError(w, apperrors.StorageFailure("vector", err))
		return
	}

	episodic, _ := stored.Metadata[memory.MetaStoredInEpisodic].(bool)
	emotional, _ := stored.Metadata[memory.MetaStoredInEmotional].(bool)
	procedural, _ := stored.Metadata[memory.MetaStoredInProcedural].(bool)
	if episodic || emotional || procedural {
		_ = h.app.Stores.Relational.DeleteTypedByMemoryID(r.Context(), id, episodic, emotional, procedural)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "memory_id": id})
}

// postStore handles POST /v1/store: the full LLM-driven ingestion pipeline
// over either a single message or a transcript (spec.md §6.1 "full LLM
// pipeline").
func (h *handler) postStore(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID  string        `json:"user_id"`
		Content string        `json:"content"`
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

	history := make([]llmclient.Turn, 0, len(body.History)+1)
	for _, t := range body.History {
		history = append(history, llmclient.Turn{Role: t.Role, Content: t.Content})
	}
	if body.Content != "" {
		history = append(history, llmclient.Turn{Role: "user", Content: body.Content})
	}
	if len(history) == 0 {
		writeServiceError(w, apperrors.MissingField("content/history"))
		return
	}

	out, err := h.app.Extraction.Run(r.Context(), extraction.Input{UserID: body.UserID, History: history})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
