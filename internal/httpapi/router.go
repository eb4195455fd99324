package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ankitaa186/agentic-memories-sub004/internal/app"
)

// newRouter wires every resource handler onto a gorilla/mux router, grounded
// on the teacher's internal/marble.Service route registration.
func newRouter(a *app.App) *mux.Router {
	h := newHandler(a)
	r := mux.NewRouter()

	r.HandleFunc("/health", h.getHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/full", h.getHealthFull).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/store", h.postStore).Methods(http.MethodPost)
	v1.HandleFunc("/memories/direct", h.postDirectMemory).Methods(http.MethodPost)
	v1.HandleFunc("/memories/{id}", h.deleteMemory).Methods(http.MethodDelete)

	v1.HandleFunc("/retrieve", h.getRetrieve).Methods(http.MethodGet)
	v1.HandleFunc("/retrieve", h.postRetrieve).Methods(http.MethodPost)
	v1.HandleFunc("/retrieve/structured", h.postStructuredRetrieve).Methods(http.MethodPost)
	v1.HandleFunc("/narrative", h.postNarrative).Methods(http.MethodPost)

	v1.HandleFunc("/orchestrator/message", h.postMessage).Methods(http.MethodPost)
	v1.HandleFunc("/orchestrator/transcript", h.postTranscript).Methods(http.MethodPost)
	v1.HandleFunc("/orchestrator/retrieve", h.postOrchestratorRetrieve).Methods(http.MethodPost)

	v1.HandleFunc("/profile", h.getProfile).Methods(http.MethodGet)
	v1.HandleFunc("/profile/completeness", h.getProfileCompleteness).Methods(http.MethodGet)
	v1.HandleFunc("/profile/{category}", h.getProfileCategory).Methods(http.MethodGet)
	v1.HandleFunc("/profile/{cat}/{field}", h.putProfileField).Methods(http.MethodPut)

	v1.HandleFunc("/portfolio/summary", h.getPortfolioSummary).Methods(http.MethodGet)
	v1.HandleFunc("/portfolio/holding", h.postHolding).Methods(http.MethodPost, http.MethodPut)
	v1.HandleFunc("/portfolio/holding", h.deleteHolding).Methods(http.MethodDelete)

	v1.HandleFunc("/maintenance", h.postMaintenance).Methods(http.MethodPost)
	v1.HandleFunc("/maintenance/compact", h.postMaintenance).Methods(http.MethodPost)
	v1.HandleFunc("/maintenance/compact_all", h.postMaintenance).Methods(http.MethodPost)
	v1.HandleFunc("/maintenance/unlock", h.postMaintenanceUnlock).Methods(http.MethodPost)

	v1.HandleFunc("/intents", h.postIntent).Methods(http.MethodPost)
	v1.HandleFunc("/intents", h.getIntents).Methods(http.MethodGet)
	v1.HandleFunc("/intents/pending", h.getPendingIntents).Methods(http.MethodGet)
	v1.HandleFunc("/intents/{id}", h.getIntent).Methods(http.MethodGet)
	v1.HandleFunc("/intents/{id}", h.patchIntent).Methods(http.MethodPatch)
	v1.HandleFunc("/intents/{id}", h.deleteIntent).Methods(http.MethodDelete)
	v1.HandleFunc("/intents/{id}/fire", h.postFireIntent).Methods(http.MethodPost)

	return r
}

// getHealth handles GET /health: a lightweight liveness probe.
func (h *handler) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getHealthFull handles GET /health/full: per-adapter health, feeding the
// same data recorded in the StoreHealthUp gauge.
func (h *handler) getHealthFull(w http.ResponseWriter, r *http.Request) {
	statuses := h.app.Health(r.Context())
	ok := true
	for _, s := range statuses {
		if !s.OK {
			ok = false
			break
		}
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": ok, "stores": statuses})
}
