// Package httpapi exposes the memory service's REST surface (spec.md §6.1)
// over a gorilla/mux router, grounded on the teacher's
// internal/marble.Service (mux.Router field, Start/Stop around *http.Server)
// and internal/app/httpapi.handler (bundled endpoint methods + writeJSON/
// writeError/decodeJSON helpers).
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ankitaa186/agentic-memories-sub004/internal/app"
	apperrors "github.com/ankitaa186/agentic-memories-sub004/internal/errors"
)

// handler bundles every resource's HTTP endpoints over a shared *app.App.
type handler struct {
	app *app.App
}

func newHandler(a *app.App) *handler {
	return &handler{app: a}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validation("request body is not valid JSON: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError translates any error into the taxonomy response shape
// from spec.md §7: `{error_code, message, details?, correlation_id}`.
func writeServiceError(w http.ResponseWriter, err error) {
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil {
		svcErr = apperrors.Internal("unexpected error", err)
	}
	writeJSON(w, apperrors.GetHTTPStatus(svcErr), svcErr)
}

func authError(message string) error {
	return apperrors.New(apperrors.CodeConsentDenied, message).WithDetails("reason", "authentication")
}

// requirePathUser enforces that the authenticated caller matches the
// user_id named in the request — direct store/delete operations never act
// on another user's memories (spec.md §6.5).
func requirePathUser(w http.ResponseWriter, r *http.Request, pathUserID string) bool {
	authUserID, ok := authenticatedUser(r)
	if !ok {
		// No auth configured (AuthConfig.JWTSecret empty): trust the path.
		return true
	}
	if authUserID != pathUserID {
		writeServiceError(w, apperrors.Forbidden("token does not authorize this user_id"))
		return false
	}
	return true
}

func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

func routeVar(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}
