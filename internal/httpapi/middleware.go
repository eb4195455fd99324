package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	svcmetrics "github.com/ankitaa186/agentic-memories-sub004/internal/metrics"
)

type ctxKey string

const userIDContextKey ctxKey = "httpapi.user_id"

// Claims is the bearer token payload issued to an authenticated caller
// (spec.md §6.5 "Authentication").
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for userID valid for ttl, matching the
// teacher's HS256 gateway-token pattern.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "memoryservice",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func validateToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.UserID, nil
}

// noAuthPaths never require a bearer token.
var noAuthPaths = map[string]bool{
	"/health":      true,
	"/health/full": true,
	"/metrics":     true,
}

// withAuth enforces a bearer JWT on every request except noAuthPaths, storing
// the authenticated user id in the request context (spec.md §6.5).
func withAuth(secret string, log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if strings.TrimSpace(secret) == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if noAuthPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if len(authHeader) < 7 || !strings.HasPrefix(authHeader, "Bearer ") {
				writeServiceError(w, authError("missing bearer token"))
				return
			}

			userID, err := validateToken([]byte(secret), authHeader[7:])
			if err != nil {
				if log != nil {
					log.WithError(err).Warn("rejected bearer token")
				}
				writeServiceError(w, authError("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticatedUser(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}

// withInstrumentation records request counts/durations/in-flight gauge in
// the service's Prometheus metrics, mirroring the teacher's
// metrics.InstrumentHandler wrapper.
func withInstrumentation(m *svcmetrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.RecordHTTPRequest(r.Method, routePattern(r), fmt.Sprintf("%d", sw.status), time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// routePattern prefers the matched mux route template over the raw path so
// requests to /v1/memories/{id} aggregate under one metrics series instead
// of one per memory id.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil && tmpl != "" {
			return tmpl
		}
	}
	return r.URL.Path
}
