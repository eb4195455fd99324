package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ankitaa186/agentic-memories-sub004/internal/app"
	"github.com/ankitaa186/agentic-memories-sub004/internal/app/system"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
)

// Service exposes the HTTP API (spec.md §6.1) and fits into the
// system.Manager lifecycle the same way every other engine does, grounded
// on the teacher's internal/app/httpapi.Service (addr/server/handler fields,
// Start spawns ListenAndServe in a goroutine, Stop calls server.Shutdown).
type Service struct {
	addr    string
	server  *http.Server
	handler http.Handler
	log     *logging.Logger
}

// NewService builds the routed, middleware-wrapped HTTP handler for a. The
// middleware order mirrors the teacher's: CORS short-circuits preflight
// before auth sees the request, instrumentation wraps the final handler so
// every response (including auth rejections) is recorded.
func NewService(a *app.App, addr string) *Service {
	log := a.Log

	var h http.Handler = newRouter(a)
	h = withAuth(a.Config.Auth.JWTSecret, log)(h)
	h = wrapWithCORS(a.Config.Server.CORSOrigins)(h)
	h = withInstrumentation(a.Metrics)(h)

	return &Service{addr: addr, handler: h, log: log}
}

var _ system.Service = (*Service)(nil)

func (s *Service) Name() string { return "http" }

func (s *Service) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.log != nil {
				s.log.WithError(err).Error("http server error")
			}
		}
	}()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// wrapWithCORS allows cross-origin requests from the configured origins (or
// any origin when none are configured) and short-circuits preflight
// requests, mirroring the teacher's CORS middleware.
func wrapWithCORS(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
