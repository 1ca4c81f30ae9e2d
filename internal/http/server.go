// Package http exposes the JSON API and the embedded frontend shell.
package http

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"daylog/internal/auth"
	"daylog/internal/core"
	applog "daylog/internal/log"
	"daylog/internal/middleware/ratelimit"
	"daylog/internal/middleware/security"
	"daylog/internal/middleware/trace"
	"daylog/internal/services"
	appweb "daylog/web"
)

// Server is the HTTP front of the application.
type Server struct {
	http.Server

	activities *services.ActivityService
	accounts   *auth.Service
	authCfg    auth.Config
	logger     *applog.Logger
	limiter    *ratelimit.Limiter
}

func NewServer(addr string, activities *services.ActivityService, accounts *auth.Service, authCfg auth.Config, logger *applog.Logger) *Server {
	s := &Server{
		activities: activities,
		accounts:   accounts,
		authCfg:    authCfg,
		logger:     logger.WithComponent(applog.ComponentHTTP),
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux := http.NewServeMux()

	// Auth endpoints stay public; everything else under /api requires a
	// bearer token.
	authMW := auth.NewMiddleware(authCfg, func(r *http.Request) bool {
		return !strings.HasPrefix(r.URL.Path, "/api/") ||
			strings.HasPrefix(r.URL.Path, "/api/auth/") ||
			r.URL.Path == "/api/categories"
	})

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)

	mux.HandleFunc("GET /api/activities", s.handleListActivities)
	mux.HandleFunc("POST /api/activities", s.handleCreateActivity)
	mux.HandleFunc("PUT /api/activities/{id}", s.handleUpdateActivity)
	mux.HandleFunc("DELETE /api/activities/{id}", s.handleDeleteActivity)
	mux.HandleFunc("GET /api/activities/watch", s.handleWatchActivities)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Embedded frontend shell.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.FileServer(http.FS(sub))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("embedded static assets unavailable", applog.FieldError, err)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger)
	limited := s.limiter.Middleware(trace.ExtractClientIP)

	s.Handler = headers.Middleware(tracer.Middleware(limited(authMW.Wrap(mux))))
	s.Addr = addr
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 0 // watch streams stay open indefinitely
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16

	return s
}

// Stop releases background resources owned by the server.
func (s *Server) Stop() {
	s.limiter.Stop()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready when the store answers a cheap read.
	if _, err := s.activities.List(r.Context(), "readiness-probe", core.Today()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
