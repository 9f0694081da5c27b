// Package web provides the HTTP server and handlers for the questionnaire.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/resilience/internal/config"
	"github.com/JonMunkholm/resilience/internal/metrics"
	"github.com/JonMunkholm/resilience/internal/survey"
	"github.com/JonMunkholm/resilience/internal/web/middleware"
)

// Server is the HTTP server for the questionnaire.
type Server struct {
	cfg      *config.Config
	session  *survey.Session
	metrics  *metrics.Metrics
	validate *validator.Validate
	limiter  *rateLimiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server around one in-memory session.
func NewServer(cfg *config.Config, session *survey.Session, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		session:  session,
		metrics:  m,
		validate: validator.New(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	srv := cfg.Server
	s.server = &http.Server{
		Addr:         srv.Addr(),
		Handler:      s.router,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		IdleTimeout:  srv.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		s.router.Use(s.limiter.middleware(s.respondError))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Post("/form/{mode}", s.handleFormSave)
	s.router.Post("/form/{mode}/reset", s.handleFormReset)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)

		r.Get("/session", s.handleSession)
		r.Put("/session/name", s.handleSetName)

		r.Get("/responses/{mode}", s.handleResponses)
		r.Put("/responses/{mode}/{pairID}/{side}", s.handleSetAllocation)
		r.Post("/responses/{mode}/reset", s.handleReset)

		r.Get("/comparison", s.handleComparison)

		// {file} is "<mode>.csv", "<mode>.json" or "both.csv"
		r.Get("/export/{file}", s.handleExport)
	})
}

// Start listens until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr, "session_id", s.session.ID)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and the rate limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
