package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/org/endura/internal/auth"
	"github.com/org/endura/internal/docs"
	"github.com/org/endura/internal/mailer"
	"github.com/org/endura/internal/storage"
	"github.com/org/endura/internal/workflow"
	"github.com/rs/zerolog/log"
)

// Config holds server configuration.
type Config struct {
	ListenAddr     string
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server is the API server.
type Server struct {
	store    storage.Store
	sessions *auth.Sessions
	flow     *workflow.Engine
	docs     docs.Store
	cfg      Config
	httpSrv  *http.Server
}

// NewServer creates a fully wired Server.
func NewServer(store storage.Store, sessions *auth.Sessions, mail mailer.Sender, documents docs.Store, cfg Config) *Server {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &Server{
		store:    store,
		sessions: sessions,
		flow:     workflow.NewEngine(store, mail),
		docs:     documents,
		cfg:      cfg,
	}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(newRateLimiter(100, 200).middleware)

	// Prometheus metrics (unauthenticated)
	r.Handle("/metrics", MetricsHandler())

	// Public routes (no auth required)
	r.Group(func(r chi.Router) {
		r.Get("/api/health", s.HealthHandler)
		r.Post("/api/register/", s.RegisterHandler)
		r.Post("/api/login/", s.LoginHandler)
		r.Post("/api/refresh/", s.RefreshHandler)
		// Public: the executor has no account. The email + pending-status
		// pair is the only capability guarding this endpoint.
		r.Post("/api/verify-executor/", s.VerifyExecutorHandler)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.sessions))

		r.Get("/api/dashboard/", s.DashboardHandler)
		r.Get("/api/vault/", s.VaultGetHandler)
		r.Post("/api/vault/", s.VaultPutHandler)
		r.Get("/api/letters/", s.LettersListHandler)
		r.Post("/api/letters/", s.LetterCreateHandler)
		r.Get("/api/executor/", s.ExecutorGetHandler)
		r.Post("/api/executor/", s.ExecutorUpsertHandler)
	})

	// Administrative routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.sessions))
		r.Use(adminOnly)

		r.Get("/api/admin/executors", s.AdminListExecutorsHandler)
		r.Post("/api/admin/executors/notify", s.AdminNotifyHandler)
		r.Post("/api/admin/executors/grant-email", s.AdminGrantEmailHandler)
		r.Patch("/api/admin/executors/{id}", s.AdminEditExecutorHandler)
		r.Get("/api/admin/notifications", s.AdminNotificationsHandler)
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	handler := s.BuildRouter()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		s.httpSrv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTPS server")
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// HealthHandler handles GET /api/health. It also refreshes the executor
// status gauge, which keeps the metric current without a background job.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if counts, err := s.store.CountExecutorsByStatus(r.Context()); err == nil {
		for status, count := range counts {
			executorsByStatus.WithLabelValues(string(status)).Set(float64(count))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": "1.0.0",
	})
}
