// Package web provides the HTTP API for contact imports.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/contactimport/internal/config"
	"github.com/JonMunkholm/contactimport/internal/core"
	"github.com/JonMunkholm/contactimport/internal/logging"
	"github.com/JonMunkholm/contactimport/internal/schema"
	"github.com/JonMunkholm/contactimport/internal/store"
	"github.com/JonMunkholm/contactimport/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ImportStore persists accepted imports. *store.Store implements it.
type ImportStore interface {
	SaveImport(ctx context.Context, result *core.ImportResult) error
	GetImport(ctx context.Context, id string) (*core.ImportResult, error)
	ListImports(ctx context.Context, limit, offset int) ([]store.ImportSummary, error)
	DeleteImport(ctx context.Context, id string) (store.DeleteResult, error)
}

// Server is the HTTP server for the contact import API.
type Server struct {
	cfg     *config.Config
	service *core.Service
	store   ImportStore // nil when persistence is disabled
	schema  *schema.Schema
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. store may be nil. ctx bounds background work
// such as rate limiter cleanup.
func NewServer(ctx context.Context, cfg *config.Config, service *core.Service, store ImportStore) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		store:   store,
		schema:  schema.CustomerSchema(),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger("/healthz"))
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := middleware.NewRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/schema", s.handleSchema)
		r.Get("/imports", s.handleListImports)
		r.Get("/imports/{importID}", s.handleGetImport)
		r.Delete("/imports/{importID}", s.handleDeleteImport)

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				upload := middleware.NewRateLimiter(ctx, s.cfg.Rate.UploadLimit, time.Minute)
				r.Use(upload.Middleware)
			}
			r.Post("/imports", s.handleImport)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	logging.FromContext(context.Background()).Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight imports.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.service.WaitForImports(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
