// Package web serves the validation engine over HTTP.
//
// Stateless routes take a whole workbook as JSON; session routes keep an
// uploaded workbook in a store so it can be fixed step by step and exported.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/sheetcheck/internal/cache"
	"github.com/JonMunkholm/sheetcheck/internal/config"
	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/store"
	mw "github.com/JonMunkholm/sheetcheck/internal/web/middleware"
)

// Deps are the collaborators a Server needs. Cache may be nil.
type Deps struct {
	Engine *core.Engine
	Store  store.Store
	Cache  cache.Reports
	Rules  []core.BusinessRule
}

// Server is the HTTP server for the validation API.
type Server struct {
	cfg     *config.Config
	engine  *core.Engine
	store   store.Store
	cache   cache.Reports
	rules   []core.BusinessRule
	limiter *ValidationLimiter
	router  *chi.Mux
	server  *http.Server

	rateLimiters []*rateLimiter
	stopJanitor  context.CancelFunc
	janitorDone  chan struct{}
}

// NewServer wires routes and middleware. It does not start listening.
func NewServer(cfg *config.Config, deps Deps) *Server {
	reports := deps.Cache
	if reports == nil {
		reports = cache.Noop{}
	}
	s := &Server{
		cfg:     cfg,
		engine:  deps.Engine,
		store:   deps.Store,
		cache:   reports,
		rules:   deps.Rules,
		limiter: NewValidationLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		r.Get("/validators", s.handleListValidators)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/export", s.handleExportSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)

		// Validation passes are rate limited more tightly and share a
		// bounded number of slots.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.newRateLimiter(s.cfg.Rate.ValidateLimit, time.Minute).middleware)
			}
			r.Use(s.limiter.middleware)

			r.Post("/validate", s.handleValidate)
			r.Post("/fix", s.handleFix)
			r.Post("/sessions/{id}/validate", s.handleValidateSession)
			r.Post("/sessions/{id}/fix", s.handleFixSession)
			r.Post("/sessions/{id}/repair", s.handleRepairSession)
		})
	})
}

// Start starts the session janitor and listens on the configured address.
// It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	s.janitorDone = make(chan struct{})
	go s.purgeSessions(ctx, s.cfg.Store.PurgeInterval, s.cfg.Store.SessionTTL)

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for running validations and
// stops background work.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.rateLimiters {
		rl.stop()
	}
	if s.stopJanitor != nil {
		s.stopJanitor()
		<-s.janitorDone
	}
	if s.server == nil {
		return nil
	}

	err := s.server.Shutdown(ctx)
	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for validations to finish", "active", active)
		if drainErr := s.limiter.WaitForDrain(ctx); drainErr != nil {
			err = errors.Join(err, drainErr)
		}
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Limiter exposes the validation limiter.
func (s *Server) Limiter() *ValidationLimiter {
	return s.limiter
}

// purgeSessions deletes sessions idle for longer than ttl every interval.
func (s *Server) purgeSessions(ctx context.Context, interval, ttl time.Duration) {
	defer close(s.janitorDone)
	if interval <= 0 || ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.store.Purge(ctx, now.Add(-ttl))
			if err != nil {
				slog.Error("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired sessions", "count", n)
			}
		}
	}
}

const contentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
