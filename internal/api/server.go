// Package api serves the fraud dashboard over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/fraudguard/internal/analysis"
	"github.com/opensource-finance/fraudguard/internal/auth"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/rules"
	"github.com/opensource-finance/fraudguard/internal/session"
	"github.com/opensource-finance/fraudguard/internal/throttle"
)

// Dependencies wires the server to its collaborators.
// Repository, Bus and Reloader may be nil.
type Dependencies struct {
	Sessions      *session.Manager
	Authenticator auth.Authenticator
	Analyzer      *analysis.Analyzer
	Throttle      *throttle.Service
	Engine        *rules.Engine
	Reloader      RulesReloader
	Predictor     Predictor
	Repository    domain.Repository
	Cache         domain.Cache
	Bus           domain.EventBus
	Version       string
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Public endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Get("/catalog", handler.Catalog)
	router.Post("/sessions", handler.Login)

	// Dashboard routes (session required)
	router.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(deps.Sessions))

		r.Delete("/sessions", handler.Logout)

		r.Get("/dashboard", handler.Dashboard)
		r.Put("/dashboard/model", handler.SelectModel)
		r.Put("/dashboard/form", handler.UpdateForm)
		r.Put("/dashboard/filters", handler.SetFilters)

		r.Post("/analyses", handler.Analyze)
		r.Get("/analyses", handler.ListAnalyses)
		r.Get("/analyses/export", handler.ExportAnalyses)
		r.Get("/analyses/{id}", handler.GetAnalysis)

		r.Post("/predict", handler.Predict)

		r.Get("/rules", handler.ListRules)
		r.Post("/rules/validate", handler.ValidateRule)
		r.Post("/rules/reload", handler.ReloadRules)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
