package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/reconcile-backend/internal/api/handlers"
	"github.com/eshaffer321/reconcile-backend/internal/api/middleware"
	"github.com/eshaffer321/reconcile-backend/internal/application/service"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	MaxUploadBytes int64
	UploadRPS      float64
	UploadBurst    int
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		MaxUploadBytes: 20 << 20,
		UploadRPS:      1,
		UploadBurst:    5,
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	svc        *service.ReconcileService
	db         handlers.SchemaVersioner
}

// NewServer creates a new API server. db feeds the health check and may
// be nil.
func NewServer(cfg Config, svc *service.ReconcileService, db handlers.SchemaVersioner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		svc:    svc,
		db:     db,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)

	// CORS
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.db)
	s.router.Get("/health", healthHandler.ServeHTTP)

	uploadLimiter := middleware.NewRateLimiter(s.config.UploadRPS, s.config.UploadBurst, s.logger)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireOwner)

		// Imports
		importsHandler := handlers.NewImportsHandler(s.svc, s.config.MaxUploadBytes, s.logger)
		r.With(uploadLimiter.Middleware).Post("/imports", importsHandler.Create)
		r.Get("/imports", importsHandler.List)

		// Entries
		entriesHandler := handlers.NewEntriesHandler(s.svc, s.logger)
		r.Get("/entries", entriesHandler.List)
		r.Delete("/entries", entriesHandler.Clear)

		// Matches
		matchesHandler := handlers.NewMatchesHandler(s.svc, s.logger)
		r.Get("/matches", matchesHandler.List)
		r.Post("/matches/manual", matchesHandler.Manual)
		r.Post("/matches/auto", matchesHandler.Auto)
		r.Delete("/matches/{id}", matchesHandler.Delete)

		// Rules
		rulesHandler := handlers.NewRulesHandler(s.svc, s.logger)
		r.Get("/rules", rulesHandler.Get)
		r.Put("/rules", rulesHandler.Update)

		// Summary and export
		reportsHandler := handlers.NewReportsHandler(s.svc, s.logger)
		r.Get("/summary", reportsHandler.Summary)
		r.Get("/report", reportsHandler.Export)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
