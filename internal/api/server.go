package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dhruvsoni1802/dailydm/internal/jobs"
	"github.com/dhruvsoni1802/dailydm/internal/metrics"
)

// Pinger is a backend /healthz can check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components the API exposes
type Deps struct {
	Coordinator  *jobs.Coordinator
	Metrics      *metrics.Recorder
	MessagesFile string
	CookieStore  Pinger           // optional, only remote stores answer pings
	NextRun      func() time.Time // optional
	Now          func() time.Time // optional, defaults to time.Now
}

// Server represents the HTTP API server
type Server struct {
	router *chi.Mux
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(port string, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(cors.Handler(cors.Options{
		// The companion extension calls from a chrome-extension:// origin
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	handlers := NewHandlers(deps)

	router.Get("/healthz", handlers.Health)
	router.Get("/messages/today", handlers.TodaysMessage)

	router.Route("/runs", func(r chi.Router) {
		r.Post("/", handlers.StartRun)
		r.Get("/latest", handlers.LatestRun)
	})

	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		router: router,
		server: server,
		logger: logger,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
