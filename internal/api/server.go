// Package api provides the HTTP API server and handlers for the booksheet editor.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/booksheet/booksheet-server/internal/config"
	"github.com/booksheet/booksheet-server/internal/ratelimit"
	"github.com/booksheet/booksheet-server/internal/service"
)

// Version is reported in the OpenAPI document and health checks.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg         *config.Config
	sheets      *service.SheetService
	loadLimiter *ratelimit.KeyedRateLimiter
	gatherer    prometheus.Gatherer
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// A nil loadLimiter disables rate limiting; a nil gatherer disables /metrics.
func NewServer(cfg *config.Config, sheets *service.SheetService, loadLimiter *ratelimit.KeyedRateLimiter, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		cfg:         cfg,
		sheets:      sheets,
		loadLimiter: loadLimiter,
		gatherer:    gatherer,
		router:      router,
		logger:      logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Booksheet API", Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the underlying huma API.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// registerRoutes configures all HTTP routes.
func (s *Server) registerRoutes() {
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.registerHealthRoutes()
	s.registerSheetRoutes()
}
