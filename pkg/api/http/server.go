package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/kvarea/internal/application/area"
	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	registry *area.Registry
	store    ports.Store
	checks   map[string]ports.HealthChecker
	changes  ChangeReader
	sink     ports.ErrorSink
	logger   *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr     string
	Registry *area.Registry
	// Store is pinged by the health endpoint when it implements ports.Pinger
	Store ports.Store
	// Checks are reported by the health endpoint under their names
	Checks map[string]ports.HealthChecker
	// Changes serves /api/v1/changes; the route is absent when nil
	Changes ChangeReader
	// Sink receives rejected requests; nil discards them
	Sink   ports.ErrorSink
	Logger *zap.Logger
	// Gatherer serves /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware())

	sink := cfg.Sink
	if sink == nil {
		sink = ports.ErrorSinkFunc(func(error) {})
	}

	s := &Server{
		router:   router,
		registry: cfg.Registry,
		store:    cfg.Store,
		checks:   cfg.Checks,
		changes:  cfg.Changes,
		sink:     sink,
		logger:   logger,
	}

	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	return s
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	if gatherer == nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	} else {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/areas", s.handleListAreas)

		if s.changes != nil {
			v1.GET("/changes", s.handleReadChanges)
		}

		areas := v1.Group("/areas/:area")
		{
			areas.GET("/items", s.handleGetItems)
			areas.POST("/get", s.handleGet)
			areas.PUT("/items", s.handleSet)
			areas.POST("/remove", s.handleRemove)
			areas.DELETE("/items", s.handleClear)
			areas.POST("/bytes-in-use", s.handleBytesInUse)
		}
	}
}

// SetupWebSocket adds WebSocket handler to the server
func (s *Server) SetupWebSocket(handler interface{}) {
	if wsHandler, ok := handler.(interface {
		HandleChangeStream(*gin.Context)
	}); ok {
		s.router.GET("/api/v1/changes/ws", wsHandler.HandleChangeStream)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
