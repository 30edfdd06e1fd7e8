package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samnmbuguah/FundingRate/internal/cache"
	"github.com/samnmbuguah/FundingRate/internal/collector"
	"github.com/samnmbuguah/FundingRate/internal/config"
	"github.com/samnmbuguah/FundingRate/internal/database"
	"github.com/samnmbuguah/FundingRate/internal/funding"
	"github.com/samnmbuguah/FundingRate/internal/logger"
	"github.com/samnmbuguah/FundingRate/internal/monitoring"
)

// Server represents the API server
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	handler    *Handler

	db      *database.DB
	cacher  cache.Cacher
	metrics *monitoring.Metrics
}

// Deps carries the services the API serves from. DB is nil when the service
// runs on the in-memory store; Metrics may be nil in tests.
type Deps struct {
	Store     funding.Store
	Cacher    cache.Cacher
	DB        *database.DB
	Status    *collector.StatusTracker
	Snapshots *collector.Snapshots
	Metrics   *monitoring.Metrics
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps *Deps) *Server {
	// Set Gin mode
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:  cfg,
		router:  gin.New(),
		handler: NewHandler(deps.Store, deps.Cacher, deps.Status, deps.Snapshots),
		db:      deps.DB,
		cacher:  deps.Cacher,
		metrics: deps.Metrics,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger())
	s.router.Use(corsMiddleware(s.config.CORS))
	s.router.Use(s.metrics.MetricsMiddleware())

	// Prometheus metrics
	if s.config.Monitoring.PrometheusEnabled {
		s.router.GET(s.config.Monitoring.PrometheusPath, gin.WrapH(monitoring.PrometheusHandler()))
	}

	// API v1 group
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/opportunities/:exchange", s.handler.GetOpportunities)
		v1.GET("/history/:exchange/:symbol", s.handler.GetHistory)
		v1.GET("/latest/:exchange/:symbol", s.handler.GetLatest)
		v1.GET("/summary/:exchange", s.handler.GetSummary)
		v1.GET("/status", s.handler.GetStatus)
	}

	// Route of the original browser UI, kept for compatibility.
	s.router.GET("/api/funding_rates", s.handler.GetLegacyRates)

	// Health check
	s.router.GET("/health", s.healthHandler)
}

func (s *Server) healthHandler(c *gin.Context) {
	dbHealth := "ok"
	if s.db != nil {
		if err := s.db.HealthCheck(c.Request.Context()); err != nil {
			dbHealth = "error"
		}
	} else {
		dbHealth = "disabled"
	}

	cacheHealth := "ok"
	if s.cacher != nil {
		if err := s.cacher.HealthCheck(c.Request.Context()); err != nil {
			cacheHealth = "error"
		}
	} else {
		cacheHealth = "disabled"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
		"services": gin.H{
			"database": dbHealth,
			"cache":    cacheHealth,
		},
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout.Duration(),
		WriteTimeout: s.config.Server.WriteTimeout.Duration(),
	}

	logger.Info("starting API server", "host", s.config.Server.Host, "port", s.config.Server.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("API server stopped")
	return nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// requestLogger logs each served request through the structured logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.LogHTTPRequest(logger.GetGlobalLogger(), logger.HTTPRequestInfo{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
			Latency:    time.Since(start),
			ClientIP:   c.ClientIP(),
		})
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware(corsConfig config.CORSConfig) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool)
	for _, origin := range corsConfig.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}
	methods := strings.Join(corsConfig.AllowedMethods, ", ")
	headers := strings.Join(corsConfig.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		if methods != "" {
			c.Header("Access-Control-Allow-Methods", methods)
		}
		if headers != "" {
			c.Header("Access-Control-Allow-Headers", headers)
		}
		if corsConfig.AllowCredentials && !allowAll {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
