// Package ui exposes the JSON HTTP API and the admin endpoints.
package ui

import (
	"net/http"

	"excelinsights/app"
	"excelinsights/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

// Options configures the API server.
type Options struct {
	GinMode        string
	MaxUploadBytes int64
}

// Server represents the JSON API server
type Server struct {
	router    *gin.Engine
	service   *app.InsightService
	validate  *validator.Validate
	maxUpload int64
	logger    *zap.Logger
}

// NewServer creates the router and registers every route.
func NewServer(service *app.InsightService, opts Options, logger *zap.Logger) *Server {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:    gin.New(),
		service:   service,
		validate:  validator.New(),
		maxUpload: opts.MaxUploadBytes,
		logger:    logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/v1")
	api.GET("/datasets", s.handleHistory)
	api.GET("/datasets/:id", s.handleRecord)

	sessions := api.Group("/sessions")
	sessions.POST("", s.handleUpload)
	sessions.GET("/:id", s.handleOverview)
	sessions.DELETE("/:id", s.handleDelete)
	sessions.GET("/:id/stats", s.handleStats)
	sessions.GET("/:id/correlations", s.handleCorrelations)
	sessions.POST("/:id/clean-columns", s.handleClean)
	sessions.POST("/:id/missing", s.handleMissing)
	sessions.POST("/:id/charts", s.handleChart)
	sessions.GET("/:id/charts/:analysis", s.handleAnalysis)
	sessions.GET("/:id/dashboards/:name", s.handleDashboard)
	sessions.POST("/:id/query", s.handleQuery)
	sessions.GET("/:id/insights", s.handleInsights)
	sessions.GET("/:id/columns/:column/analysis", s.handleColumnAnalysis)
	sessions.GET("/:id/export", s.handleExport)

	s.router.NoRoute(func(c *gin.Context) {
		s.writeError(c, errors.NotFound("route"))
	})
}
