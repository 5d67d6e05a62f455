package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"statlab/app"
	"statlab/internal"
)

// Server exposes the dataset and analysis services over HTTP.
type Server struct {
	router   *gin.Engine
	datasets *app.DatasetService
	analyses *app.AnalysisService
	logger   *internal.Logger

	maxUploadBytes int64
}

// NewServer creates a new web server instance
func NewServer(datasets *app.DatasetService, analyses *app.AnalysisService, logger *internal.Logger, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	s := &Server{
		router:         gin.New(),
		datasets:       datasets,
		analyses:       analyses,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the underlying HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until the listener fails
func (s *Server) Start(port string) error {
	s.logger.Info("listening on :%s", port)
	return s.router.Run(":" + port)
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.router.MaxMultipartMemory = 8 << 20
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("%s %s -> %d (%dms)",
			c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Milliseconds())
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealthz)

	api := s.router.Group("/api")
	{
		api.POST("/datasets", s.handleUploadDataset)
		api.GET("/datasets", s.handleListDatasets)
		api.GET("/datasets/:id", s.handleGetDataset)
		api.DELETE("/datasets/:id", s.handleDeleteDataset)
		api.GET("/datasets/:id/export", s.handleExportDataset)
		api.GET("/datasets/:id/analyses", s.handleListAnalyses)

		api.POST("/analyses", s.handleRunAnalysis)
		api.GET("/analyses", s.handleQueryAnalyses)
		api.POST("/analyses/batch", s.handleRunBatch)
		api.GET("/analyses/kinds", s.handleListKinds)
		api.GET("/analyses/:id", s.handleGetAnalysis)
		api.GET("/analyses/:id/chart", s.handleGetChart)
		api.GET("/analyses/:id/export", s.handleExportAnalysis)
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestContext returns the request-scoped context for service calls.
func requestContext(c *gin.Context) context.Context {
	return c.Request.Context()
}
