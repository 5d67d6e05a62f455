package ui

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"statlab/app"
	"statlab/domain/analysis"
	"statlab/domain/core"
)

type runRequest struct {
	DatasetID string          `json:"dataset_id" binding:"required"`
	Kind      string          `json:"kind" binding:"required"`
	Params    analysis.Params `json:"params"`
}

type batchRequest struct {
	DatasetID string             `json:"dataset_id" binding:"required"`
	Analyses  []app.BatchRequest `json:"analyses" binding:"required"`
}

// handleRunAnalysis runs one procedure synchronously and returns the record.
func (s *Server) handleRunAnalysis(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	datasetID, err := core.ParseDatasetID(req.DatasetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := analysis.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := s.analyses.Run(requestContext(c), datasetID, kind, req.Params)
	if err != nil {
		// A persisted failed run still comes back to the caller.
		if record != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "analysis": record})
			return
		}
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"analysis": record})
}

// handleRunBatch runs several procedures against one dataset concurrently.
func (s *Server) handleRunBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	datasetID, err := core.ParseDatasetID(req.DatasetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, entry := range req.Analyses {
		if _, err := analysis.ParseKind(string(entry.Kind)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	results, err := s.analyses.RunBatch(requestContext(c), datasetID, req.Analyses)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleListKinds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kinds": s.analyses.Kinds()})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	id, ok := s.analysisID(c)
	if !ok {
		return
	}
	record, err := s.analyses.Get(requestContext(c), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": record})
}

func (s *Server) handleGetChart(c *gin.Context) {
	id, ok := s.analysisID(c)
	if !ok {
		return
	}
	chart, err := s.analyses.GetChart(requestContext(c), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", chart)
}

// handleExportAnalysis downloads the stored summary as an Excel workbook.
// The workbook is built first so errors still come back as JSON.
func (s *Server) handleExportAnalysis(c *gin.Context) {
	id, ok := s.analysisID(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.analyses.ExportSummary(requestContext(c), id, &buf); err != nil {
		s.renderError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%s.xlsx"`, id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// handleQueryAnalyses lists analyses selected with ?dataset_id=.
func (s *Server) handleQueryAnalyses(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Query("dataset_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter dataset_id is required"})
		return
	}
	limit, offset := pagination(c)
	records, err := s.analyses.ListByDataset(requestContext(c), id, limit, offset)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records, "count": len(records)})
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	id, ok := s.datasetID(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	records, err := s.analyses.ListByDataset(requestContext(c), id, limit, offset)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records, "count": len(records)})
}

func (s *Server) analysisID(c *gin.Context) (core.AnalysisID, bool) {
	id, err := core.ParseAnalysisID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}

// renderError maps domain errors onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case core.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case core.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
