package ui

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"statlab/domain/core"
	"statlab/domain/dataset"
)

// handleUploadDataset accepts a multipart CSV or XLSX upload.
func (s *Server) handleUploadDataset(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	if file.Size > s.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file is %d bytes, the limit is %d", file.Size, s.maxUploadBytes),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer src.Close()

	name := c.PostForm("name")
	ds, err := s.datasets.Ingest(requestContext(c), name, file.Filename, src)
	if err != nil {
		// The failed dataset record, when one exists, is returned so the
		// client can inspect it later.
		status := http.StatusBadRequest
		body := gin.H{"error": err.Error()}
		if ds != nil {
			body["dataset"] = ds.Summary()
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dataset": ds.Summary()})
}

func (s *Server) handleListDatasets(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := s.datasets.List(requestContext(c), limit, offset)
	if err != nil {
		s.renderError(c, err)
		return
	}
	summaries := make([]dataset.Dataset, 0, len(list))
	for _, ds := range list {
		summaries = append(summaries, ds.Summary())
	}
	c.JSON(http.StatusOK, gin.H{"datasets": summaries, "count": len(summaries)})
}

func (s *Server) handleGetDataset(c *gin.Context) {
	id, ok := s.datasetID(c)
	if !ok {
		return
	}
	ds, err := s.datasets.Get(requestContext(c), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dataset": ds})
}

func (s *Server) handleDeleteDataset(c *gin.Context) {
	id, ok := s.datasetID(c)
	if !ok {
		return
	}
	if err := s.datasets.Delete(requestContext(c), id); err != nil {
		s.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportDataset(c *gin.Context) {
	id, ok := s.datasetID(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")

	var contentType, ext string
	switch format {
	case "csv":
		contentType, ext = "text/csv", "csv"
	case "xlsx":
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="dataset-%s.%s"`, id, ext))
	if err := s.datasets.Export(requestContext(c), id, format, c.Writer); err != nil {
		// Headers may already be out; log rather than switch to JSON midway.
		s.logger.Error("export dataset %s: %v", id, err)
		c.Status(http.StatusInternalServerError)
	}
}

func (s *Server) datasetID(c *gin.Context) (core.DatasetID, bool) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
