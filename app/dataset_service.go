package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"statlab/adapters/ingest"
	"statlab/domain/core"
	"statlab/domain/dataset"
	"statlab/internal"
	"statlab/ports"
)

// DatasetService handles dataset ingestion, retrieval, and export.
type DatasetService struct {
	datasets ports.DatasetRepository
	analyses ports.AnalysisRepository
	logger   *internal.Logger
}

// NewDatasetService creates a new dataset service
func NewDatasetService(datasets ports.DatasetRepository, analyses ports.AnalysisRepository, logger *internal.Logger) *DatasetService {
	return &DatasetService{datasets: datasets, analyses: analyses, logger: logger}
}

// Ingest parses an uploaded file, infers column types, and persists the
// dataset. A parse failure is recorded as a failed dataset so the upload
// remains visible in listings.
func (s *DatasetService) Ingest(ctx context.Context, name, filename string, r io.Reader) (*dataset.Dataset, error) {
	now := time.Now().UTC()
	ds := &dataset.Dataset{
		ID:               core.DatasetID(core.NewID()),
		Name:             name,
		OriginalFilename: filename,
		Source:           "upload",
		Status:           dataset.StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ds.Name == "" {
		ds.Name = filename
	}

	tbl, err := ingest.Read(filename, r)
	if err != nil {
		ds.Status = dataset.StatusFailed
		ds.ErrorMessage = err.Error()
		if createErr := s.datasets.Create(ctx, ds); createErr != nil {
			return nil, createErr
		}
		s.logger.Warn("dataset %s failed to parse: %v", ds.ID, err)
		return ds, fmt.Errorf("parse %s: %w", filename, err)
	}

	ds.Table = tbl
	ds.RowCount = tbl.RowCount()
	ds.ColumnCount = len(tbl.Columns)
	ds.MissingRate = tbl.MissingRate()
	ds.Status = dataset.StatusReady

	if err := s.datasets.Create(ctx, ds); err != nil {
		return nil, err
	}
	s.logger.Info("dataset %s ingested: %d rows, %d columns", ds.ID, ds.RowCount, ds.ColumnCount)
	return ds, nil
}

// Get retrieves a dataset with its table
func (s *DatasetService) Get(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	return s.datasets.GetByID(ctx, id)
}

// List retrieves dataset summaries, newest first
func (s *DatasetService) List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.datasets.List(ctx, limit, offset)
}

// Delete removes a dataset and every analysis that references it
func (s *DatasetService) Delete(ctx context.Context, id core.DatasetID) error {
	if err := s.analyses.DeleteByDataset(ctx, id); err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("dataset %s deleted", id)
	return nil
}

// Export writes the dataset's table in the requested format
func (s *DatasetService) Export(ctx context.Context, id core.DatasetID, format string, w io.Writer) error {
	ds, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ds.Table == nil {
		return fmt.Errorf("%w: dataset %s has no table", core.ErrEmptyDataset, id)
	}

	switch format {
	case "csv":
		return ingest.WriteCSV(w, ds.Table)
	case "xlsx":
		return ingest.WriteXLSX(w, ds.Table)
	default:
		return fmt.Errorf("unsupported export format %q: expected csv or xlsx", format)
	}
}
