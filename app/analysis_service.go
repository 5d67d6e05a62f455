package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"statlab/adapters/ingest"
	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"
	"statlab/internal"
	"statlab/ports"
)

// AnalysisService runs statistical procedures against stored datasets and
// persists their results with a rendered diagnostic chart.
type AnalysisService struct {
	datasets ports.DatasetRepository
	analyses ports.AnalysisRepository
	registry *Registry
	renderer ports.ChartRenderer
	logger   *internal.Logger

	// maxBatch bounds concurrent runs inside one batch request.
	maxBatch int
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	datasets ports.DatasetRepository,
	analyses ports.AnalysisRepository,
	registry *Registry,
	renderer ports.ChartRenderer,
	logger *internal.Logger,
	maxBatch int,
) *AnalysisService {
	if maxBatch < 1 {
		maxBatch = 1
	}
	return &AnalysisService{
		datasets: datasets,
		analyses: analyses,
		registry: registry,
		renderer: renderer,
		logger:   logger,
		maxBatch: maxBatch,
	}
}

// Run executes one analysis end to end: load the dataset, validate the
// request, run the procedure, render its chart, and persist the record.
// Failed runs are persisted with their error message.
func (s *AnalysisService) Run(ctx context.Context, datasetID core.DatasetID, kind analysis.Kind, params analysis.Params) (*analysis.Analysis, error) {
	tbl, err := s.loadTable(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	analyzer, err := s.registry.Get(kind)
	if err != nil {
		return nil, err
	}
	if err := analyzer.Validate(tbl, params); err != nil {
		return nil, err
	}

	record := &analysis.Analysis{
		ID:        core.AnalysisID(core.NewID()),
		DatasetID: datasetID,
		Kind:      kind,
		Params:    params,
		Status:    analysis.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.analyses.Create(ctx, record); err != nil {
		return nil, err
	}

	started := time.Now()
	summary, runErr := analyzer.Run(ctx, tbl, params)
	record.ElapsedMS = time.Since(started).Milliseconds()

	if runErr != nil {
		record.Status = analysis.StatusFailed
		record.ErrorMessage = runErr.Error()
		if err := s.analyses.Update(ctx, record); err != nil {
			s.logger.Error("analysis %s: failed to persist failure: %v", record.ID, err)
		}
		s.logger.Warn("analysis %s (%s) failed after %dms: %v", record.ID, kind, record.ElapsedMS, runErr)
		return record, runErr
	}

	record.Summary = summary
	chart, err := s.renderer.Render(kind, summary)
	if err != nil {
		// The numbers are good even when the chart is not; keep them.
		s.logger.Error("analysis %s: chart render failed: %v", record.ID, err)
	} else {
		record.ChartPNG = chart
	}
	record.Status = analysis.StatusComplete

	if err := s.analyses.Update(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("analysis %s (%s) completed in %dms", record.ID, kind, record.ElapsedMS)
	return record, nil
}

// BatchRequest names one analysis to run inside a batch.
type BatchRequest struct {
	Kind   analysis.Kind   `json:"kind"`
	Params analysis.Params `json:"params"`
}

// BatchResult pairs a batch entry with its outcome.
type BatchResult struct {
	Kind     analysis.Kind      `json:"kind"`
	Analysis *analysis.Analysis `json:"analysis,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// RunBatch executes several analyses against one dataset concurrently.
// Individual failures are reported per entry and do not cancel the rest.
func (s *AnalysisService) RunBatch(ctx context.Context, datasetID core.DatasetID, requests []BatchRequest) ([]BatchResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	// The dataset is loaded once here to fail fast; each run re-reads it
	// so the runs stay independent.
	if _, err := s.loadTable(ctx, datasetID); err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxBatch)

	for i, req := range requests {
		g.Go(func() error {
			record, err := s.Run(gctx, datasetID, req.Kind, req.Params)
			results[i] = BatchResult{Kind: req.Kind, Analysis: record}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Get retrieves one analysis record
func (s *AnalysisService) Get(ctx context.Context, id core.AnalysisID) (*analysis.Analysis, error) {
	return s.analyses.GetByID(ctx, id)
}

// GetChart retrieves the rendered PNG for one analysis
func (s *AnalysisService) GetChart(ctx context.Context, id core.AnalysisID) ([]byte, error) {
	return s.analyses.GetChart(ctx, id)
}

// ExportSummary writes the stored summary as an Excel workbook.
// Failed runs carry no summary and report as not found.
func (s *AnalysisService) ExportSummary(ctx context.Context, id core.AnalysisID, w io.Writer) error {
	record, err := s.analyses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if record.Summary == nil {
		return core.NewNotFoundError("analysis summary", string(id))
	}
	return ingest.WriteSummaryXLSX(w, string(record.Kind), record.Summary)
}

// ListByDataset retrieves the analyses recorded for a dataset
func (s *AnalysisService) ListByDataset(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*analysis.Analysis, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.analyses.ListByDataset(ctx, datasetID, limit, offset)
}

// Kinds lists the procedures this service can run
func (s *AnalysisService) Kinds() []analysis.Kind {
	return s.registry.Kinds()
}

func (s *AnalysisService) loadTable(ctx context.Context, datasetID core.DatasetID) (*dataset.Table, error) {
	ds, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if ds.Status != dataset.StatusReady || ds.Table == nil {
		return nil, fmt.Errorf("%w: dataset %s is not ready (status %s)", core.ErrEmptyDataset, datasetID, ds.Status)
	}
	return ds.Table, nil
}
