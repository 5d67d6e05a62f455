package ports

import (
	"context"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"
)

// DatasetRepository defines the interface for dataset storage operations
type DatasetRepository interface {
	Create(ctx context.Context, ds *dataset.Dataset) error
	GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error)
	List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error)
	Delete(ctx context.Context, id core.DatasetID) error
	UpdateStatus(ctx context.Context, id core.DatasetID, status dataset.Status, errorMsg string) error
}

// AnalysisRepository defines the interface for analysis result storage
type AnalysisRepository interface {
	Create(ctx context.Context, a *analysis.Analysis) error
	Update(ctx context.Context, a *analysis.Analysis) error
	GetByID(ctx context.Context, id core.AnalysisID) (*analysis.Analysis, error)
	GetChart(ctx context.Context, id core.AnalysisID) ([]byte, error)
	ListByDataset(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*analysis.Analysis, error)
	DeleteByDataset(ctx context.Context, datasetID core.DatasetID) error
}
