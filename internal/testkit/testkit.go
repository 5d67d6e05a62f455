// Package testkit provides in-memory implementations of the storage and
// rendering ports for tests that exercise services and handlers without
// a database.
package testkit

import (
	"context"
	"sync"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"
	"statlab/ports"
)

// MemDatasetRepo is an in-memory DatasetRepository.
type MemDatasetRepo struct {
	mu    sync.Mutex
	items map[core.DatasetID]*dataset.Dataset
	order []core.DatasetID
}

// NewMemDatasetRepo creates an empty in-memory dataset repository
func NewMemDatasetRepo() *MemDatasetRepo {
	return &MemDatasetRepo{items: map[core.DatasetID]*dataset.Dataset{}}
}

func (r *MemDatasetRepo) Create(_ context.Context, ds *dataset.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[ds.ID] = ds
	r.order = append(r.order, ds.ID)
	return nil
}

func (r *MemDatasetRepo) GetByID(_ context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds, ok := r.items[id]
	if !ok {
		return nil, core.NewDatasetNotFound(id)
	}
	return ds, nil
}

func (r *MemDatasetRepo) List(_ context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*dataset.Dataset
	// Newest first, as the SQL implementation orders by created_at DESC.
	for i := len(r.order) - 1; i >= 0; i-- {
		if ds, ok := r.items[r.order[i]]; ok {
			out = append(out, ds)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemDatasetRepo) Delete(_ context.Context, id core.DatasetID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return core.NewDatasetNotFound(id)
	}
	delete(r.items, id)
	return nil
}

func (r *MemDatasetRepo) UpdateStatus(_ context.Context, id core.DatasetID, status dataset.Status, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ds, ok := r.items[id]
	if !ok {
		return core.NewDatasetNotFound(id)
	}
	ds.Status = status
	ds.ErrorMessage = msg
	return nil
}

// Len reports the number of stored datasets
func (r *MemDatasetRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// MemAnalysisRepo is an in-memory AnalysisRepository.
type MemAnalysisRepo struct {
	mu    sync.Mutex
	items map[core.AnalysisID]*analysis.Analysis
}

// NewMemAnalysisRepo creates an empty in-memory analysis repository
func NewMemAnalysisRepo() *MemAnalysisRepo {
	return &MemAnalysisRepo{items: map[core.AnalysisID]*analysis.Analysis{}}
}

func (r *MemAnalysisRepo) Create(_ context.Context, a *analysis.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *a
	r.items[a.ID] = &stored
	return nil
}

func (r *MemAnalysisRepo) Update(_ context.Context, a *analysis.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return core.NewAnalysisNotFound(a.ID)
	}
	stored := *a
	r.items[a.ID] = &stored
	return nil
}

func (r *MemAnalysisRepo) GetByID(_ context.Context, id core.AnalysisID) (*analysis.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, core.NewAnalysisNotFound(id)
	}
	return a, nil
}

func (r *MemAnalysisRepo) GetChart(_ context.Context, id core.AnalysisID) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || len(a.ChartPNG) == 0 {
		return nil, core.NewAnalysisNotFound(id)
	}
	return a.ChartPNG, nil
}

func (r *MemAnalysisRepo) ListByDataset(_ context.Context, datasetID core.DatasetID, limit, offset int) ([]*analysis.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*analysis.Analysis
	for _, a := range r.items {
		if a.DatasetID == datasetID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemAnalysisRepo) DeleteByDataset(_ context.Context, datasetID core.DatasetID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.items {
		if a.DatasetID == datasetID {
			delete(r.items, id)
		}
	}
	return nil
}

// Len reports the number of stored analyses
func (r *MemAnalysisRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// StubRenderer returns fixed bytes instead of drawing charts.
type StubRenderer struct{}

func (StubRenderer) Render(analysis.Kind, any) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

var (
	_ ports.DatasetRepository  = (*MemDatasetRepo)(nil)
	_ ports.AnalysisRepository = (*MemAnalysisRepo)(nil)
	_ ports.ChartRenderer      = StubRenderer{}
)
