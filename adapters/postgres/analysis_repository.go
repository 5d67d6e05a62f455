package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/ports"
)

// analysisRepository implements the AnalysisRepository interface
type analysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) ports.AnalysisRepository {
	return &analysisRepository{db: db}
}

// Create inserts a new analysis record
func (r *analysisRepository) Create(ctx context.Context, a *analysis.Analysis) error {
	paramsJSON, summaryJSON, err := marshalPayloads(a)
	if err != nil {
		return err
	}

	query := `INSERT INTO analyses (
		id, dataset_id, kind, params, status, error_message,
		summary, chart_png, elapsed_ms, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.DatasetID, a.Kind, paramsJSON, a.Status, a.ErrorMessage,
		summaryJSON, a.ChartPNG, a.ElapsedMS, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// Update stores the outcome of a finished run
func (r *analysisRepository) Update(ctx context.Context, a *analysis.Analysis) error {
	paramsJSON, summaryJSON, err := marshalPayloads(a)
	if err != nil {
		return err
	}

	query := `UPDATE analyses SET
		params = $2, status = $3, error_message = $4,
		summary = $5, chart_png = $6, elapsed_ms = $7
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		a.ID, paramsJSON, a.Status, a.ErrorMessage,
		summaryJSON, a.ChartPNG, a.ElapsedMS,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return core.NewAnalysisNotFound(a.ID)
	}
	return nil
}

// GetByID retrieves an analysis without its chart bytes
func (r *analysisRepository) GetByID(ctx context.Context, id core.AnalysisID) (*analysis.Analysis, error) {
	query := `SELECT
		id, dataset_id, kind, params, status, error_message, summary, elapsed_ms, created_at
	FROM analyses WHERE id = $1`

	var a analysis.Analysis
	var paramsJSON, summaryJSON []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.DatasetID, &a.Kind, &paramsJSON, &a.Status, &a.ErrorMessage,
		&summaryJSON, &a.ElapsedMS, &a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewAnalysisNotFound(id)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	if err := unmarshalPayloads(&a, paramsJSON, summaryJSON); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetChart retrieves only the rendered chart bytes
func (r *analysisRepository) GetChart(ctx context.Context, id core.AnalysisID) ([]byte, error) {
	var chart []byte
	err := r.db.QueryRowContext(ctx, `SELECT chart_png FROM analyses WHERE id = $1`, id).Scan(&chart)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewAnalysisNotFound(id)
		}
		return nil, fmt.Errorf("failed to get chart: %w", err)
	}
	if len(chart) == 0 {
		return nil, fmt.Errorf("%w: chart for analysis %s", core.ErrNotFound, id)
	}
	return chart, nil
}

// ListByDataset retrieves analyses for one dataset, newest first
func (r *analysisRepository) ListByDataset(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*analysis.Analysis, error) {
	query := `SELECT
		id, dataset_id, kind, params, status, error_message, summary, elapsed_ms, created_at
	FROM analyses
	WHERE dataset_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, datasetID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*analysis.Analysis
	for rows.Next() {
		var a analysis.Analysis
		var paramsJSON, summaryJSON []byte

		err := rows.Scan(
			&a.ID, &a.DatasetID, &a.Kind, &paramsJSON, &a.Status, &a.ErrorMessage,
			&summaryJSON, &a.ElapsedMS, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		if err := unmarshalPayloads(&a, paramsJSON, summaryJSON); err != nil {
			return nil, err
		}
		analyses = append(analyses, &a)
	}
	return analyses, rows.Err()
}

// DeleteByDataset removes every analysis belonging to a dataset
func (r *analysisRepository) DeleteByDataset(ctx context.Context, datasetID core.DatasetID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE dataset_id = $1`, datasetID)
	if err != nil {
		return fmt.Errorf("failed to delete analyses: %w", err)
	}
	return nil
}

func marshalPayloads(a *analysis.Analysis) (paramsJSON, summaryJSON []byte, err error) {
	paramsJSON, err = json.Marshal(a.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	if a.Summary != nil {
		summaryJSON, err = json.Marshal(a.Summary)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal summary: %w", err)
		}
	}
	return paramsJSON, summaryJSON, nil
}

func unmarshalPayloads(a *analysis.Analysis, paramsJSON, summaryJSON []byte) error {
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &a.Params); err != nil {
			return fmt.Errorf("failed to unmarshal params: %w", err)
		}
	}
	if len(summaryJSON) > 0 {
		// The concrete summary type is only known to the analyzer that
		// produced it; stored summaries round-trip as generic JSON.
		var summary map[string]any
		if err := json.Unmarshal(summaryJSON, &summary); err != nil {
			return fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		a.Summary = summary
	}
	return nil
}
