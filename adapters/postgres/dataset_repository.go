package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"statlab/domain/core"
	"statlab/domain/dataset"
	"statlab/ports"
)

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

// Create inserts a new dataset into the database
func (r *datasetRepository) Create(ctx context.Context, ds *dataset.Dataset) error {
	var tableJSON []byte
	if ds.Table != nil {
		var err error
		tableJSON, err = json.Marshal(ds.Table)
		if err != nil {
			return fmt.Errorf("failed to marshal table: %w", err)
		}
	}

	query := `INSERT INTO datasets (
		id, name, original_filename, source, row_count, column_count,
		missing_rate, status, error_message, table_data, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
	)`

	_, err := r.db.ExecContext(ctx, query,
		ds.ID, ds.Name, ds.OriginalFilename, ds.Source, ds.RowCount, ds.ColumnCount,
		ds.MissingRate, ds.Status, ds.ErrorMessage, tableJSON, ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// GetByID retrieves a dataset with its parsed table
func (r *datasetRepository) GetByID(ctx context.Context, id core.DatasetID) (*dataset.Dataset, error) {
	query := `SELECT
		id, name, original_filename, source, row_count, column_count,
		missing_rate, status, error_message, table_data, created_at, updated_at
	FROM datasets WHERE id = $1`

	var ds dataset.Dataset
	var tableJSON []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ds.ID, &ds.Name, &ds.OriginalFilename, &ds.Source, &ds.RowCount, &ds.ColumnCount,
		&ds.MissingRate, &ds.Status, &ds.ErrorMessage, &tableJSON, &ds.CreatedAt, &ds.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewDatasetNotFound(id)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	if len(tableJSON) > 0 {
		var tbl dataset.Table
		if err := json.Unmarshal(tableJSON, &tbl); err != nil {
			return nil, fmt.Errorf("failed to unmarshal table: %w", err)
		}
		ds.Table = &tbl
	}
	return &ds, nil
}

// List retrieves dataset summaries without table payloads, newest first
func (r *datasetRepository) List(ctx context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	query := `SELECT
		id, name, original_filename, source, row_count, column_count,
		missing_rate, status, error_message, created_at, updated_at
	FROM datasets
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*dataset.Dataset
	for rows.Next() {
		var ds dataset.Dataset
		err := rows.Scan(
			&ds.ID, &ds.Name, &ds.OriginalFilename, &ds.Source, &ds.RowCount, &ds.ColumnCount,
			&ds.MissingRate, &ds.Status, &ds.ErrorMessage, &ds.CreatedAt, &ds.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, &ds)
	}
	return datasets, rows.Err()
}

// Delete removes a dataset; analyses cascade at the schema level
func (r *datasetRepository) Delete(ctx context.Context, id core.DatasetID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return core.NewDatasetNotFound(id)
	}
	return nil
}

// UpdateStatus updates only the status and error message of a dataset
func (r *datasetRepository) UpdateStatus(ctx context.Context, id core.DatasetID, status dataset.Status, errorMsg string) error {
	query := `UPDATE datasets SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to update dataset status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return core.NewDatasetNotFound(id)
	}
	return nil
}
