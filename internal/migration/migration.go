package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"statlab/internal/errors"
)

// Runner handles database schema migrations
type Runner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *Runner {
	return &Runner{version: "1.0.0"}
}

// Version returns the migration version
func (r *Runner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *Runner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createDatasetsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create datasets table")
	}
	if err := r.createAnalysesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analyses table")
	}
	if err := r.createIndexes(ctx, db); err != nil {
		return err
	}
	return nil
}

func (r *Runner) createDatasetsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS datasets (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			original_filename VARCHAR(255) NOT NULL DEFAULT '',
			source VARCHAR(50) NOT NULL DEFAULT 'upload',
			row_count INTEGER NOT NULL DEFAULT 0,
			column_count INTEGER NOT NULL DEFAULT 0,
			missing_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			status VARCHAR(50) NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			table_data JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *Runner) createAnalysesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id UUID PRIMARY KEY,
			dataset_id UUID NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			kind VARCHAR(50) NOT NULL,
			params JSONB,
			status VARCHAR(50) NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			summary JSONB,
			chart_png BYTEA,
			elapsed_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *Runner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_dataset_id ON analyses(dataset_id)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_kind ON analyses(kind)`,
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to create index %d of %d", i+1, len(statements))
		}
	}
	return nil
}
