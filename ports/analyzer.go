package ports

import (
	"context"

	"statlab/domain/analysis"
	"statlab/domain/dataset"
)

// Analyzer runs one statistical procedure against a parsed table.
// Implementations are stateless and safe for concurrent use.
type Analyzer interface {
	// Kind identifies the procedure this analyzer implements.
	Kind() analysis.Kind

	// Validate checks the parameters against the table before running,
	// so request-side errors surface without paying for the computation.
	Validate(tbl *dataset.Table, params analysis.Params) error

	// Run executes the procedure and returns its method-specific summary.
	Run(ctx context.Context, tbl *dataset.Table, params analysis.Params) (any, error)
}
