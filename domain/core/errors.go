package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrDatasetNotFound  = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrAnalysisNotFound = fmt.Errorf("%w: analysis", ErrNotFound)
	ErrColumnNotFound   = fmt.Errorf("%w: column", ErrNotFound)

	// Validation errors
	ErrInvalidParams    = errors.New("invalid analysis parameters")
	ErrColumnType       = errors.New("column has wrong type for analysis")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrEmptyDataset     = errors.New("dataset contains no rows")

	// Computation errors
	ErrSingularMatrix  = errors.New("matrix is singular or near-singular")
	ErrDegenerateTable = errors.New("contingency table is degenerate")
)

// NewDatasetNotFound reports a missing dataset by id
func NewDatasetNotFound(id DatasetID) error {
	return fmt.Errorf("%w with id %s", ErrDatasetNotFound, id)
}

// NewAnalysisNotFound reports a missing analysis by id
func NewAnalysisNotFound(id AnalysisID) error {
	return fmt.Errorf("%w with id %s", ErrAnalysisNotFound, id)
}

// NewNotFoundError wraps ErrNotFound with resource context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewParamsError wraps ErrInvalidParams with field context
func NewParamsError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParams, field, reason)
}

// NewColumnTypeError reports a column that cannot serve the requested role
func NewColumnTypeError(column string, want string, got string) error {
	return fmt.Errorf("%w: %s must be %s, got %s", ErrColumnType, column, want, got)
}

// NewInsufficientDataError reports too few usable observations
func NewInsufficientDataError(need, got int) error {
	return fmt.Errorf("%w: need at least %d observations, got %d", ErrInsufficientData, need, got)
}

// IsNotFoundError reports whether err is any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError reports whether err is a request-side error (bad input,
// wrong column, too little data) as opposed to a computation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidParams) ||
		errors.Is(err, ErrColumnType) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrColumnNotFound)
}
