package core

import (
	"errors"
	"testing"
)

func TestTypedNotFoundErrors(t *testing.T) {
	dsErr := NewDatasetNotFound(DatasetID("d1"))
	if !errors.Is(dsErr, ErrDatasetNotFound) || !errors.Is(dsErr, ErrNotFound) {
		t.Errorf("dataset error should match both sentinels: %v", dsErr)
	}
	if errors.Is(dsErr, ErrAnalysisNotFound) {
		t.Errorf("dataset error must not match the analysis sentinel: %v", dsErr)
	}

	anErr := NewAnalysisNotFound(AnalysisID("a1"))
	if !errors.Is(anErr, ErrAnalysisNotFound) || !IsNotFoundError(anErr) {
		t.Errorf("analysis error should match its sentinel: %v", anErr)
	}
}

func TestIsValidationError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{NewParamsError("k", "must be positive"), true},
		{NewColumnTypeError("age", "numeric", "categorical"), true},
		{NewInsufficientDataError(10, 3), true},
		{NewDatasetNotFound(DatasetID("d1")), false},
		{ErrSingularMatrix, false},
	}
	for _, tc := range cases {
		if got := IsValidationError(tc.err); got != tc.want {
			t.Errorf("IsValidationError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
