package pca

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"statlab/domain/analysis"
	"statlab/domain/dataset"
)

func numericTable(t *testing.T, names []string, cols [][]float64) *dataset.Table {
	t.Helper()
	n := len(cols[0])
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(cols))
		for j := range cols {
			row[j] = fmt.Sprintf("%g", cols[j][i])
		}
		rows[i] = row
	}
	tbl, err := dataset.BuildTable(names, rows)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	return tbl
}

func TestPCA_PerfectlyCorrelatedPairLoadsOnOneComponent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 200
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = rng.NormFloat64()
		b[i] = 3*a[i] + 1 // exact linear dependence
	}
	tbl := numericTable(t, []string{"a", "b"}, [][]float64{a, b})

	out, err := New().Run(context.Background(), tbl, analysis.Params{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	summary := out.(*analysis.PCASummary)

	if summary.Components != 2 {
		t.Fatalf("expected 2 components, got %d", summary.Components)
	}
	if summary.ExplainedRatio[0] < 0.999 {
		t.Errorf("first component should carry all variance, got %f", summary.ExplainedRatio[0])
	}
	if math.Abs(summary.CumulativeRatio[len(summary.CumulativeRatio)-1]-1.0) > 1e-9 {
		t.Errorf("cumulative ratio must end at 1, got %f", summary.CumulativeRatio[len(summary.CumulativeRatio)-1])
	}
}

func TestPCA_IndependentColumnsSplitVariance(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 5000
	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()
		c[i] = rng.NormFloat64()
	}
	tbl := numericTable(t, []string{"a", "b", "c"}, [][]float64{a, b, c})

	out, err := New().Run(context.Background(), tbl, analysis.Params{Columns: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	summary := out.(*analysis.PCASummary)

	// Standardized independent columns: each component explains ~1/3.
	for k, r := range summary.ExplainedRatio {
		if math.Abs(r-1.0/3.0) > 0.05 {
			t.Errorf("component %d ratio %f far from 1/3", k+1, r)
		}
	}
	if len(summary.Scores) == 0 {
		t.Error("expected projected scores for plotting")
	}
	if len(summary.Scores) > maxScorePoints {
		t.Errorf("scores must be capped at %d, got %d", maxScorePoints, len(summary.Scores))
	}
}

func TestPCA_EigenvaluesDescending(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 300
	cols := make([][]float64, 4)
	for j := range cols {
		cols[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			cols[j][i] = rng.NormFloat64() * float64(j+1)
		}
	}
	tbl := numericTable(t, []string{"w", "x", "y", "z"}, cols)

	out, err := New().Run(context.Background(), tbl, analysis.Params{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	summary := out.(*analysis.PCASummary)
	for k := 1; k < len(summary.Eigenvalues); k++ {
		if summary.Eigenvalues[k] > summary.Eigenvalues[k-1]+1e-12 {
			t.Errorf("eigenvalues must descend: %v", summary.Eigenvalues)
		}
	}
}

func TestPCA_ValidateRejectsSingleColumn(t *testing.T) {
	tbl := numericTable(t, []string{"only"}, [][]float64{{1, 2, 3, 4}})
	if err := New().Validate(tbl, analysis.Params{}); err == nil {
		t.Error("expected error for a single numeric column")
	}
}

func TestPCA_ConstantColumnRejected(t *testing.T) {
	tbl := numericTable(t, []string{"a", "b"}, [][]float64{
		{1, 2, 3, 4, 5},
		{7, 7, 7, 7, 7},
	})
	if _, err := New().Run(context.Background(), tbl, analysis.Params{}); err == nil {
		t.Error("expected error for zero-variance column")
	}
}
