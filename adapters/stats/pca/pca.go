package pca

import (
	"context"
	"fmt"
	"math"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// maxScorePoints caps the number of per-row scores carried in the summary;
// beyond this the scatter chart is saturated anyway.
const maxScorePoints = 2000

// Analyzer performs principal component analysis on standardized numeric
// columns.
type Analyzer struct{}

// New creates a PCA analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Kind identifies this analyzer
func (a *Analyzer) Kind() analysis.Kind {
	return analysis.KindPCA
}

// Validate checks column selection before running
func (a *Analyzer) Validate(tbl *dataset.Table, params analysis.Params) error {
	_, err := SelectColumns(tbl, params.Columns, 2)
	return err
}

// Run computes the PCA summary
func (a *Analyzer) Run(ctx context.Context, tbl *dataset.Table, params analysis.Params) (any, error) {
	names, err := SelectColumns(tbl, params.Columns, 2)
	if err != nil {
		return nil, err
	}
	rows, _, err := tbl.CompleteRows(names)
	if err != nil {
		return nil, err
	}
	if len(rows) < len(names)+1 {
		return nil, core.NewInsufficientDataError(len(names)+1, len(rows))
	}

	x, err := Standardize(rows, len(names))
	if err != nil {
		return nil, err
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("%w: principal component decomposition failed", core.ErrSingularMatrix)
	}
	var vec mat.Dense
	pc.VectorsTo(&vec)
	eigenvalues := pc.VarsTo(nil)

	comps := len(eigenvalues)
	total := 0.0
	for _, v := range eigenvalues {
		total += v
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: all selected columns are constant", core.ErrSingularMatrix)
	}

	ratio := make([]float64, comps)
	cumulative := make([]float64, comps)
	running := 0.0
	for k := 0; k < comps; k++ {
		ratio[k] = eigenvalues[k] / total
		running += ratio[k]
		cumulative[k] = running
	}

	// Correlation loadings: eigenvector entries scaled by sqrt(eigenvalue).
	loadings := make([][]float64, len(names))
	for j := range names {
		loadings[j] = make([]float64, comps)
		for k := 0; k < comps; k++ {
			loadings[j][k] = vec.At(j, k) * math.Sqrt(eigenvalues[k])
		}
	}

	summary := &analysis.PCASummary{
		Variables:       names,
		Components:      comps,
		Eigenvalues:     eigenvalues,
		ExplainedRatio:  ratio,
		CumulativeRatio: cumulative,
		Loadings:        loadings,
		RowsUsed:        len(rows),
		Scores:          ProjectScores(x, &vec, maxScorePoints),
	}
	return summary, nil
}

// SelectColumns resolves the requested columns, defaulting to every
// numeric column, and enforces a minimum count.
func SelectColumns(tbl *dataset.Table, requested []string, min int) ([]string, error) {
	names := requested
	if len(names) == 0 {
		names = tbl.NumericColumnNames()
	}
	if len(names) < min {
		return nil, core.NewParamsError("columns", fmt.Sprintf("need at least %d numeric columns, have %d", min, len(names)))
	}
	for _, name := range names {
		col, err := tbl.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Type != dataset.TypeNumeric {
			return nil, core.NewColumnTypeError(name, "numeric", string(col.Type))
		}
	}
	return names, nil
}

// Standardize z-scores each column of the row-major matrix.
func Standardize(rows [][]float64, cols int) (*mat.Dense, error) {
	n := len(rows)
	x := mat.NewDense(n, cols, nil)
	for j := 0; j < cols; j++ {
		col := make([]float64, n)
		for i := range rows {
			col[i] = rows[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			return nil, fmt.Errorf("%w: column %d has zero variance", core.ErrSingularMatrix, j)
		}
		for i := range col {
			x.Set(i, j, (col[i]-mean)/std)
		}
	}
	return x, nil
}

// ProjectScores projects the standardized rows onto the first two
// components, truncated to at most limit points.
func ProjectScores(x *mat.Dense, vec *mat.Dense, limit int) [][]float64 {
	n, _ := x.Dims()
	_, comps := vec.Dims()
	if comps < 1 {
		return nil
	}
	keep := n
	if keep > limit {
		keep = limit
	}
	var proj mat.Dense
	proj.Mul(x, vec)

	scores := make([][]float64, keep)
	for i := 0; i < keep; i++ {
		y := 0.0
		if comps > 1 {
			y = proj.At(i, 1)
		}
		scores[i] = []float64{proj.At(i, 0), y}
	}
	return scores
}
