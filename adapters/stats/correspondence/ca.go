package correspondence

import (
	"context"
	"fmt"
	"math"
	"sort"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"

	"gonum.org/v1/gonum/mat"
)

const (
	// maxCategories bounds each side of the contingency table; beyond this
	// the biplot is unreadable and the category coding is suspect.
	maxCategories = 60

	// singular values below this are numerical noise from the centering
	svEps = 1e-12
)

// Analyzer performs simple correspondence analysis on two categorical
// columns: SVD of the standardized residual matrix, principal coordinates
// for row and column categories, and the inertia decomposition.
type Analyzer struct{}

// New creates a correspondence analysis analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Kind identifies this analyzer
func (a *Analyzer) Kind() analysis.Kind {
	return analysis.KindCorrespondence
}

// Validate checks that both columns exist and produce a usable table
func (a *Analyzer) Validate(tbl *dataset.Table, params analysis.Params) error {
	if params.RowColumn == "" || params.ColColumn == "" {
		return core.NewParamsError("row_column/col_column", "both are required")
	}
	if params.RowColumn == params.ColColumn {
		return core.NewParamsError("col_column", "must differ from row_column")
	}
	for _, name := range []string{params.RowColumn, params.ColColumn} {
		col, err := tbl.Column(name)
		if err != nil {
			return err
		}
		if col.UniqueCount < 2 {
			return fmt.Errorf("%w: column %s has fewer than 2 categories", core.ErrDegenerateTable, name)
		}
		if col.UniqueCount > maxCategories {
			return core.NewParamsError(name, fmt.Sprintf("has %d categories, max %d", col.UniqueCount, maxCategories))
		}
	}
	return nil
}

// Run computes the correspondence analysis summary
func (a *Analyzer) Run(ctx context.Context, tbl *dataset.Table, params analysis.Params) (any, error) {
	if err := a.Validate(tbl, params); err != nil {
		return nil, err
	}
	rowVals, err := tbl.CategoricalColumn(params.RowColumn)
	if err != nil {
		return nil, err
	}
	colVals, err := tbl.CategoricalColumn(params.ColColumn)
	if err != nil {
		return nil, err
	}

	counts, rowLabels, colLabels, total := crossTabulate(rowVals, colVals)
	if len(rowLabels) < 2 || len(colLabels) < 2 {
		return nil, fmt.Errorf("%w: %dx%d table after dropping missing values",
			core.ErrDegenerateTable, len(rowLabels), len(colLabels))
	}
	if total < len(rowLabels)*len(colLabels) {
		// Sparse tables still decompose but the chi-square approximation
		// degrades badly below one observation per cell.
		if total < 3 {
			return nil, core.NewInsufficientDataError(3, total)
		}
	}

	return decompose(counts, rowLabels, colLabels, total, params)
}

// crossTabulate builds the contingency table from paired category values,
// dropping observations where either side is missing. Categories are
// ordered alphabetically so results are reproducible across runs.
func crossTabulate(rowVals, colVals []string) (counts [][]float64, rowLabels, colLabels []string, total int) {
	rowSet := make(map[string]struct{})
	colSet := make(map[string]struct{})
	for i := range rowVals {
		if rowVals[i] == "" || colVals[i] == "" {
			continue
		}
		rowSet[rowVals[i]] = struct{}{}
		colSet[colVals[i]] = struct{}{}
	}
	for v := range rowSet {
		rowLabels = append(rowLabels, v)
	}
	for v := range colSet {
		colLabels = append(colLabels, v)
	}
	sort.Strings(rowLabels)
	sort.Strings(colLabels)

	rowIdx := make(map[string]int, len(rowLabels))
	for i, v := range rowLabels {
		rowIdx[v] = i
	}
	colIdx := make(map[string]int, len(colLabels))
	for i, v := range colLabels {
		colIdx[v] = i
	}

	counts = make([][]float64, len(rowLabels))
	for i := range counts {
		counts[i] = make([]float64, len(colLabels))
	}
	for i := range rowVals {
		if rowVals[i] == "" || colVals[i] == "" {
			continue
		}
		counts[rowIdx[rowVals[i]]][colIdx[colVals[i]]]++
		total++
	}
	return counts, rowLabels, colLabels, total
}

// decompose runs the SVD of standardized residuals and assembles the summary.
func decompose(counts [][]float64, rowLabels, colLabels []string, total int, params analysis.Params) (*analysis.CorrespondenceSummary, error) {
	nr, nc := len(rowLabels), len(colLabels)
	n := float64(total)

	// Correspondence matrix and marginal masses.
	rowMass := make([]float64, nr)
	colMass := make([]float64, nc)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			p := counts[i][j] / n
			rowMass[i] += p
			colMass[j] += p
		}
	}
	for i, m := range rowMass {
		if m == 0 {
			return nil, fmt.Errorf("%w: row category %s has zero mass", core.ErrDegenerateTable, rowLabels[i])
		}
	}
	for j, m := range colMass {
		if m == 0 {
			return nil, fmt.Errorf("%w: column category %s has zero mass", core.ErrDegenerateTable, colLabels[j])
		}
	}

	// Standardized residuals S = D_r^{-1/2} (P - r c^T) D_c^{-1/2}.
	// Centering with r c^T removes the trivial unit singular value up front.
	s := mat.NewDense(nr, nc, nil)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			p := counts[i][j] / n
			expected := rowMass[i] * colMass[j]
			s.Set(i, j, (p-expected)/math.Sqrt(expected))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(s, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD of standardized residuals failed", core.ErrSingularMatrix)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	// Retain axes up to the table rank, dropping numerical noise.
	maxDims := nr - 1
	if nc-1 < maxDims {
		maxDims = nc - 1
	}
	dims := 0
	for dims < maxDims && dims < len(sv) && sv[dims] > svEps {
		dims++
	}
	if dims == 0 {
		return nil, fmt.Errorf("%w: no non-trivial axes", core.ErrDegenerateTable)
	}

	eigenvalues := make([]float64, dims)
	totalInertia := 0.0
	for k := 0; k < dims; k++ {
		eigenvalues[k] = sv[k] * sv[k]
		totalInertia += eigenvalues[k]
	}
	inertiaShare := make([]float64, dims)
	for k := 0; k < dims; k++ {
		inertiaShare[k] = eigenvalues[k] / totalInertia
	}

	// Principal coordinates: F = D_r^{-1/2} U Sigma, G = D_c^{-1/2} V Sigma.
	rowCoords := make([][]float64, nr)
	for i := 0; i < nr; i++ {
		rowCoords[i] = make([]float64, dims)
		for k := 0; k < dims; k++ {
			rowCoords[i][k] = u.At(i, k) * sv[k] / math.Sqrt(rowMass[i])
		}
	}
	colCoords := make([][]float64, nc)
	for j := 0; j < nc; j++ {
		colCoords[j] = make([]float64, dims)
		for k := 0; k < dims; k++ {
			colCoords[j][k] = v.At(j, k) * sv[k] / math.Sqrt(colMass[j])
		}
	}

	summary := &analysis.CorrespondenceSummary{
		RowColumn:    params.RowColumn,
		ColColumn:    params.ColColumn,
		RowPoints:    assemblePoints(rowLabels, rowCoords, rowMass, eigenvalues, totalInertia),
		ColPoints:    assemblePoints(colLabels, colCoords, colMass, eigenvalues, totalInertia),
		Eigenvalues:  eigenvalues,
		InertiaShare: inertiaShare,
		TotalInertia: totalInertia,
		ChiSquare:    n * totalInertia,
		GrandTotal:   total,
	}
	return summary, nil
}

// assemblePoints turns raw coordinates into CAPoints with contributions,
// point inertia shares, and plane cos2 values.
func assemblePoints(labels []string, coords [][]float64, mass []float64, eigenvalues []float64, totalInertia float64) []analysis.CAPoint {
	dims := len(eigenvalues)
	points := make([]analysis.CAPoint, len(labels))
	for i, label := range labels {
		// Squared chi-square distance to the centroid, over all axes.
		d2 := 0.0
		for k := 0; k < dims; k++ {
			d2 += coords[i][k] * coords[i][k]
		}

		contrib := make([]float64, dims)
		for k := 0; k < dims; k++ {
			if eigenvalues[k] > 0 {
				contrib[k] = mass[i] * coords[i][k] * coords[i][k] / eigenvalues[k]
			}
		}

		plane := coords[i][0] * coords[i][0]
		y := 0.0
		if dims > 1 {
			y = coords[i][1]
			plane += y * y
		}
		cos2 := 0.0
		if d2 > 0 {
			cos2 = plane / d2
		}

		points[i] = analysis.CAPoint{
			Label:   label,
			X:       coords[i][0],
			Y:       y,
			Mass:    mass[i],
			Inertia: mass[i] * d2 / totalInertia,
			Contrib: contrib,
			Cos2:    cos2,
		}
	}
	return points
}
