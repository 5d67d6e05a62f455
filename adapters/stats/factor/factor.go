package factor

import (
	"context"
	"fmt"
	"math"
	"sort"

	"statlab/adapters/stats/pca"
	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	varimaxMaxIter = 100
	varimaxTol     = 1e-8

	// dominantLoading marks a variable as belonging to a factor for the
	// per-factor reliability (Cronbach's alpha) computation.
	dominantLoading = 0.4
)

// Analyzer performs exploratory factor analysis: principal-component
// extraction from the correlation matrix, varimax rotation, and the usual
// adequacy diagnostics (KMO, Bartlett, per-factor Cronbach's alpha).
type Analyzer struct{}

// New creates a factor analysis analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Kind identifies this analyzer
func (a *Analyzer) Kind() analysis.Kind {
	return analysis.KindFactor
}

// Validate checks column selection and factor count
func (a *Analyzer) Validate(tbl *dataset.Table, params analysis.Params) error {
	names, err := pca.SelectColumns(tbl, params.Columns, 3)
	if err != nil {
		return err
	}
	if params.Factors < 0 || params.Factors > len(names) {
		return core.NewParamsError("factors", fmt.Sprintf("must be between 1 and %d (or 0 for auto)", len(names)))
	}
	return nil
}

// Run computes the factor analysis summary
func (a *Analyzer) Run(ctx context.Context, tbl *dataset.Table, params analysis.Params) (any, error) {
	if err := a.Validate(tbl, params); err != nil {
		return nil, err
	}
	names, err := pca.SelectColumns(tbl, params.Columns, 3)
	if err != nil {
		return nil, err
	}
	rows, _, err := tbl.CompleteRows(names)
	if err != nil {
		return nil, err
	}
	p := len(names)
	n := len(rows)
	if n < p+2 {
		return nil, core.NewInsufficientDataError(p+2, n)
	}

	x, err := pca.Standardize(rows, p)
	if err != nil {
		return nil, err
	}
	corr := correlationMatrix(x)

	eigenvalues, vectors, err := symmetricEigen(corr)
	if err != nil {
		return nil, err
	}

	// Retain factors: explicit count, or Kaiser criterion (eigenvalue > 1).
	factors := params.Factors
	if factors == 0 {
		for _, ev := range eigenvalues {
			if ev > 1 {
				factors++
			}
		}
		if factors == 0 {
			factors = 1
		}
	}
	if factors > p {
		factors = p
	}

	// Unrotated loadings: eigenvector scaled by sqrt(eigenvalue).
	loadings := mat.NewDense(p, factors, nil)
	for j := 0; j < p; j++ {
		for k := 0; k < factors; k++ {
			ev := eigenvalues[k]
			if ev < 0 {
				ev = 0
			}
			loadings.Set(j, k, vectors.At(j, k)*math.Sqrt(ev))
		}
	}
	rotated := varimax(loadings)

	// Communalities and per-factor variance from the rotated solution.
	communalities := make([]float64, p)
	uniquenesses := make([]float64, p)
	variance := make([]float64, factors)
	for j := 0; j < p; j++ {
		for k := 0; k < factors; k++ {
			l := rotated.At(j, k)
			communalities[j] += l * l
			variance[k] += l * l
		}
		uniquenesses[j] = 1 - communalities[j]
	}
	for k := range variance {
		variance[k] /= float64(p)
	}

	kmo, err := kaiserMeyerOlkin(corr)
	if err != nil {
		// A non-invertible correlation matrix leaves KMO undefined but the
		// loadings are still meaningful. Report NaN rather than failing.
		kmo = math.NaN()
	}
	bartlettChi2, bartlettP := bartlettSphericity(corr, n)

	loadingRows := make([][]float64, p)
	for j := 0; j < p; j++ {
		loadingRows[j] = make([]float64, factors)
		for k := 0; k < factors; k++ {
			loadingRows[j][k] = rotated.At(j, k)
		}
	}

	summary := &analysis.FactorSummary{
		Variables:         names,
		Factors:           factors,
		Loadings:          loadingRows,
		Communalities:     communalities,
		Uniquenesses:      uniquenesses,
		VarianceExplained: variance,
		KMO:               analysis.Metric(kmo),
		BartlettChiSquare: analysis.Metric(bartlettChi2),
		BartlettP:         bartlettP,
		CronbachAlpha:     factorAlphas(x, rotated),
		RowsUsed:          n,
	}
	return summary, nil
}

// correlationMatrix computes the correlation matrix of standardized data.
func correlationMatrix(x *mat.Dense) *mat.SymDense {
	_, p := x.Dims()
	corr := mat.NewSymDense(p, nil)
	stat.CorrelationMatrix(corr, x, nil)
	return corr
}

// symmetricEigen returns eigenvalues (descending) and matching eigenvectors.
func symmetricEigen(m *mat.SymDense) ([]float64, *mat.Dense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return nil, nil, fmt.Errorf("%w: eigendecomposition of correlation matrix failed", core.ErrSingularMatrix)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// gonum returns ascending order; flip to descending.
	p := len(values)
	order := make([]int, p)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	sortedValues := make([]float64, p)
	sortedVectors := mat.NewDense(p, p, nil)
	for k, idx := range order {
		sortedValues[k] = values[idx]
		for j := 0; j < p; j++ {
			sortedVectors.Set(j, k, vectors.At(j, idx))
		}
	}
	return sortedValues, sortedVectors, nil
}

// varimax applies the classic pairwise varimax rotation to a loading matrix.
func varimax(loadings *mat.Dense) *mat.Dense {
	p, k := loadings.Dims()
	rotated := mat.DenseCopyOf(loadings)
	if k < 2 {
		return rotated
	}

	prev := varimaxCriterion(rotated)
	for iter := 0; iter < varimaxMaxIter; iter++ {
		for a := 0; a < k-1; a++ {
			for b := a + 1; b < k; b++ {
				rotatePair(rotated, p, a, b)
			}
		}
		crit := varimaxCriterion(rotated)
		if crit-prev < varimaxTol {
			break
		}
		prev = crit
	}
	return rotated
}

// rotatePair finds the optimal planar rotation angle for factor columns a, b.
func rotatePair(l *mat.Dense, p, a, b int) {
	var u, v, num, den float64
	for j := 0; j < p; j++ {
		x := l.At(j, a)
		y := l.At(j, b)
		uj := x*x - y*y
		vj := 2 * x * y
		u += uj
		v += vj
		num += uj * vj
		den += uj*uj - vj*vj
	}
	num = 2 * (float64(p)*num - u*v)
	den = float64(p)*den - (u*u - v*v)
	phi := 0.25 * math.Atan2(num, den)
	if math.Abs(phi) < 1e-12 {
		return
	}
	c, s := math.Cos(phi), math.Sin(phi)
	for j := 0; j < p; j++ {
		x := l.At(j, a)
		y := l.At(j, b)
		l.Set(j, a, c*x+s*y)
		l.Set(j, b, -s*x+c*y)
	}
}

// varimaxCriterion is the variance of squared loadings, the quantity
// varimax maximizes.
func varimaxCriterion(l *mat.Dense) float64 {
	p, k := l.Dims()
	crit := 0.0
	for col := 0; col < k; col++ {
		var sum, sumSq float64
		for j := 0; j < p; j++ {
			sq := l.At(j, col) * l.At(j, col)
			sum += sq
			sumSq += sq * sq
		}
		crit += sumSq/float64(p) - (sum/float64(p))*(sum/float64(p))
	}
	return crit
}

// kaiserMeyerOlkin computes the overall KMO measure of sampling adequacy
// from the correlation matrix and its inverse-derived partial correlations.
func kaiserMeyerOlkin(corr *mat.SymDense) (float64, error) {
	p, _ := corr.Dims()
	var inv mat.Dense
	if err := inv.Inverse(corr); err != nil {
		return 0, fmt.Errorf("%w: correlation matrix not invertible", core.ErrSingularMatrix)
	}

	var sumR2, sumP2 float64
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			if i == j {
				continue
			}
			r := corr.At(i, j)
			sumR2 += r * r

			// Partial correlation from the inverse correlation matrix.
			denom := math.Sqrt(inv.At(i, i) * inv.At(j, j))
			if denom == 0 {
				continue
			}
			partial := -inv.At(i, j) / denom
			sumP2 += partial * partial
		}
	}
	if sumR2+sumP2 == 0 {
		return 0, nil
	}
	return sumR2 / (sumR2 + sumP2), nil
}

// bartlettSphericity tests the null that the correlation matrix is identity.
func bartlettSphericity(corr *mat.SymDense, n int) (chi2, pValue float64) {
	p, _ := corr.Dims()
	det := mat.Det(corr)
	if det <= 0 {
		// Singular matrix: sphericity is rejected with certainty.
		return math.Inf(1), 0
	}
	chi2 = -(float64(n-1) - (2*float64(p)+5)/6) * math.Log(det)
	df := float64(p*(p-1)) / 2
	dist := distuv.ChiSquared{K: df}
	pValue = 1 - dist.CDF(chi2)
	return chi2, pValue
}

// factorAlphas computes Cronbach's alpha for each factor over the
// variables that load dominantly on it. Factors with fewer than two
// dominant variables get NaN, which serializes as null.
func factorAlphas(x *mat.Dense, loadings *mat.Dense) []analysis.Metric {
	n, _ := x.Dims()
	p, k := loadings.Dims()

	alphas := make([]analysis.Metric, k)
	for f := 0; f < k; f++ {
		var items []int
		for j := 0; j < p; j++ {
			if math.Abs(loadings.At(j, f)) >= dominantLoading {
				items = append(items, j)
			}
		}
		if len(items) < 2 {
			alphas[f] = analysis.Metric(math.NaN())
			continue
		}
		matrix := make([][]float64, n)
		for i := 0; i < n; i++ {
			row := make([]float64, len(items))
			for c, j := range items {
				v := x.At(i, j)
				// Reverse-score negatively loading items so alpha is not
				// deflated by sign alone.
				if loadings.At(j, f) < 0 {
					v = -v
				}
				row[c] = v
			}
			matrix[i] = row
		}
		alphas[f] = analysis.Metric(cronbachAlpha(matrix))
	}
	return alphas
}

// cronbachAlpha computes Cronbach's alpha for an items matrix shaped
// [observations][items], using population variances throughout.
func cronbachAlpha(matrix [][]float64) float64 {
	n := len(matrix)
	if n == 0 {
		return 0
	}
	k := len(matrix[0])
	if k < 2 {
		return 0
	}

	means := make([]float64, k)
	totals := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			means[j] += matrix[i][j]
			totals[i] += matrix[i][j]
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	itemVarSum := 0.0
	for j := 0; j < k; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			d := matrix[i][j] - means[j]
			sum += d * d
		}
		itemVarSum += sum / float64(n)
	}

	totalMean := 0.0
	for _, v := range totals {
		totalMean += v
	}
	totalMean /= float64(n)
	totalVar := 0.0
	for _, v := range totals {
		d := v - totalMean
		totalVar += d * d
	}
	totalVar /= float64(n)
	if totalVar == 0 {
		return 0
	}

	return (float64(k) / float64(k-1)) * (1 - itemVarSum/totalVar)
}
