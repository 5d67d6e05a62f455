package regress

import (
	"context"
	"fmt"
	"math"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxDiagnosticPoints caps the actual/fitted series carried for the chart.
const maxDiagnosticPoints = 2000

// Analyzer fits an ordinary least squares multiple regression with full
// coefficient inference.
type Analyzer struct{}

// New creates a regression analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Kind identifies this analyzer
func (a *Analyzer) Kind() analysis.Kind {
	return analysis.KindRegression
}

// Validate checks target and feature selection
func (a *Analyzer) Validate(tbl *dataset.Table, params analysis.Params) error {
	if params.Target == "" {
		return core.NewParamsError("target", "is required")
	}
	col, err := tbl.Column(params.Target)
	if err != nil {
		return err
	}
	if col.Type != dataset.TypeNumeric {
		return core.NewColumnTypeError(params.Target, "numeric", string(col.Type))
	}
	features, err := resolveFeatures(tbl, params)
	if err != nil {
		return err
	}
	if len(features) == 0 {
		return core.NewParamsError("features", "no numeric feature columns available")
	}
	return nil
}

// Run fits the model and assembles the summary
func (a *Analyzer) Run(ctx context.Context, tbl *dataset.Table, params analysis.Params) (any, error) {
	if err := a.Validate(tbl, params); err != nil {
		return nil, err
	}
	features, err := resolveFeatures(tbl, params)
	if err != nil {
		return nil, err
	}

	all := append([]string{params.Target}, features...)
	rows, _, err := tbl.CompleteRows(all)
	if err != nil {
		return nil, err
	}
	n := len(rows)
	p := len(features) + 1 // including intercept
	if n < p+2 {
		return nil, core.NewInsufficientDataError(p+2, n)
	}

	y := make([]float64, n)
	xData := make([]float64, n*p)
	for i, row := range rows {
		y[i] = row[0]
		xData[i*p] = 1
		for j := 0; j < len(features); j++ {
			xData[i*p+1+j] = row[j+1]
		}
	}
	x := mat.NewDense(n, p, xData)
	yVec := mat.NewVecDense(n, y)

	// OLS via QR keeps the normal equations' conditioning problems away.
	var qr mat.QR
	qr.Factorize(x)
	var betaVec mat.VecDense
	if err := qr.SolveVecTo(&betaVec, false, yVec); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSingularMatrix, err)
	}
	beta := betaVec.RawVector().Data

	fitted := make([]float64, n)
	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < p; j++ {
			pred += x.At(i, j) * beta[j]
		}
		fitted[i] = pred
		residuals[i] = y[i] - pred
	}

	df := float64(n - p)
	rss := 0.0
	for _, r := range residuals {
		rss += r * r
	}
	meanY := stat.Mean(y, nil)
	tss := 0.0
	for _, v := range y {
		d := v - meanY
		tss += d * d
	}
	if tss == 0 {
		return nil, fmt.Errorf("%w: target column is constant", core.ErrSingularMatrix)
	}

	r2 := 1 - rss/tss
	adjR2 := 1 - (1-r2)*float64(n-1)/df
	sigma2 := rss / df

	// Coefficient covariance: sigma^2 (X'X)^-1.
	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: X'X not invertible (collinear features?)", core.ErrSingularMatrix)
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	sdY := math.Sqrt(tss / float64(n-1))

	coefficients := make([]analysis.Coefficient, p)
	names := append([]string{"(intercept)"}, features...)
	for j := 0; j < p; j++ {
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		t := 0.0
		pv := 1.0
		if se > 0 {
			t = beta[j] / se
			pv = 2 * tDist.Survival(math.Abs(t))
		}
		std := 0.0
		if j > 0 {
			col := mat.Col(nil, j, x)
			sdX := math.Sqrt(stat.Variance(col, nil))
			if sdY > 0 {
				std = beta[j] * sdX / sdY
			}
		}
		coefficients[j] = analysis.Coefficient{
			Name:         names[j],
			Estimate:     beta[j],
			StdError:     se,
			TStat:        t,
			PValue:       pv,
			Standardized: std,
		}
	}

	// Overall F test against the intercept-only model.
	fStat := math.Inf(1)
	fP := 0.0
	if rss > 0 {
		fStat = (tss - rss) / float64(p-1) / sigma2
		fDist := distuv.F{D1: float64(p - 1), D2: df}
		fP = fDist.Survival(fStat)
	}

	keep := n
	if keep > maxDiagnosticPoints {
		keep = maxDiagnosticPoints
	}

	summary := &analysis.RegressionSummary{
		Target:         params.Target,
		Features:       features,
		Coefficients:   coefficients,
		RSquared:       r2,
		AdjRSquared:    adjR2,
		FStat:          analysis.Metric(fStat),
		FPValue:        fP,
		ResidualStdErr: math.Sqrt(sigma2),
		DurbinWatson:   durbinWatson(residuals),
		RowsUsed:       n,
		Actual:         y[:keep],
		Fitted:         fitted[:keep],
	}
	return summary, nil
}

// resolveFeatures expands an empty feature list to every numeric column
// except the target.
func resolveFeatures(tbl *dataset.Table, params analysis.Params) ([]string, error) {
	features := params.Features
	if len(features) == 0 {
		for _, name := range tbl.NumericColumnNames() {
			if name != params.Target {
				features = append(features, name)
			}
		}
		return features, nil
	}
	for _, name := range features {
		if name == params.Target {
			return nil, core.NewParamsError("features", "must not include the target")
		}
		col, err := tbl.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Type != dataset.TypeNumeric {
			return nil, core.NewColumnTypeError(name, "numeric", string(col.Type))
		}
	}
	return features, nil
}

// durbinWatson measures first-order autocorrelation in the residuals;
// values near 2 indicate none.
func durbinWatson(residuals []float64) float64 {
	if len(residuals) < 2 {
		return 0
	}
	num, den := 0.0, 0.0
	for i, r := range residuals {
		den += r * r
		if i > 0 {
			d := r - residuals[i-1]
			num += d * d
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}
