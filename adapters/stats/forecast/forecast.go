package forecast

import (
	"context"
	"math"
	"sort"
	"time"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"
)

const (
	defaultHorizon = 12
	maxHorizon     = 120
	maxSeasonLag   = 24

	// seasonality below this autocorrelation is treated as absent
	seasonAutocorrMin = 0.3

	// z for ~95% forecast intervals
	intervalZ = 1.96
)

// Analyzer forecasts a regular time series with exponential smoothing:
// Holt-Winters additive when a seasonal cycle is detectable, Holt's
// linear trend otherwise, and simple smoothing for very short series.
type Analyzer struct{}

// New creates a forecasting analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Kind identifies this analyzer
func (a *Analyzer) Kind() analysis.Kind {
	return analysis.KindForecast
}

// Validate checks the time and value columns
func (a *Analyzer) Validate(tbl *dataset.Table, params analysis.Params) error {
	if params.TimeColumn == "" || params.ValueColumn == "" {
		return core.NewParamsError("time_column/value_column", "both are required")
	}
	timeCol, err := tbl.Column(params.TimeColumn)
	if err != nil {
		return err
	}
	if timeCol.Type != dataset.TypeDatetime {
		return core.NewColumnTypeError(params.TimeColumn, "datetime", string(timeCol.Type))
	}
	valueCol, err := tbl.Column(params.ValueColumn)
	if err != nil {
		return err
	}
	if valueCol.Type != dataset.TypeNumeric {
		return core.NewColumnTypeError(params.ValueColumn, "numeric", string(valueCol.Type))
	}
	if params.Horizon < 0 || params.Horizon > maxHorizon {
		return core.NewParamsError("horizon", "must be between 1 and 120 (or 0 for default)")
	}
	return nil
}

// Run fits the smoother and produces the forecast summary
func (a *Analyzer) Run(ctx context.Context, tbl *dataset.Table, params analysis.Params) (any, error) {
	if err := a.Validate(tbl, params); err != nil {
		return nil, err
	}
	times, err := tbl.TimeColumn(params.TimeColumn)
	if err != nil {
		return nil, err
	}
	values, err := tbl.NumericColumn(params.ValueColumn)
	if err != nil {
		return nil, err
	}

	series := collapseSeries(times, values)
	if len(series) < 4 {
		return nil, core.NewInsufficientDataError(4, len(series))
	}

	horizon := params.Horizon
	if horizon == 0 {
		horizon = defaultHorizon
	}

	y := make([]float64, len(series))
	for i, p := range series {
		y[i] = p.Value
	}

	season := params.SeasonLength
	if season == 0 {
		season = detectSeason(y)
	}
	// Seasonal fitting needs three full cycles to be trustworthy.
	if season > 0 && len(y) < 3*season {
		season = 0
	}

	var fit smootherFit
	switch {
	case season >= 2:
		fit = fitHoltWinters(y, season, horizon)
	case len(y) >= 10:
		fit = fitHolt(y, horizon)
	default:
		fit = fitSES(y, horizon)
	}

	step := medianStep(series)
	last := series[len(series)-1].Time
	residStd := residualStd(fit.residuals)

	points := make([]analysis.ForecastPoint, horizon)
	for h := 0; h < horizon; h++ {
		// Interval width grows with the forecast distance.
		width := intervalZ * residStd * math.Sqrt(float64(h+1))
		points[h] = analysis.ForecastPoint{
			Time:  last.Add(step * time.Duration(h+1)),
			Value: fit.forecast[h],
			Lower: fit.forecast[h] - width,
			Upper: fit.forecast[h] + width,
		}
	}

	summary := &analysis.ForecastSummary{
		TimeColumn:   params.TimeColumn,
		ValueColumn:  params.ValueColumn,
		Method:       fit.method,
		SeasonLength: season,
		Alpha:        fit.alpha,
		Beta:         fit.beta,
		Gamma:        fit.gamma,
		RMSE:         rmse(fit.residuals),
		MAPE:         mape(y, fit.residuals),
		History:      series,
		Forecast:     points,
	}
	return summary, nil
}

// collapseSeries drops incomplete rows, sorts by time, and averages
// duplicate timestamps.
func collapseSeries(times []time.Time, values []float64) []analysis.SeriesPoint {
	type acc struct {
		sum   float64
		count int
	}
	byTime := make(map[time.Time]*acc)
	for i := range times {
		if times[i].IsZero() || math.IsNaN(values[i]) {
			continue
		}
		a, ok := byTime[times[i]]
		if !ok {
			a = &acc{}
			byTime[times[i]] = a
		}
		a.sum += values[i]
		a.count++
	}
	series := make([]analysis.SeriesPoint, 0, len(byTime))
	for t, a := range byTime {
		series = append(series, analysis.SeriesPoint{Time: t, Value: a.sum / float64(a.count)})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	return series
}

// medianStep estimates the sampling interval from consecutive gaps.
func medianStep(series []analysis.SeriesPoint) time.Duration {
	if len(series) < 2 {
		return 24 * time.Hour
	}
	gaps := make([]time.Duration, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		gaps = append(gaps, series[i].Time.Sub(series[i-1].Time))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2]
}

// detectSeason scans candidate lags for the strongest autocorrelation of
// the differenced series.
func detectSeason(y []float64) int {
	// First-difference so a plain trend does not look seasonal.
	diff := make([]float64, len(y)-1)
	for i := range diff {
		diff[i] = y[i+1] - y[i]
	}
	maxLag := len(y) / 2
	if maxLag > maxSeasonLag {
		maxLag = maxSeasonLag
	}
	best, bestCorr := 0, seasonAutocorrMin
	for lag := 2; lag <= maxLag; lag++ {
		if c := autocorrelation(diff, lag); c > bestCorr {
			best, bestCorr = lag, c
		}
	}
	return best
}

// autocorrelation computes the lag-k autocorrelation of a series.
func autocorrelation(y []float64, lag int) float64 {
	n := len(y)
	if lag >= n {
		return 0
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	var num, den float64
	for i := 0; i < n; i++ {
		d := y[i] - mean
		den += d * d
		if i+lag < n {
			num += d * (y[i+lag] - mean)
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// smootherFit bundles a fitted smoother's forecasts and diagnostics.
type smootherFit struct {
	method    string
	alpha     float64
	beta      float64
	gamma     float64
	forecast  []float64
	residuals []float64 // one-step in-sample errors
}

// smoothing parameter grid for the coarse in-sample search
var paramGrid = []float64{0.1, 0.3, 0.5, 0.7, 0.9}

// fitSES fits simple exponential smoothing, selecting alpha by SSE.
func fitSES(y []float64, horizon int) smootherFit {
	best := smootherFit{method: "ses"}
	bestSSE := math.Inf(1)
	for _, alpha := range paramGrid {
		level := y[0]
		residuals := make([]float64, 0, len(y)-1)
		sse := 0.0
		for i := 1; i < len(y); i++ {
			err := y[i] - level
			residuals = append(residuals, err)
			sse += err * err
			level += alpha * err
		}
		if sse < bestSSE {
			bestSSE = sse
			forecast := make([]float64, horizon)
			for h := range forecast {
				forecast[h] = level
			}
			best = smootherFit{method: "ses", alpha: alpha, forecast: forecast, residuals: residuals}
		}
	}
	return best
}

// fitHolt fits double (trend) exponential smoothing.
func fitHolt(y []float64, horizon int) smootherFit {
	best := smootherFit{method: "holt"}
	bestSSE := math.Inf(1)
	for _, alpha := range paramGrid {
		for _, beta := range paramGrid {
			level := y[0]
			trend := y[1] - y[0]
			residuals := make([]float64, 0, len(y)-1)
			sse := 0.0
			for i := 1; i < len(y); i++ {
				pred := level + trend
				err := y[i] - pred
				residuals = append(residuals, err)
				sse += err * err
				newLevel := pred + alpha*err
				trend += alpha * beta * err
				level = newLevel
			}
			if sse < bestSSE {
				bestSSE = sse
				forecast := make([]float64, horizon)
				for h := range forecast {
					forecast[h] = level + trend*float64(h+1)
				}
				best = smootherFit{method: "holt", alpha: alpha, beta: beta, forecast: forecast, residuals: residuals}
			}
		}
	}
	return best
}

// fitHoltWinters fits additive triple exponential smoothing.
func fitHoltWinters(y []float64, season, horizon int) smootherFit {
	best := smootherFit{method: "holt_winters"}
	bestSSE := math.Inf(1)
	for _, alpha := range paramGrid {
		for _, beta := range paramGrid {
			for _, gamma := range paramGrid {
				fit := holtWintersOnce(y, season, horizon, alpha, beta, gamma)
				sse := 0.0
				for _, r := range fit.residuals {
					sse += r * r
				}
				if sse < bestSSE {
					bestSSE = sse
					best = fit
				}
			}
		}
	}
	return best
}

// holtWintersOnce runs one additive Holt-Winters pass with fixed parameters.
func holtWintersOnce(y []float64, season, horizon int, alpha, beta, gamma float64) smootherFit {
	// Initial level/trend from the first two seasons, seasonal indices
	// from deviations of the first cycle.
	firstMean, secondMean := 0.0, 0.0
	for i := 0; i < season; i++ {
		firstMean += y[i]
		secondMean += y[season+i]
	}
	firstMean /= float64(season)
	secondMean /= float64(season)

	level := firstMean
	trend := (secondMean - firstMean) / float64(season)
	seasonal := make([]float64, season)
	for i := 0; i < season; i++ {
		seasonal[i] = y[i] - firstMean
	}

	residuals := make([]float64, 0, len(y)-season)
	for i := season; i < len(y); i++ {
		s := seasonal[i%season]
		pred := level + trend + s
		err := y[i] - pred
		residuals = append(residuals, err)

		newLevel := level + trend + alpha*err
		trend += alpha * beta * err
		seasonal[i%season] = s + gamma*(1-alpha)*err
		level = newLevel
	}

	forecast := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		idx := (len(y) + h) % season
		forecast[h] = level + trend*float64(h+1) + seasonal[idx]
	}
	return smootherFit{
		method: "holt_winters", alpha: alpha, beta: beta, gamma: gamma,
		forecast: forecast, residuals: residuals,
	}
}

func residualStd(residuals []float64) float64 {
	if len(residuals) == 0 {
		return 0
	}
	sse := 0.0
	for _, r := range residuals {
		sse += r * r
	}
	return math.Sqrt(sse / float64(len(residuals)))
}

func rmse(residuals []float64) float64 {
	return residualStd(residuals)
}

// mape computes mean absolute percentage error over the fitted span,
// skipping zero actuals.
func mape(y []float64, residuals []float64) float64 {
	offset := len(y) - len(residuals)
	sum, count := 0.0, 0
	for i, r := range residuals {
		actual := y[offset+i]
		if actual == 0 {
			continue
		}
		sum += math.Abs(r / actual)
		count++
	}
	if count == 0 {
		return 0
	}
	return 100 * sum / float64(count)
}
