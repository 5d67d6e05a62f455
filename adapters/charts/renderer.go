package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"statlab/adapters/stats/correspondence"
	"statlab/domain/analysis"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 6 * vg.Inch
)

var palette = []color.RGBA{
	{R: 70, G: 130, B: 180, A: 255},  // steel blue
	{R: 205, G: 92, B: 92, A: 255},   // indian red
	{R: 60, G: 179, B: 113, A: 255},  // medium sea green
	{R: 218, G: 165, B: 32, A: 255},  // goldenrod
	{R: 147, G: 112, B: 219, A: 255}, // medium purple
	{R: 95, G: 158, B: 160, A: 255},  // cadet blue
	{R: 210, G: 105, B: 30, A: 255},  // chocolate
	{R: 119, G: 136, B: 153, A: 255}, // slate gray
}

func paletteColor(i int) color.RGBA {
	return palette[i%len(palette)]
}

// Renderer draws one diagnostic PNG per analysis kind.
type Renderer struct{}

// NewRenderer creates a chart renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render dispatches on the analysis kind. The summary must be the type
// produced by the matching analyzer.
func (r *Renderer) Render(kind analysis.Kind, summary any) ([]byte, error) {
	var (
		p   *plot.Plot
		err error
	)
	switch kind {
	case analysis.KindCorrespondence:
		s, ok := summary.(*analysis.CorrespondenceSummary)
		if !ok {
			return nil, fmt.Errorf("render %s: unexpected summary type %T", kind, summary)
		}
		p, err = biplot(s)
	case analysis.KindPCA:
		s, ok := summary.(*analysis.PCASummary)
		if !ok {
			return nil, fmt.Errorf("render %s: unexpected summary type %T", kind, summary)
		}
		p, err = screePlot(s)
	case analysis.KindFactor:
		s, ok := summary.(*analysis.FactorSummary)
		if !ok {
			return nil, fmt.Errorf("render %s: unexpected summary type %T", kind, summary)
		}
		p, err = loadingsPlot(s)
	case analysis.KindKMeans:
		s, ok := summary.(*analysis.KMeansSummary)
		if !ok {
			return nil, fmt.Errorf("render %s: unexpected summary type %T", kind, summary)
		}
		p, err = clusterPlot(s)
	case analysis.KindRegression:
		s, ok := summary.(*analysis.RegressionSummary)
		if !ok {
			return nil, fmt.Errorf("render %s: unexpected summary type %T", kind, summary)
		}
		p, err = fitPlot(s)
	case analysis.KindRFM:
		s, ok := summary.(*analysis.RFMSummary)
		if !ok {
			return nil, fmt.Errorf("render %s: unexpected summary type %T", kind, summary)
		}
		p, err = segmentPlot(s)
	case analysis.KindForecast:
		s, ok := summary.(*analysis.ForecastSummary)
		if !ok {
			return nil, fmt.Errorf("render %s: unexpected summary type %T", kind, summary)
		}
		p, err = forecastPlot(s)
	default:
		return nil, fmt.Errorf("render: unknown analysis kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return encodePNG(p)
}

func encodePNG(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// biplot draws rows and columns in the first two principal coordinates,
// with overlap-avoiding labels.
func biplot(s *analysis.CorrespondenceSummary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Correspondence Analysis"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	if len(s.InertiaShare) >= 2 {
		p.X.Label.Text = fmt.Sprintf("Dim 1 (%.1f%%)", 100*s.InertiaShare[0])
		p.Y.Label.Text = fmt.Sprintf("Dim 2 (%.1f%%)", 100*s.InertiaShare[1])
	}

	rowXYs := make(plotter.XYs, len(s.RowPoints))
	for i, pt := range s.RowPoints {
		rowXYs[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	colXYs := make(plotter.XYs, len(s.ColPoints))
	for i, pt := range s.ColPoints {
		colXYs[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}

	rows, err := plotter.NewScatter(rowXYs)
	if err != nil {
		return nil, err
	}
	rows.GlyphStyle.Color = paletteColor(0)
	rows.GlyphStyle.Radius = vg.Points(4)
	rows.GlyphStyle.Shape = draw.CircleGlyph{}

	cols, err := plotter.NewScatter(colXYs)
	if err != nil {
		return nil, err
	}
	cols.GlyphStyle.Color = paletteColor(1)
	cols.GlyphStyle.Radius = vg.Points(4)
	cols.GlyphStyle.Shape = draw.PyramidGlyph{}

	p.Add(plotter.NewGrid(), rows, cols)
	p.Legend.Add(s.RowColumn, rows)
	p.Legend.Add(s.ColColumn, cols)
	p.Legend.Top = true

	labels := make([]correspondence.LabelPoint, 0, len(s.RowPoints)+len(s.ColPoints))
	for _, pt := range s.RowPoints {
		labels = append(labels, correspondence.LabelPoint{Text: pt.Label, X: pt.X, Y: pt.Y})
	}
	for _, pt := range s.ColPoints {
		labels = append(labels, correspondence.LabelPoint{Text: pt.Label, X: pt.X, Y: pt.Y})
	}

	// Glyph sizes scaled into data coordinates from the coordinate spread.
	span := coordSpan(labels)
	placed := correspondence.PlaceLabels(labels, span*0.012, span*0.03, span*0.015)

	xys := make(plotter.XYs, len(placed))
	texts := make([]string, len(placed))
	for i, pl := range placed {
		xys[i] = plotter.XY{X: pl.X, Y: pl.Y}
		texts[i] = pl.Text
	}
	labelPlot, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	p.Add(labelPlot)
	return p, nil
}

// coordSpan returns the larger of the x and y ranges of the points.
func coordSpan(points []correspondence.LabelPoint) float64 {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	span := math.Max(xmax-xmin, ymax-ymin)
	if span == 0 || math.IsInf(span, 0) {
		return 1
	}
	return span
}

// screePlot draws eigenvalue bars with the cumulative explained-variance line.
func screePlot(s *analysis.PCASummary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Scree Plot"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Component"
	p.Y.Label.Text = "Explained Variance"

	values := make(plotter.Values, len(s.ExplainedRatio))
	names := make([]string, len(s.ExplainedRatio))
	for i, v := range s.ExplainedRatio {
		values[i] = v
		names[i] = fmt.Sprintf("PC%d", i+1)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return nil, err
	}
	bars.Color = paletteColor(0)
	bars.LineStyle.Width = vg.Length(0)

	cumulative := make(plotter.XYs, len(s.CumulativeRatio))
	for i, v := range s.CumulativeRatio {
		cumulative[i] = plotter.XY{X: float64(i), Y: v}
	}
	line, err := plotter.NewLine(cumulative)
	if err != nil {
		return nil, err
	}
	line.Color = paletteColor(1)
	line.Width = vg.Points(2)

	p.Add(bars, line)
	p.NominalX(names...)
	p.Legend.Add("explained", bars)
	p.Legend.Add("cumulative", line)
	p.Legend.Top = true
	return p, nil
}

// loadingsPlot draws grouped bars of rotated loadings per variable.
func loadingsPlot(s *analysis.FactorSummary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Rotated Factor Loadings"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Variable"
	p.Y.Label.Text = "Loading"

	barWidth := vg.Points(40 / float64(s.Factors))
	for f := 0; f < s.Factors; f++ {
		values := make(plotter.Values, len(s.Variables))
		for v := range s.Variables {
			values[v] = s.Loadings[v][f]
		}
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return nil, err
		}
		bars.Color = paletteColor(f)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = barWidth * vg.Length(f-s.Factors/2)
		p.Add(bars)
		p.Legend.Add(fmt.Sprintf("Factor %d", f+1), bars)
	}
	p.NominalX(s.Variables...)
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p, nil
}

// clusterPlot draws the observations projected to the first two principal
// components, colored by cluster.
func clusterPlot(s *analysis.KMeansSummary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("K-Means Clusters (k=%d)", s.K)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"

	byCluster := make(map[int]plotter.XYs)
	for _, pt := range s.Points {
		byCluster[pt.Cluster] = append(byCluster[pt.Cluster], plotter.XY{X: pt.X, Y: pt.Y})
	}
	for c := 0; c < s.K; c++ {
		xys, ok := byCluster[c]
		if !ok {
			continue
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = paletteColor(c)
		scatter.GlyphStyle.Radius = vg.Points(3)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("cluster %d (%d)", c+1, s.ClusterSizes[c]), scatter)
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p, nil
}

// fitPlot draws actual versus fitted values with the identity line.
func fitPlot(s *analysis.RegressionSummary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Actual vs Fitted: %s (R²=%.3f)", s.Target, s.RSquared)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Fitted"
	p.Y.Label.Text = "Actual"

	xys := make(plotter.XYs, len(s.Actual))
	for i := range s.Actual {
		xys[i] = plotter.XY{X: s.Fitted[i], Y: s.Actual[i]}
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = paletteColor(0)
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}

	identity := plotter.NewFunction(func(x float64) float64 { return x })
	identity.Color = paletteColor(1)
	identity.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}

	p.Add(plotter.NewGrid(), scatter, identity)
	return p, nil
}

// segmentPlot draws customer counts per RFM segment.
func segmentPlot(s *analysis.RFMSummary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("RFM Segments (%d customers)", s.Customers)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Segment"
	p.Y.Label.Text = "Customers"

	values := make(plotter.Values, len(s.Segments))
	names := make([]string, len(s.Segments))
	for i, seg := range s.Segments {
		values[i] = float64(seg.Count)
		names[i] = seg.Name
	}
	bars, err := plotter.NewBarChart(values, vg.Points(28))
	if err != nil {
		return nil, err
	}
	bars.Color = paletteColor(0)
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return p, nil
}

// forecastPlot draws the history, the forecast, and its interval bounds.
func forecastPlot(s *analysis.ForecastSummary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Forecast: %s (%s)", s.ValueColumn, s.Method)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = s.TimeColumn
	p.Y.Label.Text = s.ValueColumn
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	history := make(plotter.XYs, len(s.History))
	for i, pt := range s.History {
		history[i] = plotter.XY{X: float64(pt.Time.Unix()), Y: pt.Value}
	}
	histLine, err := plotter.NewLine(history)
	if err != nil {
		return nil, err
	}
	histLine.Color = paletteColor(0)
	histLine.Width = vg.Points(2)

	forecast := make(plotter.XYs, 0, len(s.Forecast)+1)
	lower := make(plotter.XYs, 0, len(s.Forecast)+1)
	upper := make(plotter.XYs, 0, len(s.Forecast)+1)
	if n := len(s.History); n > 0 {
		// Join the forecast to the last observation.
		last := plotter.XY{X: float64(s.History[n-1].Time.Unix()), Y: s.History[n-1].Value}
		forecast = append(forecast, last)
		lower = append(lower, last)
		upper = append(upper, last)
	}
	for _, pt := range s.Forecast {
		x := float64(pt.Time.Unix())
		forecast = append(forecast, plotter.XY{X: x, Y: pt.Value})
		lower = append(lower, plotter.XY{X: x, Y: pt.Lower})
		upper = append(upper, plotter.XY{X: x, Y: pt.Upper})
	}

	fcLine, err := plotter.NewLine(forecast)
	if err != nil {
		return nil, err
	}
	fcLine.Color = paletteColor(1)
	fcLine.Width = vg.Points(2)

	loLine, err := plotter.NewLine(lower)
	if err != nil {
		return nil, err
	}
	upLine, err := plotter.NewLine(upper)
	if err != nil {
		return nil, err
	}
	for _, l := range []*plotter.Line{loLine, upLine} {
		l.Color = paletteColor(1)
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		l.Width = vg.Points(1)
	}

	p.Add(plotter.NewGrid(), histLine, fcLine, loLine, upLine)
	p.Legend.Add("history", histLine)
	p.Legend.Add("forecast", fcLine)
	p.Legend.Top = true
	return p, nil
}
