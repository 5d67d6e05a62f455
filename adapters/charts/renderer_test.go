package charts

import (
	"bytes"
	"testing"
	"time"

	"statlab/domain/analysis"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func assertPNG(t *testing.T, b []byte, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(b, pngMagic) {
		t.Fatal("output is not a PNG")
	}
}

func TestRender_Correspondence(t *testing.T) {
	summary := &analysis.CorrespondenceSummary{
		RowColumn: "region",
		ColColumn: "product",
		RowPoints: []analysis.CAPoint{
			{Label: "north", X: 0.4, Y: 0.1},
			{Label: "south", X: -0.3, Y: 0.2},
			{Label: "east", X: 0.1, Y: -0.4},
		},
		ColPoints: []analysis.CAPoint{
			{Label: "widgets", X: 0.2, Y: 0.3},
			{Label: "gadgets", X: -0.2, Y: -0.1},
		},
		InertiaShare: []float64{0.7, 0.3},
	}
	b, err := NewRenderer().Render(analysis.KindCorrespondence, summary)
	assertPNG(t, b, err)
}

func TestRender_PCA(t *testing.T) {
	summary := &analysis.PCASummary{
		Variables:       []string{"a", "b", "c"},
		Components:      3,
		Eigenvalues:     []float64{2.1, 0.6, 0.3},
		ExplainedRatio:  []float64{0.7, 0.2, 0.1},
		CumulativeRatio: []float64{0.7, 0.9, 1.0},
	}
	b, err := NewRenderer().Render(analysis.KindPCA, summary)
	assertPNG(t, b, err)
}

func TestRender_Factor(t *testing.T) {
	summary := &analysis.FactorSummary{
		Variables: []string{"a", "b", "c", "d"},
		Factors:   2,
		Loadings: [][]float64{
			{0.8, 0.1}, {0.7, 0.2}, {0.1, 0.9}, {-0.2, 0.6},
		},
	}
	b, err := NewRenderer().Render(analysis.KindFactor, summary)
	assertPNG(t, b, err)
}

func TestRender_KMeans(t *testing.T) {
	summary := &analysis.KMeansSummary{
		K:            2,
		ClusterSizes: []int{2, 2},
		Points: []analysis.ClusterPoint{
			{X: 1, Y: 1, Cluster: 0},
			{X: 1.2, Y: 0.8, Cluster: 0},
			{X: -1, Y: -1, Cluster: 1},
			{X: -0.9, Y: -1.1, Cluster: 1},
		},
	}
	b, err := NewRenderer().Render(analysis.KindKMeans, summary)
	assertPNG(t, b, err)
}

func TestRender_Regression(t *testing.T) {
	summary := &analysis.RegressionSummary{
		Target:   "price",
		RSquared: 0.91,
		Actual:   []float64{1, 2, 3, 4},
		Fitted:   []float64{1.1, 1.9, 3.2, 3.8},
	}
	b, err := NewRenderer().Render(analysis.KindRegression, summary)
	assertPNG(t, b, err)
}

func TestRender_RFM(t *testing.T) {
	summary := &analysis.RFMSummary{
		Customers: 10,
		Segments: []analysis.RFMSegment{
			{Name: "champions", Count: 3},
			{Name: "loyal", Count: 4},
			{Name: "at risk", Count: 3},
		},
	}
	b, err := NewRenderer().Render(analysis.KindRFM, summary)
	assertPNG(t, b, err)
}

func TestRender_Forecast(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	summary := &analysis.ForecastSummary{
		TimeColumn:  "date",
		ValueColumn: "sales",
		Method:      "holt",
		History: []analysis.SeriesPoint{
			{Time: start, Value: 10},
			{Time: start.AddDate(0, 0, 1), Value: 12},
			{Time: start.AddDate(0, 0, 2), Value: 14},
		},
		Forecast: []analysis.ForecastPoint{
			{Time: start.AddDate(0, 0, 3), Value: 16, Lower: 14, Upper: 18},
			{Time: start.AddDate(0, 0, 4), Value: 18, Lower: 15, Upper: 21},
		},
	}
	b, err := NewRenderer().Render(analysis.KindForecast, summary)
	assertPNG(t, b, err)
}

func TestRender_RejectsMismatchedSummary(t *testing.T) {
	if _, err := NewRenderer().Render(analysis.KindPCA, &analysis.RFMSummary{}); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestRender_UnknownKind(t *testing.T) {
	if _, err := NewRenderer().Render(analysis.Kind("nope"), nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
