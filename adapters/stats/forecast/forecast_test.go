package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"
)

func seriesTable(t *testing.T, start time.Time, step time.Duration, values []float64) *dataset.Table {
	t.Helper()
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{
			start.Add(step * time.Duration(i)).Format("2006-01-02"),
			fmt.Sprintf("%g", v),
		}
	}
	tbl, err := dataset.BuildTable([]string{"date", "sales"}, rows)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	return tbl
}

func runForecast(t *testing.T, tbl *dataset.Table, params analysis.Params) *analysis.ForecastSummary {
	t.Helper()
	out, err := New().Run(context.Background(), tbl, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.(*analysis.ForecastSummary)
}

func TestForecast_SeasonalSeriesUsesHoltWinters(t *testing.T) {
	pattern := []float64{10, 20, 30, 20}
	values := make([]float64, 0, 20)
	for i := 0; i < 5; i++ {
		values = append(values, pattern...)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := seriesTable(t, start, 24*time.Hour, values)

	sum := runForecast(t, tbl, analysis.Params{
		TimeColumn: "date", ValueColumn: "sales", Horizon: 4,
	})

	if sum.Method != "holt_winters" {
		t.Fatalf("method = %q, want holt_winters", sum.Method)
	}
	if sum.SeasonLength != 4 {
		t.Errorf("season length = %d, want 4", sum.SeasonLength)
	}
	if sum.RMSE > 1e-6 {
		t.Errorf("rmse = %g, want ~0 on a perfectly periodic series", sum.RMSE)
	}
	// The next cycle should repeat the pattern.
	for h, want := range pattern {
		if math.Abs(sum.Forecast[h].Value-want) > 1e-6 {
			t.Errorf("forecast[%d] = %g, want %g", h, sum.Forecast[h].Value, want)
		}
	}
	wantTime := start.Add(20 * 24 * time.Hour)
	if !sum.Forecast[0].Time.Equal(wantTime) {
		t.Errorf("forecast[0] time = %v, want %v", sum.Forecast[0].Time, wantTime)
	}
}

func TestForecast_TrendSeriesUsesHolt(t *testing.T) {
	values := make([]float64, 12)
	for i := range values {
		values[i] = 5 + 3*float64(i)
	}
	tbl := seriesTable(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 24*time.Hour, values)

	sum := runForecast(t, tbl, analysis.Params{
		TimeColumn: "date", ValueColumn: "sales", Horizon: 3,
	})

	if sum.Method != "holt" {
		t.Fatalf("method = %q, want holt", sum.Method)
	}
	// A clean linear trend extrapolates linearly.
	for h := 0; h < 3; h++ {
		want := 5 + 3*float64(12+h)
		if math.Abs(sum.Forecast[h].Value-want) > 0.5 {
			t.Errorf("forecast[%d] = %g, want ~%g", h, sum.Forecast[h].Value, want)
		}
	}
	if sum.Forecast[2].Upper < sum.Forecast[2].Lower {
		t.Error("interval upper below lower")
	}
}

func TestForecast_ShortSeriesFallsBackToSES(t *testing.T) {
	tbl := seriesTable(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 24*time.Hour,
		[]float64{5, 6, 5, 7, 6})

	sum := runForecast(t, tbl, analysis.Params{TimeColumn: "date", ValueColumn: "sales"})

	if sum.Method != "ses" {
		t.Fatalf("method = %q, want ses", sum.Method)
	}
	if len(sum.Forecast) != defaultHorizon {
		t.Errorf("forecast length = %d, want %d", len(sum.Forecast), defaultHorizon)
	}
	// Flat forecast from simple smoothing.
	if sum.Forecast[0].Value != sum.Forecast[11].Value {
		t.Error("ses forecast is not flat")
	}
}

func TestForecast_AveragesDuplicateTimestamps(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]string{
		{"2024-01-01", "10"},
		{"2024-01-01", "20"}, // duplicate day, averages to 15
		{"2024-01-02", "16"},
		{"2024-01-03", "17"},
		{"2024-01-04", "18"},
	}
	tbl, err := dataset.BuildTable([]string{"date", "sales"}, rows)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	sum := runForecast(t, tbl, analysis.Params{TimeColumn: "date", ValueColumn: "sales", Horizon: 1})

	if len(sum.History) != 4 {
		t.Fatalf("history length = %d, want 4", len(sum.History))
	}
	if !sum.History[0].Time.Equal(start) || sum.History[0].Value != 15 {
		t.Errorf("history[0] = %+v, want value 15 at %v", sum.History[0], start)
	}
}

func TestForecast_ValidateErrors(t *testing.T) {
	tbl := seriesTable(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 24*time.Hour,
		[]float64{1, 2, 3, 4, 5})

	cases := []struct {
		name   string
		params analysis.Params
	}{
		{"missing columns", analysis.Params{}},
		{"value not numeric", analysis.Params{TimeColumn: "date", ValueColumn: "date"}},
		{"time not datetime", analysis.Params{TimeColumn: "sales", ValueColumn: "sales"}},
		{"horizon too large", analysis.Params{TimeColumn: "date", ValueColumn: "sales", Horizon: 500}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := New().Validate(tbl, tc.params); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestForecast_TooFewObservations(t *testing.T) {
	tbl := seriesTable(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 24*time.Hour,
		[]float64{1, 2, 3})

	_, err := New().Run(context.Background(), tbl, analysis.Params{
		TimeColumn: "date", ValueColumn: "sales",
	})
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}
