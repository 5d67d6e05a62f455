package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestMetric_MarshalJSON(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		want  string
	}{
		{"finite", 1.5, "1.5"},
		{"nan", math.NaN(), "null"},
		{"plus_inf", math.Inf(1), "null"},
		{"minus_inf", math.Inf(-1), "null"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := json.Marshal(Metric(tc.value))
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(out) != tc.want {
				t.Errorf("got %s, want %s", out, tc.want)
			}
		})
	}
}

func TestMetric_NullDecodesAsUndefined(t *testing.T) {
	var m Metric
	if err := json.Unmarshal([]byte("null"), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if m.IsValid() {
		t.Errorf("null should decode to an undefined metric, got %f", float64(m))
	}
	if err := json.Unmarshal([]byte("0.25"), &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if float64(m) != 0.25 {
		t.Errorf("got %f, want 0.25", float64(m))
	}
}

func TestRegressionSummary_PerfectFitSerializes(t *testing.T) {
	summary := RegressionSummary{
		Target: "y",
		FStat:  Metric(math.Inf(1)),
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("an unbounded F statistic must still serialize: %v", err)
	}
	if !strings.Contains(string(raw), `"f_stat":null`) {
		t.Errorf("infinite F statistic should encode as null: %s", raw)
	}
}
