package analysis

import (
	"encoding/json"
	"math"
	"time"
)

// Metric is a diagnostic value that serializes NaN and infinities as JSON
// null. Some diagnostics are legitimately undefined (KMO on a singular
// correlation matrix, Cronbach's alpha for a factor with a single dominant
// item) or unbounded (the F statistic of a perfect fit), and encoding/json
// refuses non-finite float64 values.
type Metric float64

// IsValid reports whether the metric holds a finite value.
func (m Metric) IsValid() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// CAPoint is one row or column category positioned in principal coordinates.
type CAPoint struct {
	Label   string    `json:"label"`
	X       float64   `json:"x"` // axis 1 principal coordinate
	Y       float64   `json:"y"` // axis 2 principal coordinate
	Mass    float64   `json:"mass"`
	Inertia float64   `json:"inertia"` // share of total inertia
	Contrib []float64 `json:"contrib"` // contribution to each retained axis
	Cos2    float64   `json:"cos2"`    // quality of representation in the plane
}

// CorrespondenceSummary is the result of a correspondence analysis.
type CorrespondenceSummary struct {
	RowColumn string `json:"row_column"`
	ColColumn string `json:"col_column"`

	RowPoints []CAPoint `json:"row_points"`
	ColPoints []CAPoint `json:"col_points"`

	Eigenvalues  []float64 `json:"eigenvalues"`   // squared singular values, trivial axis excluded
	InertiaShare []float64 `json:"inertia_share"` // fraction of total inertia per axis
	TotalInertia float64   `json:"total_inertia"`
	ChiSquare    float64   `json:"chi_square"`

	GrandTotal int `json:"grand_total"` // sum of the contingency table
}

// PCASummary is the result of a principal component analysis.
type PCASummary struct {
	Variables       []string    `json:"variables"`
	Components      int         `json:"components"`
	Eigenvalues     []float64   `json:"eigenvalues"`
	ExplainedRatio  []float64   `json:"explained_ratio"`
	CumulativeRatio []float64   `json:"cumulative_ratio"`
	Loadings        [][]float64 `json:"loadings"` // variables x components
	RowsUsed        int         `json:"rows_used"`
	Scores          [][]float64 `json:"scores,omitempty"` // rows x 2, first two components
}

// FactorSummary is the result of a factor analysis with varimax rotation.
type FactorSummary struct {
	Variables         []string    `json:"variables"`
	Factors           int         `json:"factors"`
	Loadings          [][]float64 `json:"loadings"` // variables x factors, rotated
	Communalities     []float64   `json:"communalities"`
	Uniquenesses      []float64   `json:"uniquenesses"`
	VarianceExplained []float64   `json:"variance_explained"` // per rotated factor, fraction
	KMO               Metric      `json:"kmo"`
	BartlettChiSquare Metric      `json:"bartlett_chi_square"`
	BartlettP         float64     `json:"bartlett_p"`
	CronbachAlpha     []Metric    `json:"cronbach_alpha"` // per factor, over its dominant variables
	RowsUsed          int         `json:"rows_used"`
}

// ClusterPoint is one observation projected to two dimensions for plotting.
type ClusterPoint struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Cluster int     `json:"cluster"`
}

// ElbowPoint records within-cluster sum of squares for one candidate k.
type ElbowPoint struct {
	K   int     `json:"k"`
	WSS float64 `json:"wss"`
}

// KMeansSummary is the result of a k-means clustering run.
type KMeansSummary struct {
	Variables    []string       `json:"variables"`
	K            int            `json:"k"`
	AutoSelected bool           `json:"auto_selected"`
	WSS          float64        `json:"wss"`
	Silhouette   float64        `json:"silhouette"`
	ClusterSizes []int          `json:"cluster_sizes"`
	Centroids    [][]float64    `json:"centroids"` // k x variables, original units
	Elbow        []ElbowPoint   `json:"elbow,omitempty"`
	Points       []ClusterPoint `json:"points,omitempty"` // PCA projection for the chart
	RowsUsed     int            `json:"rows_used"`
}

// Coefficient is one fitted regression term with its inference.
type Coefficient struct {
	Name         string  `json:"name"`
	Estimate     float64 `json:"estimate"`
	StdError     float64 `json:"std_error"`
	TStat        float64 `json:"t_stat"`
	PValue       float64 `json:"p_value"`
	Standardized float64 `json:"standardized"` // beta weight; 0 for the intercept
}

// RegressionSummary is the result of an ordinary least squares fit.
type RegressionSummary struct {
	Target         string        `json:"target"`
	Features       []string      `json:"features"`
	Coefficients   []Coefficient `json:"coefficients"` // intercept first
	RSquared       float64       `json:"r_squared"`
	AdjRSquared    float64       `json:"adj_r_squared"`
	FStat          Metric        `json:"f_stat"`
	FPValue        float64       `json:"f_p_value"`
	ResidualStdErr float64       `json:"residual_std_err"`
	DurbinWatson   float64       `json:"durbin_watson"`
	RowsUsed       int           `json:"rows_used"`
	Actual         []float64     `json:"actual,omitempty"`
	Fitted         []float64     `json:"fitted,omitempty"`
}

// RFMSegment aggregates the customers falling into one named segment.
type RFMSegment struct {
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	Share         float64 `json:"share"`
	AvgRecencyDay float64 `json:"avg_recency_days"`
	AvgFrequency  float64 `json:"avg_frequency"`
	AvgMonetary   float64 `json:"avg_monetary"`
}

// RFMSummary is the result of an RFM segmentation.
type RFMSummary struct {
	CustomerColumn string       `json:"customer_column"`
	DateColumn     string       `json:"date_column"`
	AmountColumn   string       `json:"amount_column"`
	SnapshotDate   time.Time    `json:"snapshot_date"` // day after the last transaction
	Customers      int          `json:"customers"`
	Transactions   int          `json:"transactions"`
	Segments       []RFMSegment `json:"segments"`
}

// SeriesPoint is one historical observation of the forecast target.
type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ForecastPoint is one forecast step with its interval.
type ForecastPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// ForecastSummary is the result of an exponential-smoothing forecast.
type ForecastSummary struct {
	TimeColumn   string          `json:"time_column"`
	ValueColumn  string          `json:"value_column"`
	Method       string          `json:"method"` // "holt_winters", "holt", "ses"
	SeasonLength int             `json:"season_length,omitempty"`
	Alpha        float64         `json:"alpha"`
	Beta         float64         `json:"beta,omitempty"`
	Gamma        float64         `json:"gamma,omitempty"`
	RMSE         float64         `json:"rmse"`
	MAPE         float64         `json:"mape"`
	History      []SeriesPoint   `json:"history"`
	Forecast     []ForecastPoint `json:"forecast"`
}
