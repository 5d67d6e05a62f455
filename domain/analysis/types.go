package analysis

import (
	"fmt"
	"time"

	"statlab/domain/core"
)

// Kind identifies one of the supported statistical procedures
type Kind string

const (
	KindCorrespondence Kind = "correspondence"
	KindPCA            Kind = "pca"
	KindFactor         Kind = "factor"
	KindKMeans         Kind = "kmeans"
	KindRegression     Kind = "regression"
	KindRFM            Kind = "rfm"
	KindForecast       Kind = "forecast"
)

// AllKinds lists every supported analysis kind in a stable order.
func AllKinds() []Kind {
	return []Kind{
		KindCorrespondence, KindPCA, KindFactor, KindKMeans,
		KindRegression, KindRFM, KindForecast,
	}
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds() {
		if Kind(s) == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown analysis kind %q", core.ErrInvalidParams, s)
}

// Status represents the lifecycle of an analysis record
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Params carries the per-method configuration of an analysis request.
// Only the fields relevant to the requested kind are consulted.
type Params struct {
	// Correspondence analysis
	RowColumn string `json:"row_column,omitempty"`
	ColColumn string `json:"col_column,omitempty"`

	// PCA / factor analysis / clustering: input columns.
	// Empty means every numeric column.
	Columns []string `json:"columns,omitempty"`

	// Factor analysis
	Factors int `json:"factors,omitempty"` // 0 = retain by eigenvalue > 1

	// Clustering
	K        int   `json:"k,omitempty"`     // 0 = auto-select via elbow
	MaxK     int   `json:"max_k,omitempty"` // upper bound for auto-select
	Restarts int   `json:"restarts,omitempty"`
	Seed     int64 `json:"seed,omitempty"`

	// Regression
	Target   string   `json:"target,omitempty"`
	Features []string `json:"features,omitempty"` // empty = all other numeric columns

	// RFM segmentation
	CustomerColumn string `json:"customer_column,omitempty"`
	DateColumn     string `json:"date_column,omitempty"`
	AmountColumn   string `json:"amount_column,omitempty"`

	// Forecasting
	TimeColumn   string `json:"time_column,omitempty"`
	ValueColumn  string `json:"value_column,omitempty"`
	Horizon      int    `json:"horizon,omitempty"`
	SeasonLength int    `json:"season_length,omitempty"` // 0 = detect
}

// Analysis is the persisted record of one analysis run.
type Analysis struct {
	ID        core.AnalysisID `json:"id"`
	DatasetID core.DatasetID  `json:"dataset_id"`
	Kind      Kind            `json:"kind"`
	Params    Params          `json:"params"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Summary is the method-specific result structure (one of the
	// *Summary types below). Nil until the run completes.
	Summary any `json:"summary,omitempty"`

	// ChartPNG is the rendered diagnostic chart. Served separately,
	// never inlined into JSON responses.
	ChartPNG []byte `json:"-"`

	ElapsedMS int64     `json:"elapsed_ms"`
	CreatedAt time.Time `json:"created_at"`
}
