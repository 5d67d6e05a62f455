package rfm

import (
	"context"
	"math"
	"sort"
	"time"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"

	"github.com/montanaflynn/stats"
)

// segmentOrder fixes the reporting order of segments.
var segmentOrder = []string{
	"champions", "loyal", "promising", "new_customers",
	"at_risk", "needs_attention", "hibernating", "lost",
}

// Analyzer performs RFM (recency, frequency, monetary) segmentation of a
// transaction table: one row per transaction, aggregated per customer and
// scored into quintiles.
type Analyzer struct{}

// New creates an RFM analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Kind identifies this analyzer
func (a *Analyzer) Kind() analysis.Kind {
	return analysis.KindRFM
}

// Validate checks the three required columns
func (a *Analyzer) Validate(tbl *dataset.Table, params analysis.Params) error {
	if params.CustomerColumn == "" || params.DateColumn == "" || params.AmountColumn == "" {
		return core.NewParamsError("customer_column/date_column/amount_column", "all three are required")
	}
	if _, err := tbl.Column(params.CustomerColumn); err != nil {
		return err
	}
	dateCol, err := tbl.Column(params.DateColumn)
	if err != nil {
		return err
	}
	if dateCol.Type != dataset.TypeDatetime {
		return core.NewColumnTypeError(params.DateColumn, "datetime", string(dateCol.Type))
	}
	amountCol, err := tbl.Column(params.AmountColumn)
	if err != nil {
		return err
	}
	if amountCol.Type != dataset.TypeNumeric {
		return core.NewColumnTypeError(params.AmountColumn, "numeric", string(amountCol.Type))
	}
	return nil
}

type customerAgg struct {
	id        string
	last      time.Time
	frequency int
	monetary  float64
}

// Run computes the segmentation summary
func (a *Analyzer) Run(ctx context.Context, tbl *dataset.Table, params analysis.Params) (any, error) {
	if err := a.Validate(tbl, params); err != nil {
		return nil, err
	}
	customers, err := tbl.CategoricalColumn(params.CustomerColumn)
	if err != nil {
		return nil, err
	}
	dates, err := tbl.TimeColumn(params.DateColumn)
	if err != nil {
		return nil, err
	}
	amounts, err := tbl.NumericColumn(params.AmountColumn)
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[string]*customerAgg)
	transactions := 0
	var lastTxn time.Time
	for i := range customers {
		if customers[i] == "" || dates[i].IsZero() || math.IsNaN(amounts[i]) {
			continue
		}
		transactions++
		if dates[i].After(lastTxn) {
			lastTxn = dates[i]
		}
		agg, ok := byCustomer[customers[i]]
		if !ok {
			agg = &customerAgg{id: customers[i]}
			byCustomer[customers[i]] = agg
		}
		agg.frequency++
		agg.monetary += amounts[i]
		if dates[i].After(agg.last) {
			agg.last = dates[i]
		}
	}
	if len(byCustomer) < 5 {
		return nil, core.NewInsufficientDataError(5, len(byCustomer))
	}

	// Snapshot sits one day past the newest transaction so recency is
	// strictly positive.
	snapshot := lastTxn.Add(24 * time.Hour)

	aggs := make([]*customerAgg, 0, len(byCustomer))
	for _, agg := range byCustomer {
		aggs = append(aggs, agg)
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].id < aggs[j].id })

	recency := make([]float64, len(aggs))
	frequency := make([]float64, len(aggs))
	monetary := make([]float64, len(aggs))
	for i, agg := range aggs {
		recency[i] = snapshot.Sub(agg.last).Hours() / 24
		frequency[i] = float64(agg.frequency)
		monetary[i] = agg.monetary
	}

	// Lower recency is better, so its quintile score is inverted.
	rScores := quintileScores(recency, true)
	fScores := quintileScores(frequency, false)
	mScores := quintileScores(monetary, false)

	type segAgg struct {
		count     int
		recency   float64
		frequency float64
		monetary  float64
	}
	segments := make(map[string]*segAgg)
	for i := range aggs {
		name := segmentName(rScores[i], fScores[i], mScores[i])
		s, ok := segments[name]
		if !ok {
			s = &segAgg{}
			segments[name] = s
		}
		s.count++
		s.recency += recency[i]
		s.frequency += frequency[i]
		s.monetary += monetary[i]
	}

	out := make([]analysis.RFMSegment, 0, len(segments))
	for _, name := range segmentOrder {
		s, ok := segments[name]
		if !ok {
			continue
		}
		out = append(out, analysis.RFMSegment{
			Name:          name,
			Count:         s.count,
			Share:         float64(s.count) / float64(len(aggs)),
			AvgRecencyDay: s.recency / float64(s.count),
			AvgFrequency:  s.frequency / float64(s.count),
			AvgMonetary:   s.monetary / float64(s.count),
		})
	}

	summary := &analysis.RFMSummary{
		CustomerColumn: params.CustomerColumn,
		DateColumn:     params.DateColumn,
		AmountColumn:   params.AmountColumn,
		SnapshotDate:   snapshot,
		Customers:      len(aggs),
		Transactions:   transactions,
		Segments:       out,
	}
	return summary, nil
}

// quintileScores maps values to scores 1..5 by the 20/40/60/80th
// percentiles. With invert, smaller values score higher.
func quintileScores(values []float64, invert bool) []int {
	cuts := make([]float64, 4)
	for i, p := range []float64{20, 40, 60, 80} {
		c, err := stats.Percentile(values, p)
		if err != nil {
			c = math.Inf(1)
		}
		cuts[i] = c
	}
	scores := make([]int, len(values))
	for i, v := range values {
		score := 1
		for _, cut := range cuts {
			if v > cut {
				score++
			}
		}
		if invert {
			score = 6 - score
		}
		scores[i] = score
	}
	return scores
}

// segmentName maps RFM scores onto the classic named grid. The monetary
// score breaks ties between otherwise identical R/F cells.
func segmentName(r, f, m int) string {
	switch {
	case r >= 4 && f >= 4:
		return "champions"
	case r >= 3 && f >= 3:
		return "loyal"
	case r >= 4 && f <= 2:
		return "new_customers"
	case r >= 3:
		return "promising"
	case f >= 4 && m >= 3:
		return "at_risk"
	case f >= 3:
		return "needs_attention"
	case r == 2:
		return "hibernating"
	default:
		return "lost"
	}
}
