package rfm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"statlab/domain/analysis"
	"statlab/domain/dataset"
)

// transactionTable builds a synthetic transaction log: customers c00..cNN
// with activity graded from very recent + frequent down to long-lapsed.
func transactionTable(t *testing.T, customers int, base time.Time) *dataset.Table {
	t.Helper()
	var rows [][]string
	for c := 0; c < customers; c++ {
		id := fmt.Sprintf("c%02d", c)
		// Customer c's last purchase drifts further into the past and
		// transaction count shrinks as c grows.
		lag := time.Duration(c*10*24) * time.Hour
		count := customers - c
		for k := 0; k < count; k++ {
			d := base.Add(-lag - time.Duration(k*24)*time.Hour)
			amount := float64(100 - c)
			rows = append(rows, []string{id, d.Format("2006-01-02"), fmt.Sprintf("%.2f", amount)})
		}
	}
	tbl, err := dataset.BuildTable([]string{"customer", "date", "amount"}, rows)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	return tbl
}

func params() analysis.Params {
	return analysis.Params{
		CustomerColumn: "customer",
		DateColumn:     "date",
		AmountColumn:   "amount",
	}
}

func TestRFM_SegmentsCoverAllCustomers(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tbl := transactionTable(t, 25, base)

	out, err := New().Run(context.Background(), tbl, params())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	summary := out.(*analysis.RFMSummary)

	if summary.Customers != 25 {
		t.Errorf("expected 25 customers, got %d", summary.Customers)
	}
	total := 0
	shareSum := 0.0
	for _, seg := range summary.Segments {
		total += seg.Count
		shareSum += seg.Share
		if seg.AvgFrequency < 1 {
			t.Errorf("segment %s has impossible frequency %f", seg.Name, seg.AvgFrequency)
		}
		if seg.AvgRecencyDay <= 0 {
			t.Errorf("segment %s has non-positive recency %f", seg.Name, seg.AvgRecencyDay)
		}
	}
	if total != summary.Customers {
		t.Errorf("segment counts sum to %d, want %d", total, summary.Customers)
	}
	if shareSum < 0.999 || shareSum > 1.001 {
		t.Errorf("segment shares sum to %f, want 1", shareSum)
	}
}

func TestRFM_BestCustomerIsChampion(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tbl := transactionTable(t, 25, base)

	out, err := New().Run(context.Background(), tbl, params())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	summary := out.(*analysis.RFMSummary)

	// Customer c00 is the most recent, most frequent, highest spender:
	// a champions segment must exist and hold the lowest recency.
	var champions *analysis.RFMSegment
	for i := range summary.Segments {
		if summary.Segments[i].Name == "champions" {
			champions = &summary.Segments[i]
		}
	}
	if champions == nil {
		t.Fatal("expected a champions segment")
	}
	for _, seg := range summary.Segments {
		if seg.Name == "champions" {
			continue
		}
		if seg.AvgRecencyDay < champions.AvgRecencyDay {
			t.Errorf("segment %s is more recent than champions", seg.Name)
		}
	}
}

func TestRFM_SnapshotDayAfterLastTransaction(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tbl := transactionTable(t, 10, base)

	out, err := New().Run(context.Background(), tbl, params())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	summary := out.(*analysis.RFMSummary)

	want := base.Add(24 * time.Hour)
	if !summary.SnapshotDate.Equal(want) {
		t.Errorf("snapshot %v, want %v", summary.SnapshotDate, want)
	}
}

func TestRFM_SkipsIncompleteRows(t *testing.T) {
	rows := [][]string{
		{"a", "2025-01-01", "10"},
		{"", "2025-01-02", "10"}, // missing customer
		{"b", "", "10"},          // missing date
		{"c", "2025-01-03", ""},  // missing amount
		{"d", "2025-01-04", "20"},
		{"e", "2025-01-05", "30"},
		{"f", "2025-01-06", "40"},
		{"g", "2025-01-07", "50"},
	}
	tbl, err := dataset.BuildTable([]string{"customer", "date", "amount"}, rows)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}

	out, err := New().Run(context.Background(), tbl, params())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	summary := out.(*analysis.RFMSummary)
	if summary.Customers != 5 {
		t.Errorf("expected 5 usable customers, got %d", summary.Customers)
	}
	if summary.Transactions != 5 {
		t.Errorf("expected 5 usable transactions, got %d", summary.Transactions)
	}
}

func TestRFM_ValidateErrors(t *testing.T) {
	tbl, err := dataset.BuildTable([]string{"customer", "amount"}, [][]string{{"a", "1"}, {"b", "2"}})
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	a := New()
	if err := a.Validate(tbl, analysis.Params{}); err == nil {
		t.Error("expected error for missing params")
	}
	p := analysis.Params{CustomerColumn: "customer", DateColumn: "amount", AmountColumn: "amount"}
	if err := a.Validate(tbl, p); err == nil {
		t.Error("expected error for non-datetime date column")
	}
}
