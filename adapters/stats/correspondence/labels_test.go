package correspondence

import (
	"reflect"
	"testing"
)

func overlapArea(a, b Placement, charW, charH float64, textA, textB string) bool {
	wa := charW * float64(len(textA))
	wb := charW * float64(len(textB))
	ba := box{a.X, a.Y, a.X + wa, a.Y + charH}
	bb := box{b.X, b.Y, b.X + wb, b.Y + charH}
	return ba.intersects(bb)
}

func TestPlaceLabels_SeparatedPointsDoNotOverlap(t *testing.T) {
	points := []LabelPoint{
		{Text: "alpha", X: 0, Y: 0},
		{Text: "beta", X: 1, Y: 0},
		{Text: "gamma", X: 0, Y: 1},
		{Text: "delta", X: 1, Y: 1},
	}
	charW, charH, gap := 0.02, 0.04, 0.02

	placements := PlaceLabels(points, charW, charH, gap)
	if len(placements) != len(points) {
		t.Fatalf("expected %d placements, got %d", len(points), len(placements))
	}
	for i := range placements {
		for j := i + 1; j < len(placements); j++ {
			if overlapArea(placements[i], placements[j], charW, charH, placements[i].Text, placements[j].Text) {
				t.Errorf("labels %q and %q overlap", placements[i].Text, placements[j].Text)
			}
		}
	}
}

func TestPlaceLabels_CrowdedClusterSpreadsOut(t *testing.T) {
	// Four points at nearly the same location: default east placement
	// would stack all labels on top of each other.
	points := []LabelPoint{
		{Text: "aa", X: 0.50, Y: 0.50},
		{Text: "bb", X: 0.51, Y: 0.50},
		{Text: "cc", X: 0.50, Y: 0.51},
		{Text: "dd", X: 0.51, Y: 0.51},
	}
	charW, charH, gap := 0.01, 0.03, 0.01

	placements := PlaceLabels(points, charW, charH, gap)

	overlaps := 0
	for i := range placements {
		for j := i + 1; j < len(placements); j++ {
			if overlapArea(placements[i], placements[j], charW, charH, placements[i].Text, placements[j].Text) {
				overlaps++
			}
		}
	}
	if overlaps > 0 {
		t.Errorf("crowded cluster still has %d overlapping label pairs", overlaps)
	}
}

func TestPlaceLabels_Deterministic(t *testing.T) {
	points := []LabelPoint{
		{Text: "one", X: 0.1, Y: 0.9},
		{Text: "two", X: 0.12, Y: 0.88},
		{Text: "three", X: 0.11, Y: 0.91},
		{Text: "four", X: 0.7, Y: 0.2},
	}
	first := PlaceLabels(points, 0.015, 0.03, 0.01)
	second := PlaceLabels(points, 0.015, 0.03, 0.01)
	if !reflect.DeepEqual(first, second) {
		t.Error("placement must be deterministic for identical input")
	}
}

func TestPlaceLabels_ResultOrderMatchesInput(t *testing.T) {
	points := []LabelPoint{
		{Text: "far", X: 10, Y: 10},
		{Text: "near", X: 0.1, Y: 0.1},
	}
	placements := PlaceLabels(points, 0.02, 0.04, 0.02)
	if placements[0].Text != "far" || placements[1].Text != "near" {
		t.Errorf("placements must align with input order, got %v", placements)
	}
}

func TestPlaceLabels_EmptyInput(t *testing.T) {
	if got := PlaceLabels(nil, 0.02, 0.04, 0.02); len(got) != 0 {
		t.Errorf("expected no placements, got %v", got)
	}
}
