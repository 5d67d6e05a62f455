package correspondence

import (
	"math"
	"sort"
)

// LabelPoint is a point that needs a text label on the biplot.
type LabelPoint struct {
	Text string
	X, Y float64
}

// Placement is the chosen text anchor for one label, in data coordinates.
// X, Y locate the lower-left corner of the label's bounding box.
type Placement struct {
	Text string
	X, Y float64
}

type box struct {
	xmin, ymin, xmax, ymax float64
}

func (b box) intersects(o box) bool {
	return b.xmin < o.xmax && o.xmin < b.xmax && b.ymin < o.ymax && o.ymin < b.ymax
}

// PlaceLabels assigns an anchor position to every label so that label
// boxes avoid each other and the point markers. charWidth and charHeight
// are the approximate glyph dimensions in data coordinates; gap is the
// clearance between a point and its label.
//
// The heuristic is greedy and deterministic: points are processed in
// descending distance from the origin (ties broken by text), and for each
// one the eight compass offsets are tried in a fixed order. The first
// collision-free offset wins; if every offset collides, the one with the
// fewest collisions is used.
func PlaceLabels(points []LabelPoint, charWidth, charHeight, gap float64) []Placement {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da := math.Hypot(points[order[a]].X, points[order[a]].Y)
		db := math.Hypot(points[order[b]].X, points[order[b]].Y)
		if da != db {
			return da > db
		}
		return points[order[a]].Text < points[order[b]].Text
	})

	// Markers occupy a small exclusion box so labels never sit on a point.
	markerBoxes := make([]box, len(points))
	for i, p := range points {
		half := gap / 2
		markerBoxes[i] = box{p.X - half, p.Y - half, p.X + half, p.Y + half}
	}

	placed := make([]box, 0, len(points))
	result := make([]Placement, len(points))

	for _, idx := range order {
		p := points[idx]
		w := charWidth * float64(len([]rune(p.Text)))
		h := charHeight

		candidates := [8][2]float64{
			{gap, -h / 2},        // east
			{-w - gap, -h / 2},   // west
			{-w / 2, gap},        // north
			{-w / 2, -h - gap},   // south
			{gap, gap},           // north-east
			{-w - gap, gap},      // north-west
			{gap, -h - gap},      // south-east
			{-w - gap, -h - gap}, // south-west
		}

		bestBox := box{}
		bestCollisions := math.MaxInt32
		for _, c := range candidates {
			b := box{p.X + c[0], p.Y + c[1], p.X + c[0] + w, p.Y + c[1] + h}
			collisions := countCollisions(b, placed, markerBoxes, idx)
			if collisions == 0 {
				bestBox = b
				bestCollisions = 0
				break
			}
			if collisions < bestCollisions {
				bestBox = b
				bestCollisions = collisions
			}
		}

		placed = append(placed, bestBox)
		result[idx] = Placement{Text: p.Text, X: bestBox.xmin, Y: bestBox.ymin}
	}
	return result
}

// countCollisions counts overlaps of b with already-placed label boxes and
// with every marker box except the label's own point.
func countCollisions(b box, placed []box, markers []box, self int) int {
	n := 0
	for _, o := range placed {
		if b.intersects(o) {
			n++
		}
	}
	for i, m := range markers {
		if i == self {
			continue
		}
		if b.intersects(m) {
			n++
		}
	}
	return n
}
