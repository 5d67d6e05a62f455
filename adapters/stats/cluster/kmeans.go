package cluster

import (
	"context"
	"math"
	"math/rand"

	"statlab/adapters/stats/pca"
	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultRestarts = 5
	defaultMaxK     = 8
	maxIterations   = 300
	maxPlotPoints   = 2000

	// silhouetteSampleCap bounds the O(n^2) silhouette computation.
	silhouetteSampleCap = 1000
)

// Analyzer performs k-means clustering on standardized numeric columns
// with k-means++ seeding and multiple restarts.
type Analyzer struct{}

// New creates a k-means analyzer
func New() *Analyzer {
	return &Analyzer{}
}

// Kind identifies this analyzer
func (a *Analyzer) Kind() analysis.Kind {
	return analysis.KindKMeans
}

// Validate checks column selection and k
func (a *Analyzer) Validate(tbl *dataset.Table, params analysis.Params) error {
	if _, err := pca.SelectColumns(tbl, params.Columns, 2); err != nil {
		return err
	}
	if params.K < 0 {
		return core.NewParamsError("k", "must be >= 0 (0 selects k automatically)")
	}
	if params.K == 1 {
		return core.NewParamsError("k", "clustering into a single group is meaningless")
	}
	return nil
}

// Run computes the clustering summary
func (a *Analyzer) Run(ctx context.Context, tbl *dataset.Table, params analysis.Params) (any, error) {
	if err := a.Validate(tbl, params); err != nil {
		return nil, err
	}
	names, err := pca.SelectColumns(tbl, params.Columns, 2)
	if err != nil {
		return nil, err
	}
	rows, _, err := tbl.CompleteRows(names)
	if err != nil {
		return nil, err
	}
	n := len(rows)

	maxK := params.MaxK
	if maxK == 0 {
		maxK = defaultMaxK
	}
	if maxK > n-1 {
		maxK = n - 1
	}
	k := params.K
	if k == 0 && maxK < 2 {
		return nil, core.NewInsufficientDataError(3, n)
	}
	if k > 0 && n < k+1 {
		return nil, core.NewInsufficientDataError(k+1, n)
	}

	restarts := params.Restarts
	if restarts == 0 {
		restarts = defaultRestarts
	}
	seed := params.Seed
	if seed == 0 {
		seed = 1
	}

	// Standardize so no column dominates the distance metric, but keep
	// the raw rows for reporting centroids in original units.
	xDense, err := pca.Standardize(rows, len(names))
	if err != nil {
		return nil, err
	}
	x := denseRows(xDense)

	rng := rand.New(rand.NewSource(seed))

	var elbow []analysis.ElbowPoint
	autoSelected := false
	if k == 0 {
		k, elbow = selectK(x, maxK, restarts, rng)
		autoSelected = true
	}

	assignments, _, wss := bestOfRestarts(x, k, restarts, rng)

	sizes := make([]int, k)
	for _, c := range assignments {
		sizes[c]++
	}

	// Report centroids in original units.
	rawCentroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		rawCentroids[c] = make([]float64, len(names))
	}
	for i, c := range assignments {
		for j := range names {
			rawCentroids[c][j] += rows[i][j]
		}
	}
	for c := 0; c < k; c++ {
		if sizes[c] == 0 {
			continue
		}
		for j := range names {
			rawCentroids[c][j] /= float64(sizes[c])
		}
	}

	summary := &analysis.KMeansSummary{
		Variables:    names,
		K:            k,
		AutoSelected: autoSelected,
		WSS:          wss,
		Silhouette:   meanSilhouette(x, assignments, k, rng),
		ClusterSizes: sizes,
		Centroids:    rawCentroids,
		Elbow:        elbow,
		Points:       projectionPoints(xDense, assignments),
		RowsUsed:     n,
	}
	return summary, nil
}

// denseRows converts a mat.Dense to row slices.
func denseRows(x *mat.Dense) [][]float64 {
	n, p := x.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, p)
		for j := 0; j < p; j++ {
			rows[i][j] = x.At(i, j)
		}
	}
	return rows
}

// selectK picks k at the elbow of the WSS curve. Improvement relative to
// the previous k alone is scale-blind: once the real clusters are split,
// subdividing a single tight cluster still shaves a similar fraction off
// an already tiny WSS, so that rule never locks. The curve starts at k=1
// (WSS about the grand mean) and the chosen k is the point of largest
// curvature, the biggest second difference.
func selectK(x [][]float64, maxK, restarts int, rng *rand.Rand) (int, []analysis.ElbowPoint) {
	wss := []float64{totalWSS(x)}
	elbow := []analysis.ElbowPoint{{K: 1, WSS: wss[0]}}
	for k := 2; k <= maxK; k++ {
		_, _, w := bestOfRestarts(x, k, restarts, rng)
		wss = append(wss, w)
		elbow = append(elbow, analysis.ElbowPoint{K: k, WSS: w})
	}

	chosen := 2
	best := math.Inf(-1)
	for i := 1; i < len(wss)-1; i++ {
		curvature := wss[i-1] - 2*wss[i] + wss[i+1]
		if curvature > best {
			best = curvature
			chosen = i + 1
		}
	}
	return chosen, elbow
}

// totalWSS is the WSS of the single-cluster solution, the curve's anchor.
func totalWSS(x [][]float64) float64 {
	p := len(x[0])
	mean := make([]float64, p)
	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(x))
	}
	wss := 0.0
	for _, row := range x {
		for j, v := range row {
			d := v - mean[j]
			wss += d * d
		}
	}
	return wss
}

// bestOfRestarts runs k-means `restarts` times and keeps the lowest-WSS run.
func bestOfRestarts(x [][]float64, k, restarts int, rng *rand.Rand) (assignments []int, centroids [][]float64, wss float64) {
	wss = math.Inf(1)
	for r := 0; r < restarts; r++ {
		a, c, w := kmeansOnce(x, k, rng)
		if w < wss {
			assignments, centroids, wss = a, c, w
		}
	}
	return assignments, centroids, wss
}

// kmeansOnce runs a single Lloyd iteration loop with k-means++ seeding.
func kmeansOnce(x [][]float64, k int, rng *rand.Rand) ([]int, [][]float64, float64) {
	centroids := seedPlusPlus(x, k, rng)
	assignments := make([]int, len(x))

	for iter := 0; iter < maxIterations; iter++ {
		changed := 0
		for i, row := range x {
			best := nearestCentroid(row, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed++
			}
		}
		if iter > 0 && changed == 0 {
			break
		}

		// Recompute centroids; an emptied cluster keeps its position.
		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, len(x[0]))
		}
		for i, row := range x {
			c := assignments[i]
			counts[c]++
			for j, v := range row {
				next[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				copy(next[c], centroids[c])
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		centroids = next
	}

	wss := 0.0
	for i, row := range x {
		wss += squaredDistance(row, centroids[assignments[i]])
	}
	return assignments, centroids, wss
}

// seedPlusPlus chooses initial centroids with k-means++ weighting.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := x[rng.Intn(len(x))]
	centroids = append(centroids, append([]float64(nil), first...))

	dist := make([]float64, len(x))
	for len(centroids) < k {
		total := 0.0
		for i, row := range x {
			d := math.Inf(1)
			for _, c := range centroids {
				if sd := squaredDistance(row, c); sd < d {
					d = sd
				}
			}
			dist[i] = d
			total += d
		}
		if total == 0 {
			// All remaining points coincide with existing centroids.
			centroids = append(centroids, append([]float64(nil), x[rng.Intn(len(x))]...))
			continue
		}
		target := rng.Float64() * total
		acc := 0.0
		pick := len(x) - 1
		for i, d := range dist {
			acc += d
			if acc >= target {
				pick = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), x[pick]...))
	}
	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// meanSilhouette computes the mean silhouette coefficient, subsampling
// large inputs to keep the pairwise pass bounded.
func meanSilhouette(x [][]float64, assignments []int, k int, rng *rand.Rand) float64 {
	if k < 2 {
		return 0
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	if len(idx) > silhouetteSampleCap {
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		idx = idx[:silhouetteSampleCap]
	}

	total, counted := 0.0, 0
	for _, i := range idx {
		sameSum, sameCount := 0.0, 0
		otherSum := make([]float64, k)
		otherCount := make([]int, k)
		for _, j := range idx {
			if i == j {
				continue
			}
			d := math.Sqrt(squaredDistance(x[i], x[j]))
			if assignments[j] == assignments[i] {
				sameSum += d
				sameCount++
			} else {
				otherSum[assignments[j]] += d
				otherCount[assignments[j]]++
			}
		}
		if sameCount == 0 {
			continue
		}
		a := sameSum / float64(sameCount)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == assignments[i] || otherCount[c] == 0 {
				continue
			}
			if avg := otherSum[c] / float64(otherCount[c]); avg < b {
				b = avg
			}
		}
		if math.IsInf(b, 1) {
			continue
		}
		den := math.Max(a, b)
		if den > 0 {
			total += (b - a) / den
			counted++
		}
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// projectionPoints projects the standardized rows onto their first two
// principal components for the cluster scatter chart.
func projectionPoints(x *mat.Dense, assignments []int) []analysis.ClusterPoint {
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil
	}
	var vec mat.Dense
	pc.VectorsTo(&vec)
	scores := pca.ProjectScores(x, &vec, maxPlotPoints)

	points := make([]analysis.ClusterPoint, len(scores))
	for i, s := range scores {
		points[i] = analysis.ClusterPoint{X: s[0], Y: s[1], Cluster: assignments[i]}
	}
	return points
}
