// Package cluster implements K-means clustering over the standardized
// feature matrix: Lloyd's algorithm with k-means++ seeding, a best-of-N
// restart search, and the elbow-sweep used for choosing k.
package cluster

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

// Result holds one converged K-means fit.
type Result struct {
	Labels     []int       // per-row cluster label, 0..k-1
	Centroids  [][]float64 // k x dims
	Distances  []float64   // per-row Euclidean distance to assigned centroid
	Inertia    float64     // sum of squared point-to-centroid distances
	Iterations int         // Lloyd iterations until convergence
}

// Clusterer fits cluster assignments to a data matrix. Implementations
// must be deterministic for a fixed seed so evaluation runs are
// reproducible.
type Clusterer interface {
	Fit(data [][]float64, k int, seed int64) (*Result, error)
}

// KMeans is the default Clusterer: Lloyd's algorithm seeded with
// k-means++.
type KMeans struct {
	// MaxIterations caps the assignment/update loop. Zero means the
	// DefaultMaxIterations.
	MaxIterations int
}

// DefaultMaxIterations matches the usual library cap for Lloyd's loop.
const DefaultMaxIterations = 300

// Fit runs Lloyd's algorithm on data with k clusters. Degenerate inputs
// (k < 1, k > rows, ragged or empty matrix) are rejected; an empty cluster
// mid-iteration is repaired by reseeding its centroid to the point
// farthest from its current centroid.
func (km *KMeans) Fit(data [][]float64, k int, seed int64) (*Result, error) {
	n := len(data)
	if n == 0 {
		return nil, eris.New("cluster: empty data matrix")
	}
	dims := len(data[0])
	if dims == 0 {
		return nil, eris.New("cluster: zero-width data matrix")
	}
	for i, row := range data {
		if len(row) != dims {
			return nil, eris.Errorf("cluster: ragged matrix: row %d has %d columns, want %d", i, len(row), dims)
		}
	}
	if k < 1 {
		return nil, eris.Errorf("cluster: k must be >= 1, got %d", k)
	}
	if k > n {
		return nil, eris.Errorf("cluster: k=%d exceeds row count %d", k, n)
	}

	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedPlusPlus(data, k, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	var iterations int
	for iterations = 1; iterations <= maxIter; iterations++ {
		changed := assign(data, centroids, labels)

		counts := make([]int, k)
		for j := range centroids {
			for d := range centroids[j] {
				centroids[j][d] = 0
			}
		}
		for i, row := range data {
			l := labels[i]
			counts[l]++
			floats.Add(centroids[l], row)
		}
		var empty []int
		for j := range centroids {
			if counts[j] == 0 {
				empty = append(empty, j)
				continue
			}
			floats.Scale(1/float64(counts[j]), centroids[j])
		}
		// Empty clusters are reseeded from the point farthest from its
		// assigned centroid, after all populated centroids are updated.
		for _, j := range empty {
			centroids[j] = reseedEmpty(data, centroids, labels)
			changed = true
		}

		if !changed {
			break
		}
	}
	if iterations > maxIter {
		iterations = maxIter
	}

	distances := make([]float64, n)
	var inertia float64
	for i, row := range data {
		d := floats.Distance(row, centroids[labels[i]], 2)
		distances[i] = d
		inertia += d * d
	}

	return &Result{
		Labels:     labels,
		Centroids:  centroids,
		Distances:  distances,
		Inertia:    inertia,
		Iterations: iterations,
	}, nil
}

// assign sets each row's label to its nearest centroid. Returns whether
// any label changed.
func assign(data, centroids [][]float64, labels []int) bool {
	changed := false
	for i, row := range data {
		best := -1
		bestDist := math.Inf(1)
		for j, c := range centroids {
			d := floats.Distance(row, c, 2)
			if d < bestDist {
				bestDist = d
				best = j
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// seedPlusPlus picks k initial centroids with the k-means++ scheme: the
// first uniformly, each subsequent one with probability proportional to
// squared distance from the nearest already-chosen centroid.
func seedPlusPlus(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(data)
	dims := len(data[0])

	centroids := make([][]float64, 0, k)
	first := make([]float64, dims)
	copy(first, data[rng.Intn(n)])
	centroids = append(centroids, first)

	d2 := make([]float64, n)
	for len(centroids) < k {
		var total float64
		for i, row := range data {
			nearest := math.Inf(1)
			for _, c := range centroids {
				d := floats.Distance(row, c, 2)
				if d < nearest {
					nearest = d
				}
			}
			d2[i] = nearest * nearest
			total += d2[i]
		}

		var idx int
		if total == 0 {
			// All remaining points coincide with existing centroids.
			idx = rng.Intn(n)
		} else {
			target := rng.Float64() * total
			var cum float64
			for i, w := range d2 {
				cum += w
				if cum >= target {
					idx = i
					break
				}
			}
		}

		next := make([]float64, dims)
		copy(next, data[idx])
		centroids = append(centroids, next)
	}
	return centroids
}

// reseedEmpty returns a copy of the point with the greatest distance to
// its currently assigned centroid.
func reseedEmpty(data, centroids [][]float64, labels []int) []float64 {
	worst := 0
	worstDist := -1.0
	for i, row := range data {
		d := floats.Distance(row, centroids[labels[i]], 2)
		if d > worstDist {
			worstDist = d
			worst = i
		}
	}
	c := make([]float64, len(data[worst]))
	copy(c, data[worst])
	return c
}
