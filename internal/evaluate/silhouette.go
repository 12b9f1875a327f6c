// Package evaluate validates and characterizes a clustering: silhouette
// separation, per-feature one-way ANOVA, cluster sizes, and per-cluster
// descriptive statistics.
package evaluate

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

// Silhouette returns the mean silhouette coefficient over all points:
// (b-a)/max(a,b) where a is the mean intra-cluster distance and b the mean
// distance to the nearest other cluster. The score lies in [-1, 1]; it is
// undefined for a single cluster or for singleton-only clusterings, so
// the cluster count must satisfy 2 <= k < n. These are modelling mistakes,
// not recoverable conditions, and fail loudly.
func Silhouette(data [][]float64, labels []int) (float64, error) {
	n := len(data)
	if n != len(labels) {
		return 0, eris.Errorf("evaluate: %d rows but %d labels", n, len(labels))
	}
	if n == 0 {
		return 0, eris.New("evaluate: empty data")
	}

	k := 0
	for _, l := range labels {
		if l < 0 {
			return 0, eris.Errorf("evaluate: negative label %d", l)
		}
		if l+1 > k {
			k = l + 1
		}
	}
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	for l, s := range sizes {
		if s == 0 {
			return 0, eris.Errorf("evaluate: label %d is unused", l)
		}
	}
	if k < 2 {
		return 0, eris.New("evaluate: silhouette requires at least 2 clusters")
	}
	if k >= n {
		return 0, eris.Errorf("evaluate: silhouette undefined for k=%d with n=%d", k, n)
	}

	var total float64
	for i, row := range data {
		// Mean distance from point i to every cluster.
		sums := make([]float64, k)
		for j, other := range data {
			if j == i {
				continue
			}
			sums[labels[j]] += floats.Distance(row, other, 2)
		}

		own := labels[i]
		var a float64
		if sizes[own] > 1 {
			a = sums[own] / float64(sizes[own]-1)
		}

		b := -1.0
		for l := 0; l < k; l++ {
			if l == own {
				continue
			}
			mean := sums[l] / float64(sizes[l])
			if b < 0 || mean < b {
				b = mean
			}
		}

		if sizes[own] == 1 {
			// Convention for singletons: s(i) = 0.
			continue
		}
		denom := a
		if b > denom {
			denom = b
		}
		if denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n), nil
}
