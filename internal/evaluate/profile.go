package evaluate

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/careatlas/provision-cli/internal/authority"
)

// FeatureSummary is the descriptive-statistics row for one feature within
// one cluster: the usual count/mean/std/min/quartiles/max breakdown.
type FeatureSummary struct {
	Feature string  `json:"feature"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Q1      float64 `json:"q1"`
	Median  float64 `json:"median"`
	Q3      float64 `json:"q3"`
	Max     float64 `json:"max"`
}

// ClusterProfile characterizes one cluster.
type ClusterProfile struct {
	Label    int              `json:"label"`
	Size     int              `json:"size"`
	Features []FeatureSummary `json:"features"`
}

// Sizes returns the per-label row counts. Used to flag degenerate
// clusterings where nearly everything lands in one cluster.
func Sizes(labels []int) ([]int, error) {
	k := 0
	for _, l := range labels {
		if l < 0 {
			return nil, eris.Errorf("evaluate: negative label %d", l)
		}
		if l+1 > k {
			k = l + 1
		}
	}
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	return sizes, nil
}

// Profiles computes descriptive statistics of every feature restricted to
// each cluster's rows.
func Profiles(data [][]float64, labels []int) ([]ClusterProfile, error) {
	if len(data) != len(labels) {
		return nil, eris.Errorf("evaluate: %d rows but %d labels", len(data), len(labels))
	}
	sizes, err := Sizes(labels)
	if err != nil {
		return nil, err
	}

	cols := 0
	if len(data) > 0 {
		cols = len(data[0])
	}

	profiles := make([]ClusterProfile, len(sizes))
	for label := range sizes {
		p := ClusterProfile{Label: label, Size: sizes[label], Features: make([]FeatureSummary, cols)}
		for j := 0; j < cols; j++ {
			var vals []float64
			for i := range data {
				if labels[i] == label {
					vals = append(vals, data[i][j])
				}
			}
			s := summarize(vals)
			if j < len(authority.FeatureNames) {
				s.Feature = authority.FeatureNames[j]
			}
			p.Features[j] = s
		}
		profiles[label] = p
	}
	return profiles, nil
}

// summarize computes a pandas-describe style summary of one value slice.
func summarize(vals []float64) FeatureSummary {
	s := FeatureSummary{Count: len(vals)}
	if len(vals) == 0 {
		return s
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q3 = quantile(sorted, 0.75)
	return s
}

// quantile interpolates linearly between order statistics at
// h = (n-1)p, the convention descriptive-statistics tables use.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
