package cluster

import (
	"context"

	"github.com/rotisserie/eris"
)

// Distortion is one point on the elbow curve.
type Distortion struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// Sweep fits k = kMin..kMax (inclusive), each as a BestOf(nInit) search,
// and returns the distortion sequence. The sweep does not pick k: the
// elbow is a judgement call on diminishing returns, so the caller renders
// the sequence and a human (or SuggestElbow as a hint) chooses.
func Sweep(ctx context.Context, c Clusterer, data [][]float64, kMin, kMax, nInit int, baseSeed int64) ([]Distortion, error) {
	if kMin < 1 {
		return nil, eris.Errorf("cluster: sweep kMin must be >= 1, got %d", kMin)
	}
	if kMax < kMin {
		return nil, eris.Errorf("cluster: sweep range [%d, %d] is empty", kMin, kMax)
	}
	if kMax > len(data) {
		return nil, eris.Errorf("cluster: sweep kMax=%d exceeds row count %d", kMax, len(data))
	}

	out := make([]Distortion, 0, kMax-kMin+1)
	for k := kMin; k <= kMax; k++ {
		res, _, err := BestOf(ctx, c, data, k, nInit, baseSeed)
		if err != nil {
			return nil, eris.Wrapf(err, "cluster: sweep k=%d", k)
		}
		out = append(out, Distortion{K: k, Inertia: res.Inertia})
	}
	return out, nil
}

// SuggestElbow returns the k with the maximum second difference of the
// distortion sequence, a common numeric stand-in for eyeballing the bend.
// It is a hint only; returns 0 when the sequence is too short to have a
// second difference.
func SuggestElbow(seq []Distortion) int {
	if len(seq) < 3 {
		return 0
	}
	bestK := 0
	bestCurve := 0.0
	for i := 1; i < len(seq)-1; i++ {
		curve := seq[i-1].Inertia - 2*seq[i].Inertia + seq[i+1].Inertia
		if curve > bestCurve {
			bestCurve = curve
			bestK = seq[i].K
		}
	}
	return bestK
}
