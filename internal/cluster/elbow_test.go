package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_DistortionNonIncreasing(t *testing.T) {
	data, _ := makeBlobs(sixDCenters(), 10, 1.0, 17)
	km := &KMeans{}

	seq, err := Sweep(context.Background(), km, data, 1, 8, 10, 42)
	require.NoError(t, err)
	require.Len(t, seq, 8)

	for i := 1; i < len(seq); i++ {
		assert.Equal(t, seq[i-1].K+1, seq[i].K)
		assert.LessOrEqual(t, seq[i].Inertia, seq[i-1].Inertia,
			"inertia rose from k=%d to k=%d", seq[i-1].K, seq[i].K)
	}
}

func TestSweep_InvalidRange(t *testing.T) {
	km := &KMeans{}
	data := [][]float64{{1}, {2}, {3}}

	_, err := Sweep(context.Background(), km, data, 0, 3, 1, 1)
	require.Error(t, err)

	_, err = Sweep(context.Background(), km, data, 3, 2, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	_, err = Sweep(context.Background(), km, data, 1, 4, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds row count")
}

func TestSuggestElbow_FindsBend(t *testing.T) {
	// Steep drop to k=3, then flat: the bend sits at the knee.
	seq := []Distortion{
		{K: 1, Inertia: 1000},
		{K: 2, Inertia: 400},
		{K: 3, Inertia: 90},
		{K: 4, Inertia: 80},
		{K: 5, Inertia: 72},
	}
	assert.Equal(t, 3, SuggestElbow(seq))
}

func TestSuggestElbow_TooShort(t *testing.T) {
	assert.Equal(t, 0, SuggestElbow(nil))
	assert.Equal(t, 0, SuggestElbow([]Distortion{{K: 1, Inertia: 10}, {K: 2, Inertia: 5}}))
}
