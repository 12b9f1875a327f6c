package cluster

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeBlobs generates perClust points around each of the given centers
// with uniform noise of the given radius.
func makeBlobs(centers [][]float64, perClust int, radius float64, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	var data [][]float64
	var truth []int
	for c, center := range centers {
		for i := 0; i < perClust; i++ {
			row := make([]float64, len(center))
			for d := range center {
				row[d] = center[d] + (rng.Float64()*2-1)*radius
			}
			data = append(data, row)
			truth = append(truth, c)
		}
	}
	return data, truth
}

// sixDCenters returns four well-separated centers in 6-D.
func sixDCenters() [][]float64 {
	return [][]float64{
		{10, 0, 0, 0, 0, 0},
		{0, 10, 0, 0, 10, 0},
		{0, 0, 10, 0, 0, 10},
		{-10, -10, 0, 10, 0, 0},
	}
}

func TestKMeans_FitBasic(t *testing.T) {
	data, _ := makeBlobs(sixDCenters(), 10, 0.5, 1)
	km := &KMeans{}

	res, err := km.Fit(data, 4, 42)
	require.NoError(t, err)

	assert.Len(t, res.Labels, len(data))
	assert.Len(t, res.Centroids, 4)
	assert.Len(t, res.Distances, len(data))
	assert.Positive(t, res.Iterations)
	assert.GreaterOrEqual(t, res.Inertia, 0.0)
	for _, d := range res.Distances {
		assert.GreaterOrEqual(t, d, 0.0)
	}

	// All k labels used when the data has at least k distinct points.
	used := map[int]bool{}
	for _, l := range res.Labels {
		require.GreaterOrEqual(t, l, 0)
		require.Less(t, l, 4)
		used[l] = true
	}
	assert.Len(t, used, 4)
}

func TestKMeans_DeterministicForFixedSeed(t *testing.T) {
	data, _ := makeBlobs(sixDCenters(), 8, 1.0, 7)
	km := &KMeans{}

	a, err := km.Fit(data, 4, 99)
	require.NoError(t, err)
	b, err := km.Fit(data, 4, 99)
	require.NoError(t, err)

	assert.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, a.Centroids, b.Centroids)
	assert.Equal(t, a.Inertia, b.Inertia)
}

func TestKMeans_RecoversSeparatedBlobs(t *testing.T) {
	// 12 rows in 4 groups of 3 with small noise; k=4 must recover the
	// grouping up to a relabelling of cluster ids.
	data, truth := makeBlobs(sixDCenters(), 3, 0.1, 3)
	km := &KMeans{}

	res, _, err := BestOf(context.Background(), km, data, 4, 10, 1)
	require.NoError(t, err)

	// Every ground-truth group must map to exactly one fitted label.
	groupToLabel := map[int]int{}
	labelSeen := map[int]int{}
	for i, g := range truth {
		l := res.Labels[i]
		if prev, ok := groupToLabel[g]; ok {
			assert.Equal(t, prev, l, "group %d split across labels", g)
		} else {
			groupToLabel[g] = l
			labelSeen[l]++
		}
	}
	assert.Len(t, labelSeen, 4, "labels merged across groups")
}

func TestKMeans_CentroidIsMeanOfMembers(t *testing.T) {
	data, _ := makeBlobs(sixDCenters(), 6, 0.3, 11)
	km := &KMeans{}

	res, err := km.Fit(data, 4, 5)
	require.NoError(t, err)

	for label, centroid := range res.Centroids {
		count := 0
		mean := make([]float64, len(centroid))
		for i, l := range res.Labels {
			if l != label {
				continue
			}
			count++
			for d := range mean {
				mean[d] += data[i][d]
			}
		}
		require.Positive(t, count)
		for d := range mean {
			assert.InDelta(t, mean[d]/float64(count), centroid[d], 1e-9)
		}
	}
}

func TestKMeans_InvalidInputs(t *testing.T) {
	km := &KMeans{}

	_, err := km.Fit(nil, 2, 1)
	require.Error(t, err)

	_, err = km.Fit([][]float64{{1, 2}}, 0, 1)
	require.Error(t, err)

	_, err = km.Fit([][]float64{{1, 2}, {3, 4}}, 3, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds row count")

	_, err = km.Fit([][]float64{{1, 2}, {3}}, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ragged")
}

func TestKMeans_KEqualsOne(t *testing.T) {
	data, _ := makeBlobs(sixDCenters(), 5, 0.5, 2)
	km := &KMeans{}

	res, err := km.Fit(data, 1, 1)
	require.NoError(t, err)
	for _, l := range res.Labels {
		assert.Equal(t, 0, l)
	}
}

func TestKMeans_DuplicatePoints(t *testing.T) {
	// More clusters than distinct points still terminates via the
	// degenerate-seeding path; every label stays in range.
	data := [][]float64{
		{1, 1}, {1, 1}, {1, 1},
		{5, 5}, {5, 5},
	}
	km := &KMeans{}

	res, err := km.Fit(data, 3, 4)
	require.NoError(t, err)
	for _, l := range res.Labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, 3)
	}
}

func TestBestOf_KeepsMinimumInertia(t *testing.T) {
	data, _ := makeBlobs(sixDCenters(), 10, 1.5, 21)
	km := &KMeans{}

	best, seed, err := BestOf(context.Background(), km, data, 4, 10, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, seed, int64(100))
	require.Less(t, seed, int64(110))

	for s := int64(100); s < 110; s++ {
		res, err := km.Fit(data, 4, s)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Inertia, best.Inertia)
	}
}

func TestBestOf_InvalidNInit(t *testing.T) {
	km := &KMeans{}
	_, _, err := BestOf(context.Background(), km, [][]float64{{1}, {2}}, 2, 0, 1)
	require.Error(t, err)
}
