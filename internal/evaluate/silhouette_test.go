package evaluate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobs(centers [][]float64, perClust int, radius float64, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	var data [][]float64
	var labels []int
	for c, center := range centers {
		for i := 0; i < perClust; i++ {
			row := make([]float64, len(center))
			for d := range center {
				row[d] = center[d] + (rng.Float64()*2-1)*radius
			}
			data = append(data, row)
			labels = append(labels, c)
		}
	}
	return data, labels
}

func separatedCenters() [][]float64 {
	return [][]float64{
		{12, 0, 0, 0, 0, 0},
		{0, 12, 0, 0, 12, 0},
		{0, 0, 12, 0, 0, 12},
		{-12, -12, 0, 12, 0, 0},
	}
}

func TestSilhouette_WellSeparatedBlobs(t *testing.T) {
	data, labels := blobs(separatedCenters(), 8, 0.5, 1)

	score, err := Silhouette(data, labels)
	require.NoError(t, err)
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestSilhouette_Bounds(t *testing.T) {
	// Deliberately shuffled labels: still within [-1, 1].
	data, labels := blobs(separatedCenters(), 6, 1.0, 5)
	rng := rand.New(rand.NewSource(9))
	for i := range labels {
		labels[i] = rng.Intn(4)
	}
	// Make sure every label is used.
	labels[0], labels[1], labels[2], labels[3] = 0, 1, 2, 3

	score, err := Silhouette(data, labels)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, -1.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestSilhouette_RejectsSingleCluster(t *testing.T) {
	data := [][]float64{{1, 1}, {2, 2}, {3, 3}}

	_, err := Silhouette(data, []int{0, 0, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 clusters")
}

func TestSilhouette_RejectsAllSingletons(t *testing.T) {
	data := [][]float64{{1, 1}, {2, 2}, {3, 3}}

	_, err := Silhouette(data, []int{0, 1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined")
}

func TestSilhouette_InputValidation(t *testing.T) {
	_, err := Silhouette(nil, nil)
	require.Error(t, err)

	_, err = Silhouette([][]float64{{1}}, []int{0, 1})
	require.Error(t, err)

	_, err = Silhouette([][]float64{{1}, {2}}, []int{0, -1})
	require.Error(t, err)

	// Gap in label sequence.
	_, err = Silhouette([][]float64{{1}, {2}, {3}}, []int{0, 2, 2})
	require.Error(t, err)
}
