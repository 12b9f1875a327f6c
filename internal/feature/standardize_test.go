package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/provision-cli/internal/authority"
)

func TestStandardize_ZeroMeanUnitVariance(t *testing.T) {
	// 6 columns, deliberately different scales per column.
	matrix := [][]float64{
		{5.1, 18.2, 95, 1.9, 410, 11.2},
		{6.3, 16.9, 110, 2.4, 520, 13.8},
		{4.8, 22.5, 87, 1.7, 390, 10.1},
		{5.9, 19.4, 130, 2.8, 610, 15.5},
		{6.8, 15.2, 101, 2.1, 455, 12.0},
	}

	stats, err := Standardize(matrix)
	require.NoError(t, err)
	require.Len(t, stats, 6)

	for j := 0; j < 6; j++ {
		var mean float64
		for i := range matrix {
			mean += matrix[i][j]
		}
		mean /= float64(len(matrix))

		var ss float64
		for i := range matrix {
			d := matrix[i][j] - mean
			ss += d * d
		}
		popStd := math.Sqrt(ss / float64(len(matrix)))

		assert.InDelta(t, 0, mean, 1e-12, "column %d mean", j)
		assert.InDelta(t, 1, popStd, 1e-12, "column %d population std", j)
		assert.Positive(t, stats[j].StdDev)
	}
}

func TestStandardize_PopulationNotSampleStd(t *testing.T) {
	matrix := [][]float64{
		{2, 0, 0, 0, 0, 0},
		{4, 1, 1, 1, 1, 1},
		{6, 2, 2, 2, 2, 2},
		{8, 3, 3, 3, 3, 3},
	}
	stats, err := Standardize(matrix)
	require.NoError(t, err)

	// Column 0 values 2,4,6,8: population std is sqrt(5), not the sample
	// std sqrt(20/3).
	assert.InDelta(t, math.Sqrt(5), stats[0].StdDev, 1e-12)
	assert.InDelta(t, 5.0, stats[0].Mean, 1e-12)
}

func TestStandardize_RejectsConstantColumn(t *testing.T) {
	matrix := [][]float64{
		{1, 7, 1, 1, 1, 1},
		{2, 7, 2, 2, 2, 2},
	}
	_, err := Standardize(matrix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), authority.FeatureNames[1])
}

func TestStandardize_TooFewRows(t *testing.T) {
	_, err := Standardize([][]float64{{1, 2, 3, 4, 5, 6}})
	require.Error(t, err)
}

func TestVectors(t *testing.T) {
	records := []authority.Record{
		{Code: "E06000001", Name: "Hartlepool"},
		{Code: "E06000002", Name: "Middlesbrough"},
	}
	matrix := [][]float64{
		{0.1, -0.2, 0.3, -0.4, 0.5, -0.6},
		{-0.1, 0.2, -0.3, 0.4, -0.5, 0.6},
	}

	vecs, err := Vectors(records, matrix)
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, "Hartlepool", vecs[0].Name)
	assert.Equal(t, matrix[1][5], vecs[1].Values[5])

	_, err = Vectors(records, matrix[:1])
	require.Error(t, err)
}
