package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestANOVA_SeparatingFeatureIsSignificant(t *testing.T) {
	// 12 rows, 4 groups of 3. Column 0 separates the groups strongly;
	// column 1 is identical noise across groups.
	data := [][]float64{
		{0.1, 5.0}, {0.2, 4.9}, {-0.1, 5.1},
		{10.2, 5.0}, {9.8, 5.2}, {10.1, 4.8},
		{20.1, 5.1}, {19.9, 4.9}, {20.2, 5.0},
		{30.0, 4.8}, {29.8, 5.2}, {30.3, 5.1},
	}
	labels := []int{0, 0, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3}

	results, err := ANOVA(data, labels)
	require.NoError(t, err)
	require.Len(t, results, 2)

	sep := results[0]
	assert.Equal(t, 3, sep.DFBetween)
	assert.Equal(t, 8, sep.DFWithin)
	assert.Greater(t, sep.FStatistic, 100.0)
	assert.Less(t, sep.PValue, 0.01)

	noise := results[1]
	assert.Greater(t, noise.PValue, 0.05)
}

func TestANOVA_SumOfSquaresDecomposition(t *testing.T) {
	data := [][]float64{
		{1.0}, {2.0}, {3.0},
		{7.0}, {8.0}, {9.0},
	}
	labels := []int{0, 0, 0, 1, 1, 1}

	results, err := ANOVA(data, labels)
	require.NoError(t, err)
	r := results[0]

	// Grand mean 5; group means 2 and 8. SSB = 3*9 + 3*9 = 54.
	// SSW = (1+0+1) + (1+0+1) = 4.
	assert.InDelta(t, 54.0, r.SSBetween, 1e-12)
	assert.InDelta(t, 4.0, r.SSWithin, 1e-12)
	assert.Equal(t, 1, r.DFBetween)
	assert.Equal(t, 4, r.DFWithin)
	// F = 54/1 / (4/4) = 54.
	assert.InDelta(t, 54.0, r.FStatistic, 1e-12)
	assert.Less(t, r.PValue, 0.01)
}

func TestANOVA_PerfectSeparationZeroWithinVariance(t *testing.T) {
	data := [][]float64{{1}, {1}, {5}, {5}}
	labels := []int{0, 0, 1, 1}

	results, err := ANOVA(data, labels)
	require.NoError(t, err)
	assert.True(t, results[0].FStatistic > 1e308 || results[0].PValue == 0)
	assert.Equal(t, 0.0, results[0].PValue)
}

func TestANOVA_InputValidation(t *testing.T) {
	_, err := ANOVA(nil, nil)
	require.Error(t, err)

	_, err = ANOVA([][]float64{{1}, {2}}, []int{0, 0})
	require.Error(t, err)

	// n must exceed k.
	_, err = ANOVA([][]float64{{1}, {2}}, []int{0, 1})
	require.Error(t, err)

	_, err = ANOVA([][]float64{{1}, {2}, {3}}, []int{0, 1})
	require.Error(t, err)
}
