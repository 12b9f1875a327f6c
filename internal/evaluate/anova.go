package evaluate

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/careatlas/provision-cli/internal/authority"
)

var inf = math.Inf(1)

// ANOVAResult is the one-way ANOVA of a single feature against the
// cluster labels. A large F (small P) means the feature's cluster means
// differ by more than the within-cluster scatter explains, i.e. the
// feature meaningfully differentiates the clusters.
type ANOVAResult struct {
	Feature    string  `json:"feature"`
	FStatistic float64 `json:"f_statistic"`
	PValue     float64 `json:"p_value"`
	DFBetween  int     `json:"df_between"` // k - 1
	DFWithin   int     `json:"df_within"`  // n - k
	SSBetween  float64 `json:"ss_between"`
	SSWithin   float64 `json:"ss_within"`
}

// ANOVA decomposes each feature column's sum of squares into between- and
// within-cluster parts and tests the F-statistic against the F(k-1, n-k)
// distribution.
func ANOVA(data [][]float64, labels []int) ([]ANOVAResult, error) {
	n := len(data)
	if n != len(labels) {
		return nil, eris.Errorf("evaluate: %d rows but %d labels", n, len(labels))
	}
	if n == 0 {
		return nil, eris.New("evaluate: empty data")
	}
	cols := len(data[0])

	k := 0
	for _, l := range labels {
		if l < 0 {
			return nil, eris.Errorf("evaluate: negative label %d", l)
		}
		if l+1 > k {
			k = l + 1
		}
	}
	if k < 2 {
		return nil, eris.New("evaluate: ANOVA requires at least 2 clusters")
	}
	if n <= k {
		return nil, eris.Errorf("evaluate: ANOVA requires n > k, got n=%d k=%d", n, k)
	}

	sizes := make([]float64, k)
	for _, l := range labels {
		sizes[l]++
	}

	fdist := distuv.F{D1: float64(k - 1), D2: float64(n - k)}

	results := make([]ANOVAResult, cols)
	for j := 0; j < cols; j++ {
		var grand float64
		groupSums := make([]float64, k)
		for i := range data {
			v := data[i][j]
			grand += v
			groupSums[labels[i]] += v
		}
		grandMean := grand / float64(n)

		groupMeans := make([]float64, k)
		var ssBetween float64
		for g := 0; g < k; g++ {
			groupMeans[g] = groupSums[g] / sizes[g]
			d := groupMeans[g] - grandMean
			ssBetween += sizes[g] * d * d
		}

		var ssWithin float64
		for i := range data {
			d := data[i][j] - groupMeans[labels[i]]
			ssWithin += d * d
		}

		dfB := k - 1
		dfW := n - k
		msBetween := ssBetween / float64(dfB)
		msWithin := ssWithin / float64(dfW)

		res := ANOVAResult{
			DFBetween: dfB,
			DFWithin:  dfW,
			SSBetween: ssBetween,
			SSWithin:  ssWithin,
		}
		if j < len(authority.FeatureNames) {
			res.Feature = authority.FeatureNames[j]
		}
		if msWithin == 0 {
			// Perfect within-cluster homogeneity: infinitely significant.
			res.FStatistic = inf
			res.PValue = 0
		} else {
			res.FStatistic = msBetween / msWithin
			res.PValue = fdist.Survival(res.FStatistic)
		}
		results[j] = res
	}
	return results, nil
}
