package feature

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/careatlas/provision-cli/internal/authority"
)

// ColumnStats holds the per-column moments used for standardization.
// StdDev is the population standard deviation: the analysis treats the
// full set of authorities as the population, not a sample from one.
type ColumnStats struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Standardize z-scores each column of the matrix in place over all rows
// present: z = (x - mean) / population_std. It returns the per-column
// moments so reports can recover raw-unit values. The population is
// whatever is passed in; scores computed over a different row set are not
// comparable.
func Standardize(matrix [][]float64) ([]ColumnStats, error) {
	if len(matrix) < 2 {
		return nil, eris.Errorf("feature: standardization needs at least 2 rows, got %d", len(matrix))
	}
	cols := len(matrix[0])
	stats := make([]ColumnStats, cols)

	col := make([]float64, len(matrix))
	for j := 0; j < cols; j++ {
		for i := range matrix {
			col[i] = matrix[i][j]
		}
		mean := stat.Mean(col, nil)
		// stat.PopVariance divides by n rather than n-1.
		sd := math.Sqrt(stat.PopVariance(col, nil))
		if sd == 0 {
			return nil, eris.Errorf("feature: column %s is constant; cannot standardize", authority.FeatureNames[j])
		}
		for i := range matrix {
			matrix[i][j] = (matrix[i][j] - mean) / sd
		}
		stats[j] = ColumnStats{Name: authority.FeatureNames[j], Mean: mean, StdDev: sd}
	}

	if err := CheckFinite(matrix); err != nil {
		return nil, err
	}
	return stats, nil
}

// Vectors packages a standardized matrix into per-authority FeatureVectors.
// records and matrix must be aligned by index.
func Vectors(records []authority.Record, matrix [][]float64) ([]authority.FeatureVector, error) {
	if len(records) != len(matrix) {
		return nil, eris.Errorf("feature: %d records but %d matrix rows", len(records), len(matrix))
	}
	out := make([]authority.FeatureVector, len(records))
	for i, r := range records {
		if len(matrix[i]) != authority.FeatureCount {
			return nil, eris.Errorf("feature: row %d has %d columns, want %d", i, len(matrix[i]), authority.FeatureCount)
		}
		fv := authority.FeatureVector{Code: r.Code, Name: r.Name}
		copy(fv.Values[:], matrix[i])
		out[i] = fv
	}
	return out, nil
}
