// Package feature turns merged authority records into the standardized
// six-feature matrix consumed by the clustering and evaluation layers.
package feature

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/careatlas/provision-cli/internal/authority"
)

// Ratios holds the four demand/supply ratios for one authority, prior to
// standardization. Higher values mean more residents competing for each
// unit of provision.
type Ratios struct {
	Code string
	Name string

	Under4PerSite  float64 // under-4 population per early-years site
	Under4PerPlace float64 // under-4 population per registered place
	Over65PerHome  float64 // over-65 population per care-home location
	Over65PerBed   float64 // over-65 population per care-home bed
}

// DeriveRatios computes the demand/supply ratios for every record. A zero
// supply count is a precondition violation: letting it through would put
// +Inf into the standardization pass and corrupt every downstream centroid
// and distance, so the offending authority is named and the run aborts.
// Rows that should not participate (City of London) must be excluded
// before this point.
func DeriveRatios(records []authority.Record) ([]Ratios, error) {
	out := make([]Ratios, 0, len(records))
	for _, r := range records {
		if r.EarlyYearsSites == 0 || r.EarlyYearsPlaces == 0 {
			return nil, eris.Errorf("feature: %s (%s) has no early-years provision; exclude it before deriving ratios", r.Name, r.Code)
		}
		if r.CareHomeLocations == 0 || r.CareHomeBeds == 0 {
			return nil, eris.Errorf("feature: %s (%s) has no care-home provision; exclude it before deriving ratios", r.Name, r.Code)
		}
		out = append(out, Ratios{
			Code:           r.Code,
			Name:           r.Name,
			Under4PerSite:  float64(r.Under4Count) / float64(r.EarlyYearsSites),
			Under4PerPlace: float64(r.Under4Count) / float64(r.EarlyYearsPlaces),
			Over65PerHome:  float64(r.Over65Count) / float64(r.CareHomeLocations),
			Over65PerBed:   float64(r.Over65Count) / float64(r.CareHomeBeds),
		})
	}
	return out, nil
}

// BuildMatrix assembles the raw (unstandardized) feature matrix in
// authority.FeatureNames column order: the two census percentages followed
// by the four ratios. records and ratios must be aligned by index.
func BuildMatrix(records []authority.Record, ratios []Ratios) ([][]float64, error) {
	if len(records) != len(ratios) {
		return nil, eris.Errorf("feature: %d records but %d ratio rows", len(records), len(ratios))
	}
	m := make([][]float64, len(records))
	for i, r := range records {
		if r.Code != ratios[i].Code {
			return nil, eris.Errorf("feature: row %d misaligned: record %s vs ratios %s", i, r.Code, ratios[i].Code)
		}
		m[i] = []float64{
			r.Under4Pct,
			r.Over65Pct,
			ratios[i].Under4PerSite,
			ratios[i].Under4PerPlace,
			ratios[i].Over65PerHome,
			ratios[i].Over65PerBed,
		}
	}
	return m, nil
}

// CheckFinite verifies that every matrix cell is a finite number. It runs
// after derivation and after standardization; a NaN or Inf anywhere means
// an upstream precondition was violated.
func CheckFinite(matrix [][]float64) error {
	for i, row := range matrix {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return eris.Errorf("feature: non-finite value at row %d column %s", i, authority.FeatureNames[j])
			}
		}
	}
	return nil
}
