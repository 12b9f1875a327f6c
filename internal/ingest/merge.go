package ingest

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/boundary"
)

// MergeOptions controls the census/supply merge.
type MergeOptions struct {
	// Exclusions lists GSS codes dropped from the analysis population.
	// The City of London (E09000001) is the standing member: a square
	// mile with almost no resident children and a single care home, it
	// distorts every standardized column.
	Exclusions []string
}

// Merge joins the three datasets into one Record per authority: census
// demand counts, care-home supply aggregated via the boundary join, and
// early-years supply joined by normalized authority name. Every census
// authority must end up with a row; an authority that collected no supply
// points at all is surfaced as an error rather than passed downstream
// with zero denominators.
func Merge(census []CensusRow, boundaries []boundary.Boundary, careHomes []CareHome, childcare []EarlyYears, opts MergeOptions) ([]authority.Record, error) {
	if len(census) == 0 {
		return nil, eris.New("ingest: no census rows to merge")
	}

	excluded := make(map[string]bool, len(opts.Exclusions))
	for _, code := range opts.Exclusions {
		excluded[code] = true
	}

	idx, err := boundary.NewIndex(boundaries)
	if err != nil {
		return nil, err
	}

	ewkbByCode := make(map[string][]byte, len(boundaries))
	codeByName := make(map[string]string, len(boundaries))
	for _, b := range boundaries {
		ewkbByCode[b.Code] = b.EWKB
		codeByName[authority.NormalizeName(b.Name)] = b.Code
	}

	records := make(map[string]*authority.Record, len(census))
	for _, c := range census {
		if excluded[c.Code] {
			continue
		}
		records[c.Code] = &authority.Record{
			Code:         c.Code,
			Name:         c.Name,
			BoundaryEWKB: ewkbByCode[c.Code],
			Under4Count:  c.Under4,
			Under4Pct:    float64(c.Under4) / float64(c.AllAges) * 100,
			Over65Count:  c.Over65,
			Over65Pct:    float64(c.Over65) / float64(c.AllAges) * 100,
			LoadedAt:     time.Now().UTC(),
		}
	}

	// Care homes: CQC's own LA code when present, polygon containment
	// otherwise.
	points := make([]boundary.Point, len(careHomes))
	homesByID := make(map[string]CareHome, len(careHomes))
	for i, ch := range careHomes {
		points[i] = boundary.Point{ID: ch.LocationID, Lng: ch.Lng, Lat: ch.Lat, Code: ch.AuthorityCode}
		homesByID[ch.LocationID] = ch
	}
	joined := idx.Join(points)
	for id, code := range joined.Assigned {
		rec, ok := records[code]
		if !ok {
			continue // excluded or out-of-scope authority
		}
		rec.CareHomeLocations++
		rec.CareHomeBeds += homesByID[id].Beds
	}

	// Childcare: Ofsted publishes names only, so normalize and map to a
	// code first; coordinates are the fallback.
	var nameMisses int
	for _, ey := range childcare {
		code := codeByName[authority.NormalizeName(ey.AuthorityName)]
		if code == "" {
			code = idx.Locate(ey.Lng, ey.Lat)
		}
		if code == "" {
			nameMisses++
			continue
		}
		rec, ok := records[code]
		if !ok {
			continue
		}
		rec.EarlyYearsSites++
		rec.EarlyYearsPlaces += ey.Places
	}
	if nameMisses > 0 {
		zap.L().Warn("ingest: childcare providers matched no authority",
			zap.Int("count", nameMisses),
		)
	}

	out := make([]authority.Record, 0, len(records))
	for _, rec := range records {
		if rec.CareHomeLocations == 0 && rec.EarlyYearsSites == 0 {
			return nil, eris.Errorf("ingest: %s (%s) collected no supply points; check the joins before proceeding", rec.Name, rec.Code)
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	zap.L().Info("ingest: merged datasets",
		zap.Int("authorities", len(out)),
		zap.Int("excluded", len(opts.Exclusions)),
		zap.Int("unmatched_care_homes", len(joined.Unmatched)),
	)
	return out, nil
}
