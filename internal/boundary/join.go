package boundary

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Point is one supply-side location (a care home or an early-years
// provider) to be assigned to an authority polygon.
type Point struct {
	ID   string
	Lng  float64
	Lat  float64
	Code string // pre-assigned authority code, if the source publishes one
}

// JoinResult maps point IDs to authority codes, with the points that
// matched nothing kept for reporting.
type JoinResult struct {
	Assigned  map[string]string
	Unmatched []string
}

// Index answers point-in-authority queries over a set of boundaries.
type Index struct {
	boundaries []Boundary
	byCode     map[string]int
}

// NewIndex builds a containment index. Boundaries must have distinct codes.
func NewIndex(boundaries []Boundary) (*Index, error) {
	byCode := make(map[string]int, len(boundaries))
	for i, b := range boundaries {
		if _, dup := byCode[b.Code]; dup {
			return nil, eris.Errorf("boundary: duplicate authority code %s", b.Code)
		}
		byCode[b.Code] = i
	}
	return &Index{boundaries: boundaries, byCode: byCode}, nil
}

// Locate returns the code of the authority containing the point, or ""
// when no polygon contains it. The bbox pre-filter inside Contains keeps
// this linear scan cheap at the 151-authority scale.
func (idx *Index) Locate(lng, lat float64) string {
	for i := range idx.boundaries {
		if idx.boundaries[i].Contains(lng, lat) {
			return idx.boundaries[i].Code
		}
	}
	return ""
}

// Has reports whether the index knows the given authority code.
func (idx *Index) Has(code string) bool {
	_, ok := idx.byCode[code]
	return ok
}

// Join assigns each point to an authority. Points carrying a known code
// keep it; the rest fall through to polygon containment. Points with
// neither are reported unmatched rather than silently dropped, since a
// systematic mismatch here would bias every supply count downstream.
func (idx *Index) Join(points []Point) JoinResult {
	res := JoinResult{Assigned: make(map[string]string, len(points))}
	var spatial, byCode int
	for _, p := range points {
		if p.Code != "" && idx.Has(p.Code) {
			res.Assigned[p.ID] = p.Code
			byCode++
			continue
		}
		if code := idx.Locate(p.Lng, p.Lat); code != "" {
			res.Assigned[p.ID] = code
			spatial++
			continue
		}
		res.Unmatched = append(res.Unmatched, p.ID)
	}
	zap.L().Debug("boundary: spatial join complete",
		zap.Int("points", len(points)),
		zap.Int("by_code", byCode),
		zap.Int("by_containment", spatial),
		zap.Int("unmatched", len(res.Unmatched)),
	)
	return res
}
