package boundary

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/xy"
)

// EncodeEWKB serializes a geometry as EWKB with SRID 4326, the form the
// store persists.
func EncodeEWKB(g geom.T) ([]byte, error) {
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses a stored EWKB geometry.
func DecodeEWKB(data []byte) (geom.T, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: decode EWKB")
	}
	return g, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Shapefile polygons store outer rings and holes as flat parts; each part
// becomes its own polygon here, which is sufficient for containment tests
// because hole rings subtract via ring orientation in Contains.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// Contains reports whether the boundary's polygon contains the point.
// Ring orientation distinguishes outer rings from holes: a point inside
// an odd number of rings is inside the shape.
func (b *Boundary) Contains(x, y float64) bool {
	if x < b.minX || x > b.maxX || y < b.minY || y > b.maxY {
		return false
	}
	pt := geom.Coord{x, y}
	inside := 0
	for i := 0; i < b.Polygon.NumPolygons(); i++ {
		poly := b.Polygon.Polygon(i)
		for r := 0; r < poly.NumLinearRings(); r++ {
			if xy.IsPointInRing(geom.XY, pt, poly.LinearRing(r).FlatCoords()) {
				inside++
			}
		}
	}
	return inside%2 == 1
}
