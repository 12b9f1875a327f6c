// Package boundary loads local-authority boundary polygons from ONS
// shapefile products and joins point datasets into them.
package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Boundary is one authority polygon with its GSS code and name, as read
// from a boundary shapefile.
type Boundary struct {
	Code    string
	Name    string
	Polygon *geom.MultiPolygon
	EWKB    []byte

	// Cached bounding box for the containment pre-filter.
	minX, minY, maxX, maxY float64
}

// ShapefileOptions names the attribute fields carrying the authority code
// and name. ONS boundary products use e.g. CTYUA23CD / CTYUA23NM.
type ShapefileOptions struct {
	CodeField string
	NameField string
}

// LoadShapefile reads authority polygons from a shapefile. Records with a
// missing code, a non-polygon shape, or an unparseable geometry are
// skipped with a debug log, matching how upstream boundary products mix
// placeholder rows into otherwise clean files.
func LoadShapefile(path string, opts ShapefileOptions) ([]Boundary, error) {
	if opts.CodeField == "" || opts.NameField == "" {
		return nil, eris.New("boundary: code and name field names are required")
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	codeIdx, ok := fieldIdx[strings.ToLower(opts.CodeField)]
	if !ok {
		return nil, eris.Errorf("boundary: shapefile has no field %q", opts.CodeField)
	}
	nameIdx, ok := fieldIdx[strings.ToLower(opts.NameField)]
	if !ok {
		return nil, eris.Errorf("boundary: shapefile has no field %q", opts.NameField)
	}

	var boundaries []Boundary
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		code := strings.TrimSpace(strings.TrimRight(reader.Attribute(codeIdx), "\x00"))
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if code == "" {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		ewkb, err := EncodeEWKB(mp)
		if err != nil {
			skipped++
			continue
		}

		b := Boundary{Code: code, Name: name, Polygon: mp, EWKB: ewkb}
		b.minX, b.minY, b.maxX, b.maxY = bbox(mp)
		boundaries = append(boundaries, b)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(boundaries) == 0 {
		return nil, eris.Errorf("boundary: no usable polygons in %s", path)
	}
	return boundaries, nil
}

// FromGeometry builds a Boundary from an already-parsed multipolygon,
// for callers that load geometry from the store rather than a shapefile.
func FromGeometry(code, name string, mp *geom.MultiPolygon, ewkbData []byte) (Boundary, error) {
	if code == "" {
		return Boundary{}, eris.New("boundary: code is required")
	}
	if mp == nil || mp.NumPolygons() == 0 {
		return Boundary{}, eris.Errorf("boundary: %s has no polygon", code)
	}
	b := Boundary{Code: code, Name: name, Polygon: mp, EWKB: ewkbData}
	b.minX, b.minY, b.maxX, b.maxY = bbox(mp)
	return b, nil
}

// bbox computes the axis-aligned bounding box of a multipolygon.
func bbox(mp *geom.MultiPolygon) (minX, minY, maxX, maxY float64) {
	b := mp.Bounds()
	return b.Min(0), b.Min(1), b.Max(0), b.Max(1)
}
