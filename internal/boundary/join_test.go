package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// square builds a unit-square boundary at the given origin.
func square(code, name string, x, y, size float64) Boundary {
	flat := []float64{
		x, y,
		x + size, y,
		x + size, y + size,
		x, y + size,
		x, y,
	}
	ring := geom.NewLinearRingFlat(geom.XY, flat)
	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(ring); err != nil {
		panic(err)
	}
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	if err := mp.Push(poly); err != nil {
		panic(err)
	}

	b := Boundary{Code: code, Name: name, Polygon: mp}
	b.minX, b.minY, b.maxX, b.maxY = bbox(mp)
	return b
}

func TestBoundaryContains(t *testing.T) {
	b := square("E06000001", "Hartlepool", 0, 0, 1)

	assert.True(t, b.Contains(0.5, 0.5))
	assert.False(t, b.Contains(1.5, 0.5))
	assert.False(t, b.Contains(-0.5, 0.5))
	// bbox pre-filter path
	assert.False(t, b.Contains(100, 100))
}

func TestIndexLocate(t *testing.T) {
	idx, err := NewIndex([]Boundary{
		square("E06000001", "Hartlepool", 0, 0, 1),
		square("E06000002", "Middlesbrough", 2, 0, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, "E06000001", idx.Locate(0.5, 0.5))
	assert.Equal(t, "E06000002", idx.Locate(2.5, 0.5))
	assert.Equal(t, "", idx.Locate(5, 5))
}

func TestNewIndex_DuplicateCode(t *testing.T) {
	_, err := NewIndex([]Boundary{
		square("E06000001", "A", 0, 0, 1),
		square("E06000001", "B", 2, 0, 1),
	})
	require.Error(t, err)
}

func TestJoin(t *testing.T) {
	idx, err := NewIndex([]Boundary{
		square("E06000001", "Hartlepool", 0, 0, 1),
		square("E06000002", "Middlesbrough", 2, 0, 1),
	})
	require.NoError(t, err)

	points := []Point{
		{ID: "ch-1", Lng: 0.2, Lat: 0.2},                       // containment
		{ID: "ch-2", Lng: 2.9, Lat: 0.1},                       // containment
		{ID: "ch-3", Code: "E06000002", Lng: 99, Lat: 99},      // code wins over location
		{ID: "ch-4", Code: "E99999999", Lng: 0.5, Lat: 0.5},    // unknown code, containment fallback
		{ID: "ch-5", Lng: 50, Lat: 50},                         // unmatched
	}

	res := idx.Join(points)
	assert.Equal(t, "E06000001", res.Assigned["ch-1"])
	assert.Equal(t, "E06000002", res.Assigned["ch-2"])
	assert.Equal(t, "E06000002", res.Assigned["ch-3"])
	assert.Equal(t, "E06000001", res.Assigned["ch-4"])
	assert.Equal(t, []string{"ch-5"}, res.Unmatched)
}

func TestEWKBRoundTrip(t *testing.T) {
	b := square("E06000001", "Hartlepool", 0, 0, 1)

	data, err := EncodeEWKB(b.Polygon)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	g, err := DecodeEWKB(data)
	require.NoError(t, err)
	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 4326, mp.SRID())
	assert.Equal(t, b.Polygon.FlatCoords(), mp.FlatCoords())
}
