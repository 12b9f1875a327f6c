package ingest

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/fetcher"
)

// CareHome is one active care-home location from the CQC care directory.
type CareHome struct {
	LocationID    string
	Name          string
	AuthorityCode string // CQC's own LA attribution; containment fallback when absent
	Beds          int64
	Lat           float64
	Lng           float64
}

// carehomeColumns names the CQC care-directory columns the parser needs.
var carehomeColumns = []string{
	"location id",
	"location name",
	"location local authority code",
	"care homes beds",
	"location latitude",
	"location longitude",
	"care home?",
	"dormant (y/n)",
}

// ParseCareHomes streams the CQC care-directory CSV and keeps active care
// homes. Dormant locations and non-care-home services are filtered here;
// rows without coordinates are kept (the code-based join handles them).
func ParseCareHomes(ctx context.Context, r io.Reader) ([]CareHome, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	header, err := readHeader(headerCh, rowCh, errCh)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: care directory")
	}
	idx, err := headerIndex(header, carehomeColumns...)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: care directory")
	}

	var out []CareHome
	var filtered int
	for row := range rowCh {
		if !strings.EqualFold(cell(row, idx["care home?"]), "y") {
			filtered++
			continue
		}
		if strings.EqualFold(cell(row, idx["dormant (y/n)"]), "y") {
			filtered++
			continue
		}

		beds, _ := parseCount(cell(row, idx["care homes beds"]))
		lat := parseCoord(cell(row, idx["location latitude"]))
		lng := parseCoord(cell(row, idx["location longitude"]))

		out = append(out, CareHome{
			LocationID:    cell(row, idx["location id"]),
			Name:          cell(row, idx["location name"]),
			AuthorityCode: cell(row, idx["location local authority code"]),
			Beds:          beds,
			Lat:           lat,
			Lng:           lng,
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "ingest: stream care directory")
	}

	zap.L().Info("ingest: parsed care directory",
		zap.Int("care_homes", len(out)),
		zap.Int("filtered", filtered),
	)
	return out, nil
}

// parseCoord returns 0 for blank or malformed coordinates; 0 is treated
// as "no location" by the join since it falls in the Atlantic.
func parseCoord(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
