package ingest

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/fetcher"
)

// EarlyYears is one registered early-years childcare provider from the
// Ofsted register extract.
type EarlyYears struct {
	URN           string
	Name          string
	AuthorityName string // Ofsted publishes LA name, not GSS code
	Places        int64
	Lat           float64
	Lng           float64
}

var childcareColumns = []string{
	"provider urn",
	"provider name",
	"local authority",
	"places",
	"latitude",
	"longitude",
	"provider status",
	"register",
}

// ParseChildcare streams the Ofsted childcare-providers CSV, keeping
// active providers on the Early Years Register.
func ParseChildcare(ctx context.Context, r io.Reader) ([]EarlyYears, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	header, err := readHeader(headerCh, rowCh, errCh)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: childcare register")
	}
	idx, err := headerIndex(header, childcareColumns...)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: childcare register")
	}

	var out []EarlyYears
	var filtered int
	for row := range rowCh {
		if !strings.EqualFold(cell(row, idx["provider status"]), "active") {
			filtered++
			continue
		}
		if !strings.Contains(strings.ToLower(cell(row, idx["register"])), "eyr") {
			filtered++
			continue
		}

		places, _ := parseCount(cell(row, idx["places"]))

		out = append(out, EarlyYears{
			URN:           cell(row, idx["provider urn"]),
			Name:          cell(row, idx["provider name"]),
			AuthorityName: cell(row, idx["local authority"]),
			Places:        places,
			Lat:           parseCoord(cell(row, idx["latitude"])),
			Lng:           parseCoord(cell(row, idx["longitude"])),
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "ingest: stream childcare register")
	}

	zap.L().Info("ingest: parsed childcare register",
		zap.Int("providers", len(out)),
		zap.Int("filtered", filtered),
	)
	return out, nil
}
