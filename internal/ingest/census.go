// Package ingest parses the published source datasets (census age
// structure, CQC care directory, Ofsted early-years register) and merges
// them into one Record per local authority.
package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/fetcher"
)

// CensusRow is one authority's age-structure counts from the census
// extract.
type CensusRow struct {
	Code    string
	Name    string
	AllAges int64
	Under4  int64
	Over65  int64
}

// CensusOptions configures the census workbook layout.
type CensusOptions struct {
	SheetName string
	CodeCol   string // e.g. "Area code"
	NameCol   string // e.g. "Area name"
	TotalCol  string // e.g. "All persons"
	Under4Col string // e.g. "Aged 4 years and under"
	Over65Col string // e.g. "Aged 65 years and over"
}

// DefaultCensusOptions matches the column layout of the ONS mid-year
// population estimate workbooks.
func DefaultCensusOptions(sheet string) CensusOptions {
	return CensusOptions{
		SheetName: sheet,
		CodeCol:   "Area code",
		NameCol:   "Area name",
		TotalCol:  "All persons",
		Under4Col: "Aged 4 years and under",
		Over65Col: "Aged 65 years and over",
	}
}

// ParseCensusWorkbook reads the age-structure sheet of an ONS census
// workbook. Only rows whose code looks like an English upper-tier
// authority (E06/E08/E09/E10) are kept; region and country subtotal rows
// are skipped.
func ParseCensusWorkbook(path string, opts CensusOptions) ([]CensusRow, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: opts.SheetName})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read census workbook %s", path)
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("ingest: census workbook %s has no data rows", path)
	}

	idx, err := headerIndex(rows[0], opts.CodeCol, opts.NameCol, opts.TotalCol, opts.Under4Col, opts.Over65Col)
	if err != nil {
		return nil, err
	}

	var out []CensusRow
	var skipped int
	for _, row := range rows[1:] {
		code := cell(row, idx[opts.CodeCol])
		if !IsUpperTierCode(code) {
			skipped++
			continue
		}

		total, err1 := parseCount(cell(row, idx[opts.TotalCol]))
		under4, err2 := parseCount(cell(row, idx[opts.Under4Col]))
		over65, err3 := parseCount(cell(row, idx[opts.Over65Col]))
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, eris.Errorf("ingest: census row %s has unparseable counts", code)
		}
		if total <= 0 {
			return nil, eris.Errorf("ingest: census row %s has non-positive population", code)
		}

		out = append(out, CensusRow{
			Code:    code,
			Name:    cell(row, idx[opts.NameCol]),
			AllAges: total,
			Under4:  under4,
			Over65:  over65,
		})
	}

	zap.L().Info("ingest: parsed census workbook",
		zap.String("path", path),
		zap.Int("authorities", len(out)),
		zap.Int("skipped", skipped),
	)
	if len(out) == 0 {
		return nil, eris.Errorf("ingest: no authority rows in census workbook %s", path)
	}
	return out, nil
}

// IsUpperTierCode reports whether a GSS code denotes an English
// upper-tier authority: unitary (E06), metropolitan district (E08),
// London borough (E09), or county (E10).
func IsUpperTierCode(code string) bool {
	for _, prefix := range []string{"E06", "E08", "E09", "E10"} {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

// readHeader waits for the header row from a StreamCSV pipeline. An input
// that ends before producing a header is an error, not a hang: the row
// channel closing first means the stream was empty.
func readHeader(headerCh <-chan []string, rowCh <-chan []string, errCh <-chan error) ([]string, error) {
	select {
	case header := <-headerCh:
		return header, nil
	case _, ok := <-rowCh:
		if !ok {
			if err := <-errCh; err != nil {
				return nil, err
			}
			return nil, eris.New("empty input")
		}
		return nil, eris.New("data row arrived before header")
	}
}

// headerIndex maps required column names to indices in the header row.
func headerIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	out := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := idx[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, eris.Errorf("ingest: missing column %q", name)
		}
		out[name] = i
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseCount parses an integer count that may carry thousands separators.
func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, eris.New("ingest: empty count")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: parse count %q", s)
	}
	return n, nil
}
