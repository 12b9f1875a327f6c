// Package report renders pipeline results as plain tables and CSV. It is
// stateless: callers pass the data and an io.Writer.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/cluster"
	"github.com/careatlas/provision-cli/internal/evaluate"
)

// WriteFeatureCSV writes the standardized feature table.
func WriteFeatureCSV(w io.Writer, vecs []authority.FeatureVector) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := append([]string{"code", "name"}, authority.FeatureNames...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write feature CSV header")
	}
	for _, v := range vecs {
		row := []string{v.Code, v.Name}
		for _, x := range v.Values {
			row = append(row, formatFloat(x))
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write feature CSV row")
		}
	}
	return nil
}

// WriteDistortionCSV writes the elbow-sweep distortion sequence.
func WriteDistortionCSV(w io.Writer, seq []cluster.Distortion) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"k", "distortion"}); err != nil {
		return eris.Wrap(err, "report: write distortion CSV header")
	}
	for _, d := range seq {
		row := []string{strconv.Itoa(d.K), formatFloat(d.Inertia)}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write distortion CSV row")
		}
	}
	return nil
}

// WriteAssignmentCSV writes per-authority cluster assignments.
func WriteAssignmentCSV(w io.Writer, assignments []authority.Assignment) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"code", "name", "cluster", "distance"}); err != nil {
		return eris.Wrap(err, "report: write assignment CSV header")
	}
	for _, a := range assignments {
		row := []string{a.Code, a.Name, strconv.Itoa(a.Label), formatFloat(a.Distance)}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write assignment CSV row")
		}
	}
	return nil
}

// WriteCentroidCSV writes the k x 6 centroid matrix.
func WriteCentroidCSV(w io.Writer, centroids []authority.Centroid) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := append([]string{"cluster", "size"}, authority.FeatureNames...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write centroid CSV header")
	}
	for _, c := range centroids {
		row := []string{strconv.Itoa(c.Label), strconv.Itoa(c.Size)}
		for _, x := range c.Values {
			row = append(row, formatFloat(x))
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write centroid CSV row")
		}
	}
	return nil
}

// WriteANOVACSV writes the per-feature ANOVA table.
func WriteANOVACSV(w io.Writer, results []evaluate.ANOVAResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"feature", "f_statistic", "p_value", "df_between", "df_within", "ss_between", "ss_within"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write ANOVA CSV header")
	}
	for _, r := range results {
		row := []string{
			r.Feature,
			formatFloat(r.FStatistic),
			fmt.Sprintf("%.6g", r.PValue),
			strconv.Itoa(r.DFBetween),
			strconv.Itoa(r.DFWithin),
			formatFloat(r.SSBetween),
			formatFloat(r.SSWithin),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write ANOVA CSV row")
		}
	}
	return nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
