package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/cluster"
	"github.com/careatlas/provision-cli/internal/evaluate"
)

// WriteDistortionTable renders the elbow sweep with a marker on the
// suggested elbow.
func WriteDistortionTable(w io.Writer, seq []cluster.Distortion) error {
	suggested := cluster.SuggestElbow(seq)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "K\tDISTORTION\t")
	for _, d := range seq {
		marker := ""
		if d.K == suggested {
			marker = "<- max second difference"
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%s\n", d.K, d.Inertia, marker)
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "report: flush distortion table")
	}
	if suggested > 0 {
		fmt.Fprintf(w, "\nThe elbow is a judgement call; k=%d is only the numeric hint.\n", suggested)
	}
	return nil
}

// WriteAssignmentTable renders per-authority assignments sorted as given.
func WriteAssignmentTable(w io.Writer, assignments []authority.Assignment) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tAUTHORITY\tCLUSTER\tDIST")
	for _, a := range assignments {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.4f\n", a.Code, a.Name, a.Label, a.Distance)
	}
	return eris.Wrap(tw.Flush(), "report: flush assignment table")
}

// WriteANOVATable renders the per-feature ANOVA results with significance
// stars at the 0.05, 0.01, and 0.001 levels.
func WriteANOVATable(w io.Writer, results []evaluate.ANOVAResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tF\tP\tDF\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3g\t(%d, %d)\t%s\n",
			r.Feature, r.FStatistic, r.PValue, r.DFBetween, r.DFWithin, stars(r.PValue))
	}
	return eris.Wrap(tw.Flush(), "report: flush ANOVA table")
}

// WriteProfileTable renders per-cluster descriptive statistics.
func WriteProfileTable(w io.Writer, profiles []evaluate.ClusterProfile) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range profiles {
		fmt.Fprintf(tw, "cluster %d\t(n=%d)\t\t\t\t\t\t\t\n", p.Label, p.Size)
		fmt.Fprintln(tw, "  FEATURE\tMEAN\tSTD\tMIN\tQ1\tMEDIAN\tQ3\tMAX")
		for _, f := range p.Features {
			fmt.Fprintf(tw, "  %s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
				f.Feature, f.Mean, f.StdDev, f.Min, f.Q1, f.Median, f.Q3, f.Max)
		}
		fmt.Fprintln(tw, "\t\t\t\t\t\t\t\t")
	}
	return eris.Wrap(tw.Flush(), "report: flush profile table")
}

// WriteRunSummary renders a one-screen summary of a cluster run.
func WriteRunSummary(w io.Writer, run authority.ClusterRun, sizes []int, silhouette float64) {
	fmt.Fprintf(w, "run %s\n", run.ID)
	fmt.Fprintf(w, "  k=%d seed=%d n_init=%d rows=%d\n", run.K, run.Seed, run.NInit, run.Rows)
	fmt.Fprintf(w, "  inertia=%.4f iterations=%d silhouette=%.4f\n", run.Inertia, run.Iterations, silhouette)
	fmt.Fprint(w, "  sizes:")
	for label, s := range sizes {
		fmt.Fprintf(w, " %d=%d", label, s)
	}
	fmt.Fprintln(w)
}

func stars(p float64) string {
	switch {
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	default:
		return ""
	}
}
