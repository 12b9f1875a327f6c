package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/evaluate"
	"github.com/careatlas/provision-cli/internal/report"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <run-id>",
	Short: "Score a stored cluster run",
	Long: "Computes the silhouette score, per-feature one-way ANOVA, cluster sizes,\n" +
		"and descriptive profiles for a stored run, and writes the scores back to\n" +
		"the run record.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		detail, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		vecs, matrix, err := loadFeatureMatrix(ctx, st)
		if err != nil {
			return err
		}
		labels, err := labelsFor(vecs, detail.Assignments)
		if err != nil {
			return err
		}

		sil, err := evaluate.Silhouette(matrix, labels)
		if err != nil {
			return err
		}
		anova, err := evaluate.ANOVA(matrix, labels)
		if err != nil {
			return err
		}
		sizes, err := evaluate.Sizes(labels)
		if err != nil {
			return err
		}
		profiles, err := evaluate.Profiles(matrix, labels)
		if err != nil {
			return err
		}

		anovaJSON, err := json.Marshal(anova)
		if err != nil {
			return eris.Wrap(err, "marshal anova results")
		}
		if err := st.SetRunEvaluation(ctx, detail.Run.ID, sil, anovaJSON); err != nil {
			return err
		}

		report.WriteRunSummary(os.Stdout, detail.Run, sizes, sil)
		if err := report.WriteANOVATable(os.Stdout, anova); err != nil {
			return err
		}
		if err := report.WriteProfileTable(os.Stdout, profiles); err != nil {
			return err
		}

		zap.L().Info("evaluation stored",
			zap.String("run_id", detail.Run.ID),
			zap.Float64("silhouette", sil),
		)
		return nil
	},
}

// labelsFor aligns stored assignments with the current feature table. The
// evaluation is only meaningful against the exact population the run was
// fitted on; a mismatch means the features were rebuilt since.
func labelsFor(vecs []authority.FeatureVector, assignments []authority.Assignment) ([]int, error) {
	byCode := make(map[string]int, len(assignments))
	for _, a := range assignments {
		byCode[a.Code] = a.Label
	}
	if len(byCode) != len(vecs) {
		return nil, eris.Errorf("run covers %d authorities but the feature table has %d; re-run cluster",
			len(byCode), len(vecs))
	}

	labels := make([]int, len(vecs))
	for i, v := range vecs {
		label, ok := byCode[v.Code]
		if !ok {
			return nil, eris.Errorf("authority %s is not part of the run; re-run cluster", v.Code)
		}
		labels[i] = label
	}
	return labels, nil
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}
