package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/evaluate"
	"github.com/careatlas/provision-cli/internal/report"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write run results to CSV files",
	Long: "Exports the standardized feature table, cluster assignments, centroids,\n" +
		"and ANOVA scores of a run as CSV files for spreadsheets or notebooks.",
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
		vecs, err := st.ListFeatures(ctx)
		if err != nil {
			return err
		}

		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "create export dir")
		}

		if err := writeCSV(filepath.Join(dir, "features.csv"), func(f *os.File) error {
			return report.WriteFeatureCSV(f, vecs)
		}); err != nil {
			return err
		}
		if err := writeCSV(filepath.Join(dir, "assignments.csv"), func(f *os.File) error {
			return report.WriteAssignmentCSV(f, detail.Assignments)
		}); err != nil {
			return err
		}
		if err := writeCSV(filepath.Join(dir, "centroids.csv"), func(f *os.File) error {
			return report.WriteCentroidCSV(f, detail.Centroids)
		}); err != nil {
			return err
		}

		if len(detail.ANOVA) > 0 {
			var anova []evaluate.ANOVAResult
			if err := json.Unmarshal(detail.ANOVA, &anova); err != nil {
				return eris.Wrap(err, "decode stored anova results")
			}
			if err := writeCSV(filepath.Join(dir, "anova.csv"), func(f *os.File) error {
				return report.WriteANOVACSV(f, anova)
			}); err != nil {
				return err
			}
		}

		zap.L().Info("export complete",
			zap.String("run_id", detail.Run.ID),
			zap.String("dir", dir),
		)
		return nil
	},
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
