package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/cluster"
	"github.com/careatlas/provision-cli/internal/report"
	"github.com/careatlas/provision-cli/internal/store"
)

var (
	elbowKMin int
	elbowKMax int
	elbowOut  string
)

var elbowCmd = &cobra.Command{
	Use:   "elbow",
	Short: "Sweep k and print the distortion curve",
	Long: "Fits k-means for each k in [k-min, k-max] and prints inertia per k.\n" +
		"The k with the largest second difference is marked as the elbow hint;\n" +
		"pick the final k by eye, the hint is only a starting point.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("analysis"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		_, matrix, err := loadFeatureMatrix(ctx, st)
		if err != nil {
			return err
		}

		kMin, kMax := elbowKMin, elbowKMax
		if kMin == 0 {
			kMin = cfg.Analysis.KMin
		}
		if kMax == 0 {
			kMax = cfg.Analysis.KMax
		}

		km := &cluster.KMeans{MaxIterations: cfg.Analysis.MaxIter}
		seq, err := cluster.Sweep(ctx, km, matrix, kMin, kMax, cfg.Analysis.NInit, cfg.Analysis.Seed)
		if err != nil {
			return err
		}

		if err := report.WriteDistortionTable(os.Stdout, seq); err != nil {
			return err
		}

		if elbowOut != "" {
			err := writeCSV(elbowOut, func(f *os.File) error {
				return report.WriteDistortionCSV(f, seq)
			})
			if err != nil {
				return err
			}
			zap.L().Info("distortion sequence written", zap.String("path", elbowOut))
		}

		if hint := cluster.SuggestElbow(seq); hint > 0 {
			zap.L().Info("elbow hint", zap.Int("k", hint))
		}
		return nil
	},
}

// loadFeatureMatrix reads the standardized feature table and unpacks it
// into the vectors and the raw matrix the clustering code consumes.
func loadFeatureMatrix(ctx context.Context, st store.Store) ([]authority.FeatureVector, [][]float64, error) {
	vecs, err := st.ListFeatures(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(vecs) == 0 {
		return nil, nil, eris.New("feature table is empty; run `provision-cli features` first")
	}

	matrix := make([][]float64, len(vecs))
	for i, v := range vecs {
		row := make([]float64, authority.FeatureCount)
		copy(row, v.Values[:])
		matrix[i] = row
	}
	return vecs, matrix, nil
}

func init() {
	elbowCmd.Flags().IntVar(&elbowKMin, "k-min", 0, "lowest k to try (default from config)")
	elbowCmd.Flags().IntVar(&elbowKMax, "k-max", 0, "highest k to try (default from config)")
	elbowCmd.Flags().StringVar(&elbowOut, "out", "", "also write the distortion sequence to a CSV file")
	rootCmd.AddCommand(elbowCmd)
}
