package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/cluster"
	"github.com/careatlas/provision-cli/internal/evaluate"
	"github.com/careatlas/provision-cli/internal/report"
	"github.com/careatlas/provision-cli/internal/store"
)

var (
	clusterK           int
	clusterSeed        int64
	clusterShowAssigns bool
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Fit k-means and persist the run",
	Long: "Runs k-means with n-init restarts over the standardized feature table,\n" +
		"keeps the lowest-inertia fit, and records assignments and centroids as a\n" +
		"new cluster run.",
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

		vecs, matrix, err := loadFeatureMatrix(ctx, st)
		if err != nil {
			return err
		}

		k := clusterK
		if k == 0 {
			k = cfg.Analysis.K
		}
		seed := clusterSeed
		if seed == 0 {
			seed = cfg.Analysis.Seed
		}

		km := &cluster.KMeans{MaxIterations: cfg.Analysis.MaxIter}
		result, winningSeed, err := cluster.BestOf(ctx, km, matrix, k, cfg.Analysis.NInit, seed)
		if err != nil {
			return err
		}

		sizes, err := evaluate.Sizes(result.Labels)
		if err != nil {
			return err
		}

		run := authority.ClusterRun{
			ID:         uuid.NewString(),
			K:          k,
			Seed:       winningSeed,
			NInit:      cfg.Analysis.NInit,
			Inertia:    result.Inertia,
			Iterations: result.Iterations,
			Rows:       len(matrix),
			CreatedAt:  time.Now().UTC(),
		}

		assignments := make([]authority.Assignment, len(vecs))
		for i, v := range vecs {
			assignments[i] = authority.Assignment{
				Code:     v.Code,
				Name:     v.Name,
				Label:    result.Labels[i],
				Distance: result.Distances[i],
			}
		}

		centroids := make([]authority.Centroid, k)
		for label := range k {
			c := authority.Centroid{RunID: run.ID, Label: label, Size: sizes[label]}
			copy(c.Values[:], result.Centroids[label])
			centroids[label] = c
		}

		if err := st.CreateRun(ctx, store.RunDetail{
			Run:         run,
			Assignments: assignments,
			Centroids:   centroids,
		}); err != nil {
			return err
		}

		sil, err := evaluate.Silhouette(matrix, result.Labels)
		if err != nil {
			zap.L().Warn("silhouette unavailable", zap.Error(err))
			sil = 0
		}
		report.WriteRunSummary(os.Stdout, run, sizes, sil)
		if clusterShowAssigns {
			if err := report.WriteAssignmentTable(os.Stdout, assignments); err != nil {
				return err
			}
		}

		zap.L().Info("cluster run stored",
			zap.String("run_id", run.ID),
			zap.Int("k", k),
			zap.Float64("inertia", result.Inertia),
		)
		return nil
	},
}

func init() {
	clusterCmd.Flags().IntVar(&clusterK, "k", 0, "number of clusters (default from config)")
	clusterCmd.Flags().Int64Var(&clusterSeed, "seed", 0, "base random seed (default from config)")
	clusterCmd.Flags().BoolVar(&clusterShowAssigns, "show-assignments", false, "print the per-authority assignment table")
	rootCmd.AddCommand(clusterCmd)
}
