package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/feature"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Derive and standardize the analysis features",
	Long: "Computes the six demand/supply ratios from the loaded authority table,\n" +
		"z-score standardizes them over the full population, and replaces the\n" +
		"stored feature table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		records, err := st.ListAuthorities(ctx)
		if err != nil {
			return err
		}

		ratios, err := feature.DeriveRatios(records)
		if err != nil {
			return err
		}
		matrix, err := feature.BuildMatrix(records, ratios)
		if err != nil {
			return err
		}
		if err := feature.CheckFinite(matrix); err != nil {
			return err
		}

		stats, err := feature.Standardize(matrix)
		if err != nil {
			return err
		}
		vecs, err := feature.Vectors(records, matrix)
		if err != nil {
			return err
		}

		if err := st.ReplaceFeatures(ctx, vecs, stats); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FEATURE\tMEAN\tSTD DEV")
		for _, s := range stats {
			fmt.Fprintf(tw, "%s\t%.4f\t%.4f\n", s.Name, s.Mean, s.StdDev)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		zap.L().Info("feature table replaced", zap.Int("authorities", len(vecs)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)
}
