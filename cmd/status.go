package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is loaded and recent cluster runs",
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
		vecs, err := st.ListFeatures(ctx)
		if err != nil {
			return err
		}
		runs, err := st.ListRuns(ctx, statusLimit)
		if err != nil {
			return err
		}

		fmt.Printf("Authorities loaded: %d\n", len(records))
		fmt.Printf("Feature rows:       %d\n", len(vecs))

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No cluster runs yet.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tK\tSEED\tINERTIA\tITER\tROWS\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%d\t%d\t%s\n",
				r.ID, r.K, r.Seed, r.Inertia, r.Iterations, r.Rows,
				r.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		return tw.Flush()
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "max number of runs to display")
	rootCmd.AddCommand(statusCmd)
}
