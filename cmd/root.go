package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "provision-cli",
	Short: "Care provision clustering for English local authorities",
	Long: "Merges census, boundary, care home, and childcare datasets into a per-authority\n" +
		"profile, derives demand/supply features, and groups the 151 upper-tier\n" +
		"authorities into provision clusters via k-means.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
