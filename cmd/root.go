package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/postcode-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "postcode-cli",
	Short: "Aggregate the MaltaPost address directory with coordinates",
	Long: "Walks every town, street and address in the MaltaPost postcode directory, " +
		"geocodes each address through the Google Geocoding API and writes the result as JSON, CSV, XLSX or GeoJSON.",
	SilenceUsage: true,
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
		zap.L().Error("command failed", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
}
