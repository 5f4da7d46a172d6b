package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var townsCmd = &cobra.Command{
	Use:   "towns",
	Short: "Print the directory's town list as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(cfg)
		if err != nil {
			return err
		}

		towns, err := env.Directory.ListTowns(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(towns); err != nil {
			return eris.Wrap(err, "towns: encode")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(townsCmd)
}
