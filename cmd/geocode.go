package main

import (
	"encoding/json"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Geocode a single formatted address",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(cfg)
		if err != nil {
			return err
		}
		if !env.Cache.Enabled() {
			return eris.New("geocode: no Google Geocoding API key configured")
		}

		address := strings.Join(args, " ")
		result, err := env.Cache.Resolve(ctx, address)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Address   string   `json:"address"`
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		}{address, result.Latitude, result.Longitude}); err != nil {
			return eris.Wrap(err, "geocode: encode")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
