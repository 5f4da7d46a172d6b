package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/sells-group/postcode-cli/internal/aggregate"
	"github.com/sells-group/postcode-cli/internal/config"
	"github.com/sells-group/postcode-cli/internal/export"
)

const geocodeWarning = `
*****************************************************************
WARNING: Google Geocoding API key is not set or is the placeholder.
Latitude and longitude will be empty for every address.
Set POSTCODE_GEOCODE_API_KEY or GOOGLE_API_KEY to enable geocoding.
*****************************************************************
`

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate every address in the directory and write the output files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyAggregateFlags(cmd, cfg)

		env, err := initPipeline(cfg)
		if err != nil {
			return err
		}

		runID := uuid.New().String()
		log := zap.L().With(zap.String("run_id", runID))

		out := cmd.OutOrStdout()
		if !cfg.Geocode.Enabled() {
			fmt.Fprint(cmd.ErrOrStderr(), geocodeWarning)
			log.Warn("geocoding disabled, coordinates will be empty")
		}

		fmt.Fprintln(out, "Starting data aggregation...")
		log.Info("aggregation started",
			zap.String("directory", cfg.Directory.BaseURL),
			zap.Bool("geocoding", cfg.Geocode.Enabled()),
			zap.Strings("formats", cfg.Output.Formats),
		)

		reporter := newReporter(cfg.Progress.Style, out, cmd.ErrOrStderr())
		records, sum, err := env.Aggregator(reporter).Aggregate(ctx)
		if err != nil {
			return eris.Wrap(err, "aggregate")
		}

		paths, err := export.WriteFiles(cfg.Output.Dir, cfg.Output.Formats, records)
		if err != nil {
			return eris.Wrap(err, "aggregate: write output")
		}

		if cfg.Output.S3Bucket != "" {
			uploader, err := export.NewS3Uploader(ctx, cfg.Output.S3Region, cfg.Output.S3Bucket, path.Join(cfg.Output.S3Prefix, runID))
			if err != nil {
				return err
			}
			if err := uploader.Upload(ctx, paths); err != nil {
				return eris.Wrap(err, "aggregate: upload output")
			}
		}

		env.logGeocodeStats(log)
		log.Info("aggregation completed",
			zap.Int("towns", sum.Towns),
			zap.Int("streets", sum.Streets),
			zap.Int("records", sum.Records),
			zap.Int("geocoded", sum.Geocoded),
			zap.Strings("files", paths),
		)
		fmt.Fprintln(out, "Data aggregation completed.")
		return nil
	},
}

// applyAggregateFlags lets explicitly set flags override configuration.
func applyAggregateFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		c.Output.Dir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("format") {
		c.Output.Formats, _ = flags.GetStringSlice("format")
	}
	if flags.Changed("progress") {
		c.Progress.Style, _ = flags.GetString("progress")
	}
	if flags.Changed("s3-bucket") {
		c.Output.S3Bucket, _ = flags.GetString("s3-bucket")
	}
	if flags.Changed("s3-prefix") {
		c.Output.S3Prefix, _ = flags.GetString("s3-prefix")
	}
	if flags.Changed("max-attempts") {
		c.Fetch.MaxAttempts, _ = flags.GetInt("max-attempts")
	}
	if flags.Changed("retry-delay") {
		c.Fetch.RetryDelaySecs, _ = flags.GetInt("retry-delay")
		if c.Fetch.MaxRetryDelaySecs < c.Fetch.RetryDelaySecs {
			c.Fetch.MaxRetryDelaySecs = c.Fetch.RetryDelaySecs
		}
	}
}

// newReporter picks the progress reporter for style. Line output goes to
// stdout; the bar is drawn on stderr.
func newReporter(style string, stdout, stderr io.Writer) aggregate.Reporter {
	switch style {
	case config.ProgressNone:
		return aggregate.NopReporter{}
	case config.ProgressBar:
		return aggregate.NewBarReporter(stderr)
	case config.ProgressAuto:
		if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return aggregate.NewBarReporter(stderr)
		}
		return aggregate.NewLineReporter(stdout)
	default:
		return aggregate.NewLineReporter(stdout)
	}
}

func addAggregateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("output-dir", "", "directory for output files (overrides output.dir)")
	f.StringSlice("format", nil, "output formats: json, csv, xlsx, geojson (overrides output.formats)")
	f.String("progress", "", "progress style: lines, bar, auto, none (overrides progress.style)")
	f.String("s3-bucket", "", "upload output files to this S3 bucket")
	f.String("s3-prefix", "", "key prefix for uploaded files")
	f.Int("max-attempts", 0, "attempts per upstream request (overrides fetch.max_attempts)")
	f.Int("retry-delay", 0, "seconds between attempts, 0 retries immediately (overrides fetch.retry_delay_secs)")
}

func init() {
	addAggregateFlags(aggregateCmd)
	rootCmd.AddCommand(aggregateCmd)
}
