package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/postcode-cli/internal/aggregate"
	"github.com/sells-group/postcode-cli/internal/config"
	"github.com/sells-group/postcode-cli/internal/fetcher"
	"github.com/sells-group/postcode-cli/internal/resilience"
	"github.com/sells-group/postcode-cli/pkg/geocode"
	"github.com/sells-group/postcode-cli/pkg/maltapost"
)

// pipelineEnv holds the clients shared by the aggregate, towns and geocode
// commands. Everything is built once from the loaded configuration.
type pipelineEnv struct {
	Fetcher   *fetcher.HTTPFetcher
	Directory maltapost.Client
	Geocoder  *geocode.Google
	Cache     *geocode.Cache
}

// initPipeline validates c and wires the fetcher, directory client and
// geocode cache.
func initPipeline(c *config.Config) (*pipelineEnv, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	retry := resilience.FromFetchConfig(
		c.Fetch.MaxAttempts,
		c.Fetch.RetryDelaySecs,
		c.Fetch.MaxRetryDelaySecs,
		c.Fetch.BackoffMultiplier,
		c.Fetch.JitterFraction,
	)

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:         c.Fetch.UserAgent,
		Timeout:           time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		RequestsPerSecond: c.Fetch.RequestsPerSecond,
		Retry:             retry,
	})

	g := geocode.NewGoogle(f,
		geocode.WithBaseURL(c.Geocode.BaseURL),
		geocode.WithAPIKey(c.Geocode.APIKey),
		geocode.WithStatusRetry(retry),
	)

	return &pipelineEnv{
		Fetcher:   f,
		Directory: maltapost.NewClient(f, maltapost.WithBaseURL(c.Directory.BaseURL)),
		Geocoder:  g,
		Cache:     geocode.NewCache(g),
	}, nil
}

// Aggregator returns a hierarchy aggregator over the environment's clients.
func (pe *pipelineEnv) Aggregator(reporter aggregate.Reporter) *aggregate.Aggregator {
	return aggregate.New(pe.Directory, pe.Cache, aggregate.WithReporter(reporter))
}

// logGeocodeStats records cache activity at the end of a run.
func (pe *pipelineEnv) logGeocodeStats(log *zap.Logger) {
	if !pe.Cache.Enabled() {
		return
	}
	s := pe.Cache.Stats()
	log.Info("geocode cache",
		zap.Int("hits", s.Hits),
		zap.Int("misses", s.Misses),
		zap.Int("entries", s.Entries),
	)
}
