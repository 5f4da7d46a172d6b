// Package geocode resolves postal addresses to coordinates via the Google
// Geocoding API, with a process-lifetime read-through cache in front of it.
package geocode

import (
	"context"

	"github.com/sells-group/postcode-cli/internal/fetcher"
	"github.com/sells-group/postcode-cli/internal/model"
	"github.com/sells-group/postcode-cli/internal/resilience"
)

// PlaceholderAPIKey is the sample key shipped in example configuration. It
// is treated the same as no key at all.
const PlaceholderAPIKey = "your_google_api_key_here"

// Lookuper performs a single upstream geocode lookup.
type Lookuper interface {
	// Enabled reports whether lookups can be made at all.
	Enabled() bool

	// Lookup geocodes one formatted address. An address with no candidate
	// yields an empty result and a nil error.
	Lookup(ctx context.Context, address string) (model.GeocodeResult, error)
}

// KeyConfigured reports whether key is usable for geocoding.
func KeyConfigured(key string) bool {
	return key != "" && key != PlaceholderAPIKey
}

// Option configures the Google geocoder.
type Option func(*Google)

// WithAPIKey sets the Google Geocoding API key.
func WithAPIKey(key string) Option {
	return func(g *Google) {
		g.apiKey = key
	}
}

// WithBaseURL overrides the geocoding endpoint.
func WithBaseURL(u string) Option {
	return func(g *Google) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithStatusRetry sets the policy for retrying responses whose status
// Google documents as temporary (OVER_QUERY_LIMIT, UNKNOWN_ERROR).
func WithStatusRetry(cfg resilience.RetryConfig) Option {
	return func(g *Google) {
		g.retry = cfg
	}
}

// Google looks up addresses with the Google Geocoding API.
type Google struct {
	f       fetcher.Fetcher
	baseURL string
	apiKey  string
	retry   resilience.RetryConfig
}

// NewGoogle creates a Google geocoder that issues its requests through f.
func NewGoogle(f fetcher.Fetcher, opts ...Option) *Google {
	g := &Google{
		f:       f,
		baseURL: googleGeocodeURL,
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enabled reports whether a real API key is configured.
func (g *Google) Enabled() bool {
	return KeyConfigured(g.apiKey)
}
