package geocode

import (
	"net/http"
	"strings"
	"time"

	"github.com/sells-group/postcode-cli/internal/fetcher"
	"github.com/sells-group/postcode-cli/internal/resilience"
)

// newTestFetcher creates a fetcher with millisecond retry delays. When
// testServerURL is set, requests to targetPrefix are redirected to it.
func newTestFetcher(testServerURL, targetPrefix string) *fetcher.HTTPFetcher {
	opts := fetcher.HTTPOptions{
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		},
	}
	if testServerURL != "" {
		opts.Transport = &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		}
	}
	return fetcher.NewHTTPFetcher(opts)
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		suffix := origURL[len(t.targetPrefix):]
		newURL := t.testServer + suffix
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(newURL)
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}
