package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/postcode-cli/internal/resilience"
)

// ErrNonPointerTarget is returned when Get is called with a target that
// cannot be decoded into.
var ErrNonPointerTarget = errors.New("fetcher: target must be a non-nil pointer")

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
	// RequestsPerSecond limits attempts per upstream host. Zero means unlimited.
	RequestsPerSecond float64
	// Transport overrides the default HTTP transport.
	Transport http.RoundTripper
}

// HTTPFetcher implements Fetcher using net/http with retry and rate limiting.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "postcode-cli/1.0"
	}
	switch {
	case opts.Retry.IsZero():
		opts.Retry = resilience.DefaultRetryConfig()
	case opts.Retry.MaxAttempts <= 0:
		opts.Retry.MaxAttempts = resilience.DefaultRetryConfig().MaxAttempts
	}
	var transport http.RoundTripper = &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if opts.Transport != nil {
		transport = opts.Transport
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if f.opts.RequestsPerSecond > 0 {
		burst := int(f.opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(f.opts.RequestsPerSecond), burst)
	}
	f.limiters[host] = lim
	return lim
}

// Get performs a GET of endpoint with params and decodes the JSON response
// into target, retrying transient failures according to the retry policy.
func (f *HTTPFetcher) Get(ctx context.Context, endpoint string, params url.Values, target any) (Outcome, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return Outcome{Kind: Fatal}, ErrNonPointerTarget
	}

	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return Outcome{Kind: Fatal}, eris.Wrap(err, "fetcher: parse url")
	}
	if len(params) > 0 {
		reqURL.RawQuery = params.Encode()
	}

	fields := []zap.Field{
		zap.String("url", endpoint),
		zap.String("params", redact(params)),
	}

	retry := f.opts.Retry
	retry.ShouldRetry = resilience.IsTransient
	retry.OnRetry = resilience.RetryLogger(retry.MaxAttempts, fields...)

	outcome, attempts, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (Outcome, error) {
		return f.attempt(ctx, reqURL, target, fields)
	})
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Kind: Fatal, Attempts: attempts}, eris.Wrap(err, "fetcher: cancelled")
		}
		if !resilience.IsTransient(err) {
			return Outcome{Kind: Fatal, Attempts: attempts}, err
		}
		zap.L().Error("request failed, giving up",
			append(fields,
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", retry.MaxAttempts),
				zap.Error(err),
			)...,
		)
		return Outcome{Kind: Fatal, StatusCode: resilience.StatusCode(err), Attempts: attempts},
			&RetriesExhaustedError{URL: endpoint, Attempts: attempts, Err: err}
	}

	outcome.Attempts = attempts
	return outcome, nil
}

// attempt performs a single request. Retryable failures are returned as
// resilience.TransientError.
func (f *HTTPFetcher) attempt(ctx context.Context, reqURL *url.URL, target any, fields []zap.Field) (Outcome, error) {
	if err := f.limiterFor(reqURL.Host).Wait(ctx); err != nil {
		return Outcome{Kind: Fatal}, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Outcome{Kind: Fatal}, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Kind: Fatal}, eris.Wrap(err, "fetcher: request")
		}
		return Outcome{Kind: Transient}, resilience.NewTransientError(eris.Wrap(err, "fetcher: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		zap.L().Warn("resource not found", append(fields, zap.Int("status", resp.StatusCode))...)
		return Outcome{Kind: Empty, StatusCode: resp.StatusCode}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Outcome{Kind: Transient, StatusCode: resp.StatusCode},
			resilience.NewTransientError(eris.Errorf("fetcher: http %d from %s", resp.StatusCode, reqURL.Host+reqURL.Path), resp.StatusCode)
	}

	if err := decodeInto(resp.Body, target); err != nil {
		return Outcome{Kind: Transient, StatusCode: resp.StatusCode}, resilience.NewTransientError(err, resp.StatusCode)
	}

	return Outcome{Kind: Found, StatusCode: resp.StatusCode}, nil
}

// sensitiveParams are masked before query parameters are logged.
var sensitiveParams = []string{"key", "api_key", "apikey", "token"}

func redact(params url.Values) string {
	if len(params) == 0 {
		return ""
	}
	masked := make(url.Values, len(params))
	for k, v := range params {
		masked[k] = v
		for _, s := range sensitiveParams {
			if strings.EqualFold(k, s) {
				masked[k] = []string{"REDACTED"}
				break
			}
		}
	}
	return masked.Encode()
}
