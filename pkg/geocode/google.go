package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/postcode-cli/internal/fetcher"
	"github.com/sells-group/postcode-cli/internal/model"
	"github.com/sells-group/postcode-cli/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// retryableStatuses are statuses Google documents as likely to succeed on a
// later request.
var retryableStatuses = map[string]bool{
	"OVER_QUERY_LIMIT": true,
	"UNKNOWN_ERROR":    true,
}

// StatusError reports a Google response whose status was temporary on every
// attempt.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("geocode: google status %s", e.Status)
	}
	return fmt.Sprintf("geocode: google status %s: %s", e.Status, e.Message)
}

func isRetryableStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Lookup geocodes a single formatted address and returns the coordinates of
// the first candidate. Zero results, a permanent non-OK status or a 404 give
// an empty result. OVER_QUERY_LIMIT and UNKNOWN_ERROR are retried under the
// status retry policy and become an error once it is exhausted, as does a
// failed fetch.
func (g *Google) Lookup(ctx context.Context, address string) (model.GeocodeResult, error) {
	if !g.Enabled() {
		return model.GeocodeResult{}, eris.New("geocode: google api key not configured")
	}

	retry := g.retry
	retry.ShouldRetry = isRetryableStatus
	retry.OnRetry = resilience.RetryLogger(retry.MaxAttempts, zap.String("address", address))

	result, attempts, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (model.GeocodeResult, error) {
		return g.lookupOnce(ctx, address)
	})
	if err != nil && isRetryableStatus(err) {
		return model.GeocodeResult{}, eris.Wrapf(err, "geocode: google lookup %q gave up after %d attempts", address, attempts)
	}
	return result, err
}

func (g *Google) lookupOnce(ctx context.Context, address string) (model.GeocodeResult, error) {
	params := url.Values{
		"address": {address},
		"key":     {g.apiKey},
	}

	var resp googleGeocodeResponse
	out, err := g.f.Get(ctx, g.baseURL, params, &resp)
	if err != nil {
		return model.GeocodeResult{}, eris.Wrapf(err, "geocode: google lookup %q", address)
	}
	if out.Kind == fetcher.Empty {
		return model.GeocodeResult{}, nil
	}

	switch {
	case resp.Status == "OK":
	case resp.Status == "ZERO_RESULTS":
		zap.L().Debug("geocode: no results", zap.String("address", address))
		return model.GeocodeResult{}, nil
	case retryableStatuses[resp.Status]:
		return model.GeocodeResult{}, resilience.NewTransientError(
			&StatusError{Status: resp.Status, Message: resp.ErrorMessage}, 0)
	default:
		zap.L().Warn("geocode: google returned non-OK status",
			zap.String("address", address),
			zap.String("status", resp.Status),
			zap.String("error_message", resp.ErrorMessage),
		)
		return model.GeocodeResult{}, nil
	}
	if len(resp.Results) == 0 {
		return model.GeocodeResult{}, nil
	}

	loc := resp.Results[0].Geometry.Location
	return model.NewGeocodeResult(loc.Lat, loc.Lng), nil
}
