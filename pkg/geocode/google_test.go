package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/postcode-cli/internal/fetcher"
	"github.com/sells-group/postcode-cli/internal/resilience"
)

func fastStatusRetry(attempts int) Option {
	return WithStatusRetry(resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})
}

func TestGoogleLookup_FirstResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1, Triq il-Kbira, Attard, Malta", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"results": [
				{"geometry": {"location": {"lat": 35.8897, "lng": 14.4425}, "location_type": "ROOFTOP"}},
				{"geometry": {"location": {"lat": 1, "lng": 2}}}
			]
		}`)
	}))
	defer srv.Close()

	g := NewGoogle(newTestFetcher(srv.URL, googleGeocodeURL), WithAPIKey("test-key"))

	result, err := g.Lookup(context.Background(), "1, Triq il-Kbira, Attard, Malta")
	require.NoError(t, err)
	require.True(t, result.Found())
	assert.InDelta(t, 35.8897, *result.Latitude, 0.0001)
	assert.InDelta(t, 14.4425, *result.Longitude, 0.0001)
}

func TestGoogleLookup_NoResults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero results", `{"status": "ZERO_RESULTS", "results": []}`},
		{"request denied", `{"status": "REQUEST_DENIED", "error_message": "bad key", "results": []}`},
		{"ok but empty", `{"status": "OK", "results": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := NewGoogle(newTestFetcher("", ""), WithAPIKey("k"), WithBaseURL(srv.URL))
			result, err := g.Lookup(context.Background(), "Nowhere")
			require.NoError(t, err)
			assert.False(t, result.Found())
			assert.Nil(t, result.Latitude)
			assert.Nil(t, result.Longitude)
		})
	}
}

func TestGoogleLookup_NotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGoogle(newTestFetcher("", ""), WithAPIKey("k"), WithBaseURL(srv.URL))
	result, err := g.Lookup(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, result.Found())
}

func TestGoogleLookup_FetchFailureIsError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGoogle(newTestFetcher("", ""), WithAPIKey("k"), WithBaseURL(srv.URL))
	_, err := g.Lookup(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, fetcher.IsRetriesExhausted(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGoogleLookup_TemporaryStatusRetried(t *testing.T) {
	for _, status := range []string{"UNKNOWN_ERROR", "OVER_QUERY_LIMIT"} {
		t.Run(status, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) == 1 {
					_, _ = io.WriteString(w, `{"status": "`+status+`", "results": []}`)
					return
				}
				_, _ = io.WriteString(w, `{"status": "OK", "results": [{"geometry": {"location": {"lat": 35.9, "lng": 14.5}}}]}`)
			}))
			defer srv.Close()

			g := NewGoogle(newTestFetcher("", ""), WithAPIKey("k"), WithBaseURL(srv.URL), fastStatusRetry(3))
			result, err := g.Lookup(context.Background(), "x")
			require.NoError(t, err)
			assert.True(t, result.Found())
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestGoogleLookup_TemporaryStatusExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"status": "OVER_QUERY_LIMIT", "error_message": "quota", "results": []}`)
	}))
	defer srv.Close()

	g := NewGoogle(newTestFetcher("", ""), WithAPIKey("k"), WithBaseURL(srv.URL), fastStatusRetry(3))
	_, err := g.Lookup(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, resilience.IsTransient(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "OVER_QUERY_LIMIT", se.Status)
	assert.Equal(t, "quota", se.Message)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
}

func TestCache_TemporaryStatusNotMemoized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"status": "UNKNOWN_ERROR", "results": []}`)
	}))
	defer srv.Close()

	c := NewCache(NewGoogle(newTestFetcher("", ""), WithAPIKey("k"), WithBaseURL(srv.URL), fastStatusRetry(1)))
	_, err := c.Resolve(context.Background(), "x")
	require.Error(t, err)
	_, err = c.Resolve(context.Background(), "x")
	require.Error(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestGoogleLookup_Disabled(t *testing.T) {
	g := NewGoogle(newTestFetcher("", ""))
	_, err := g.Lookup(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}

func TestGoogleEnabled(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{PlaceholderAPIKey, false},
		{"AIza-real-key", true},
	}
	for _, tt := range tests {
		g := NewGoogle(nil, WithAPIKey(tt.key))
		assert.Equal(t, tt.want, g.Enabled(), "key %q", tt.key)
		assert.Equal(t, tt.want, KeyConfigured(tt.key), "key %q", tt.key)
	}
}

func TestWithBaseURL_EmptyKeepsDefault(t *testing.T) {
	g := NewGoogle(nil, WithBaseURL(""))
	assert.Equal(t, googleGeocodeURL, g.baseURL)
}
