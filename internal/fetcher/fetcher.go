// Package fetcher performs resilient JSON reads against upstream HTTP APIs.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Fetcher defines the interface for reading remote JSON resources.
type Fetcher interface {
	// Get performs a GET of endpoint with the given query parameters and
	// decodes the JSON body into target. A 404 leaves target untouched and
	// yields an Empty outcome with a nil error. A non-nil error means the
	// read failed for good (Fatal).
	Get(ctx context.Context, endpoint string, params url.Values, target any) (Outcome, error)
}

// Kind tags the result of a fetch.
type Kind int

const (
	// Found means the resource was read and decoded.
	Found Kind = iota
	// Empty means the resource does not exist (HTTP 404).
	Empty
	// Transient is a retryable failure of a single attempt.
	Transient
	// Fatal means the read was abandoned.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case Empty:
		return "empty"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome describes how a fetch ended.
type Outcome struct {
	Kind       Kind
	StatusCode int
	Attempts   int
}

// RetriesExhaustedError is returned when every attempt of a fetch failed
// with a retryable error.
type RetriesExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("fetcher: %s: giving up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

// IsRetriesExhausted reports whether err (or any error in its chain) is a
// RetriesExhaustedError.
func IsRetriesExhausted(err error) bool {
	var re *RetriesExhaustedError
	return errors.As(err, &re)
}
