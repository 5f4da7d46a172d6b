// Package maltapost provides a client for the MaltaPost postcode directory API.
package maltapost

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/postcode-cli/internal/fetcher"
	"github.com/sells-group/postcode-cli/internal/model"
)

// DefaultBaseURL is the public MaltaPost address API.
const DefaultBaseURL = "https://www.maltapost.com/postcode/api/v1/Address/"

const (
	endpointTowns     = "GetAllTowns"
	endpointStreets   = "GetAllStreets"
	endpointAddresses = "GetAddresses"
)

// Client defines the postal directory operations. A level the directory does
// not know about (HTTP 404) comes back as an empty list and a nil error.
type Client interface {
	// ListTowns returns every town in directory order.
	ListTowns(ctx context.Context) ([]model.Town, error)
	// ListStreets returns the streets of a town in directory order.
	ListStreets(ctx context.Context, townID model.ID) ([]model.Street, error)
	// ListAddresses returns the addresses on a street in directory order.
	ListAddresses(ctx context.Context, streetID model.ID) ([]model.Address, error)
}

// Option configures the MaltaPost client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

type httpClient struct {
	f       fetcher.Fetcher
	baseURL string
}

// NewClient creates a MaltaPost client that issues its requests through f.
func NewClient(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{
		f:       f,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) endpoint(name string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + name
}

func (c *httpClient) ListTowns(ctx context.Context) ([]model.Town, error) {
	var towns []model.Town
	if _, err := c.f.Get(ctx, c.endpoint(endpointTowns), nil, &towns); err != nil {
		return nil, eris.Wrap(err, "maltapost: list towns")
	}
	return towns, nil
}

func (c *httpClient) ListStreets(ctx context.Context, townID model.ID) ([]model.Street, error) {
	var streets []model.Street
	params := url.Values{"townId": {townID.String()}}
	if _, err := c.f.Get(ctx, c.endpoint(endpointStreets), params, &streets); err != nil {
		return nil, eris.Wrapf(err, "maltapost: list streets for town %s", townID)
	}
	return streets, nil
}

func (c *httpClient) ListAddresses(ctx context.Context, streetID model.ID) ([]model.Address, error) {
	var addrs []model.Address
	params := url.Values{"streetId": {streetID.String()}}
	if _, err := c.f.Get(ctx, c.endpoint(endpointAddresses), params, &addrs); err != nil {
		return nil, eris.Wrapf(err, "maltapost: list addresses for street %s", streetID)
	}
	return addrs, nil
}
