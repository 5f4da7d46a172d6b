package geocode

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/postcode-cli/internal/model"
)

// Stats summarizes cache activity for a run.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

// Cache memoizes geocode lookups by formatted address for the life of the
// process. Empty results are stored too, so an address is looked up at most
// once. Entries are never evicted.
type Cache struct {
	lookup Lookuper

	mu      sync.Mutex
	entries map[string]model.GeocodeResult
	hits    int
	misses  int

	group singleflight.Group
}

// NewCache creates a cache in front of lookup.
func NewCache(lookup Lookuper) *Cache {
	return &Cache{
		lookup:  lookup,
		entries: make(map[string]model.GeocodeResult),
	}
}

// Enabled reports whether the underlying lookup is usable.
func (c *Cache) Enabled() bool {
	return c.lookup.Enabled()
}

// Resolve returns the coordinates for address. When geocoding is disabled it
// returns an empty result without touching the cache or the network. On a
// miss the upstream result is stored before it is returned. Concurrent
// callers for the same address share a single upstream call.
func (c *Cache) Resolve(ctx context.Context, address string) (model.GeocodeResult, error) {
	if !c.lookup.Enabled() {
		return model.GeocodeResult{}, nil
	}

	if r, ok := c.get(address); ok {
		return r, nil
	}

	v, err, _ := c.group.Do(address, func() (any, error) {
		if r, ok := c.get(address); ok {
			return r, nil
		}

		r, err := c.lookup.Lookup(ctx, address)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[address] = r
		c.misses++
		c.mu.Unlock()

		zap.L().Debug("geocode cache store",
			zap.String("address", address),
			zap.Bool("found", r.Found()),
		)
		return r, nil
	})
	if err != nil {
		return model.GeocodeResult{}, err
	}
	return v.(model.GeocodeResult), nil
}

func (c *Cache) get(address string) (model.GeocodeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[address]
	if ok {
		c.hits++
	}
	return r, ok
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}
