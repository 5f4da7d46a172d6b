// Package aggregate walks the town → street → address hierarchy of the postal
// directory and turns every address into a geocoded record, in directory order.
package aggregate

import (
	"context"
	"errors"
	"iter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/postcode-cli/internal/model"
)

// Directory lists the levels of the hierarchy. A level that does not exist
// upstream is an empty slice with a nil error.
type Directory interface {
	ListTowns(ctx context.Context) ([]model.Town, error)
	ListStreets(ctx context.Context, townID model.ID) ([]model.Street, error)
	ListAddresses(ctx context.Context, streetID model.ID) ([]model.Address, error)
}

// Resolver turns a formatted address into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, address string) (model.GeocodeResult, error)
}

// Summary counts what a walk visited.
type Summary struct {
	Towns     int
	Streets   int
	Records   int
	Geocoded  int
	EmptyTown int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithReporter sets the progress reporter. The default reports nothing.
func WithReporter(r Reporter) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.reporter = r
		}
	}
}

// Aggregator performs the depth-first traversal.
type Aggregator struct {
	dir      Directory
	geo      Resolver
	reporter Reporter
}

// New creates an Aggregator reading from dir and geocoding through geo.
func New(dir Directory, geo Resolver, opts ...Option) *Aggregator {
	a := &Aggregator{
		dir:      dir,
		geo:      geo,
		reporter: NopReporter{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// errStop is returned by an emit callback to end a walk early without error.
var errStop = errors.New("aggregate: stop")

// Walk visits every address in town, street, address order and calls emit
// with its record. Upstream reads happen strictly one at a time. The first
// error from the directory, the resolver or emit aborts the walk.
func (a *Aggregator) Walk(ctx context.Context, emit func(model.Record) error) (Summary, error) {
	var sum Summary

	towns, err := a.dir.ListTowns(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "aggregate: list towns")
	}
	a.reporter.Start(len(towns))

	for i, town := range towns {
		a.reporter.Town(i+1, len(towns), town)
		sum.Towns++

		streets, err := a.dir.ListStreets(ctx, town.ID)
		if err != nil {
			return sum, eris.Wrapf(err, "aggregate: town %s (%s)", town.ID, town.Name)
		}
		if len(streets) == 0 {
			sum.EmptyTown++
		}

		for j, street := range streets {
			a.reporter.Street(j+1, len(streets), street)
			sum.Streets++

			addrs, err := a.dir.ListAddresses(ctx, street.ID)
			if err != nil {
				return sum, eris.Wrapf(err, "aggregate: street %s (%s)", street.ID, street.Name)
			}

			for _, addr := range addrs {
				geo, err := a.geo.Resolve(ctx, addr.GeocodeKey())
				if err != nil {
					return sum, eris.Wrapf(err, "aggregate: geocode address %s", addr.ID)
				}
				if geo.Found() {
					sum.Geocoded++
				}
				if err := emit(model.NewRecord(addr, geo)); err != nil {
					return sum, err
				}
				sum.Records++
			}
		}
	}

	a.reporter.Finish()
	zap.L().Info("aggregation walk finished",
		zap.Int("towns", sum.Towns),
		zap.Int("empty_towns", sum.EmptyTown),
		zap.Int("streets", sum.Streets),
		zap.Int("records", sum.Records),
		zap.Int("geocoded", sum.Geocoded),
	)
	return sum, nil
}

// Records returns the walk as a lazy sequence. Iteration stops after the
// first error, which is yielded with a zero record. Breaking out of the loop
// stops the walk before any further upstream reads.
func (a *Aggregator) Records(ctx context.Context) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		_, err := a.Walk(ctx, func(r model.Record) error {
			if !yield(r, nil) {
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(model.Record{}, err)
		}
	}
}

// Aggregate runs the full walk and returns every record in order. On error
// no records are returned.
func (a *Aggregator) Aggregate(ctx context.Context) ([]model.Record, Summary, error) {
	var records []model.Record
	sum, err := a.Walk(ctx, func(r model.Record) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, sum, err
	}
	if records == nil {
		records = []model.Record{}
	}
	return records, sum, nil
}
