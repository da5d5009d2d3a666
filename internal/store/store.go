// Package store keeps the most recent weather observation per station.
//
// Every backend applies last-write-wins per station: the latest record is
// whatever was written last, regardless of its observation time. Writes for
// one station are atomic and readers never observe a partial record.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

// Store is the observation cache contract shared by all backends.
type Store interface {
	// Put records obs as the latest observation of its station.
	Put(ctx context.Context, obs domain.Observation) error
	// PutAll writes each observation independently. Failures are joined and
	// returned; stations written before a failure stay written. A cancelled
	// context stops the loop between stations.
	PutAll(ctx context.Context, obs []domain.Observation) error
	// GetLatest returns the latest observation for station. A station with
	// no data yields ok == false and a nil error.
	GetLatest(ctx context.Context, station string) (domain.Observation, bool, error)
	// ListLatest returns the latest observation of every station, sorted by
	// station name.
	ListLatest(ctx context.Context) ([]domain.Observation, error)
	Close() error
}

func putEach(ctx context.Context, obs []domain.Observation, put func(context.Context, domain.Observation) error) error {
	var errs []error
	for _, o := range obs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := put(ctx, o); err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", o.Station, err))
		}
	}
	return errors.Join(errs...)
}
