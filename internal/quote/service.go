// Package quote computes delivery fees from the catalog, the fee rules and
// the latest stored weather observation.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
)

// ObservationReader returns the latest stored observations.
type ObservationReader interface {
	GetLatest(ctx context.Context, station string) (domain.Observation, bool, error)
	ListLatest(ctx context.Context) ([]domain.Observation, error)
}

// Service answers fee quote requests. It is safe for concurrent use.
type Service struct {
	catalog domain.Catalog
	rules   domain.RuleSet
	reader  ObservationReader
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a quote Service.
func NewService(catalog domain.Catalog, rules domain.RuleSet, reader ObservationReader, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		catalog: catalog,
		rules:   rules,
		reader:  reader,
		logger:  logger,
		metrics: metrics,
	}
}

// Quote returns the itemized fee for delivering in city with vehicleType.
// Input is validated before the store is consulted. Errors wrap one of
// domain.ErrUnknownCity, domain.ErrUnknownVehicleType,
// domain.ErrNoWeatherData or domain.ErrForbiddenVehicleType; anything else
// is a storage failure.
func (s *Service) Quote(ctx context.Context, city, vehicleType string) (domain.Quote, error) {
	q, err := s.quote(ctx, city, vehicleType)
	outcome := outcomeOf(err)
	s.metrics.Quotes.WithLabelValues(outcome).Inc()
	if outcome == "error" {
		s.logger.Error("quote failed", "city", city, "vehicle_type", vehicleType, "error", err)
	} else if err != nil {
		s.logger.Debug("quote rejected", "city", city, "vehicle_type", vehicleType, "reason", err)
	}
	return q, err
}

func (s *Service) quote(ctx context.Context, city, vehicleType string) (domain.Quote, error) {
	if err := s.catalog.Validate(city, vehicleType); err != nil {
		return domain.Quote{}, err
	}
	station, _ := s.catalog.StationFor(city)

	obs, ok, err := s.reader.GetLatest(ctx, station)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("read observation for %s: %w", station, err)
	}
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: station %s", domain.ErrNoWeatherData, station)
	}

	base, _ := s.catalog.BaseFee(city, vehicleType)
	surcharges, err := s.rules.Surcharges(vehicleType, obs)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.NewQuote(city, vehicleType, base, surcharges, obs.ObservedAt), nil
}

// ListLatest returns the latest observation of every catalog station that has
// one, sorted by station name. Stored stations outside the catalog are skipped.
func (s *Service) ListLatest(ctx context.Context) ([]domain.Observation, error) {
	all, err := s.reader.ListLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	out := make([]domain.Observation, 0, len(all))
	for _, o := range all {
		if s.catalog.HasStation(o.Station) {
			out = append(out, o)
		}
	}
	return out, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnknownCity):
		return "unknown_city"
	case errors.Is(err, domain.ErrUnknownVehicleType):
		return "unknown_vehicle"
	case errors.Is(err, domain.ErrForbiddenVehicleType):
		return "forbidden"
	case errors.Is(err, domain.ErrNoWeatherData):
		return "no_data"
	default:
		return "error"
	}
}
