package quote_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
	"github.com/couchcryptid/delivery-fee-service/internal/quote"
	"github.com/couchcryptid/delivery-fee-service/internal/rules"
	"github.com/couchcryptid/delivery-fee-service/internal/store"
)

// --- mocks ---

type countingReader struct {
	inner quote.ObservationReader
	calls int
	err   error
}

func (r *countingReader) GetLatest(ctx context.Context, station string) (domain.Observation, bool, error) {
	r.calls++
	if r.err != nil {
		return domain.Observation{}, false, r.err
	}
	return r.inner.GetLatest(ctx, station)
}

func (r *countingReader) ListLatest(ctx context.Context) ([]domain.Observation, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.inner.ListLatest(ctx)
}

var observedAt = time.Date(2024, 2, 29, 16, 15, 0, 0, time.UTC)

func newService(t *testing.T, obs ...domain.Observation) (*quote.Service, *countingReader, *observability.Metrics) {
	t.Helper()
	catalog, rs, err := rules.Default()
	require.NoError(t, err)

	mem := store.NewMemory()
	require.NoError(t, mem.PutAll(context.Background(), obs))
	reader := &countingReader{inner: mem}
	metrics := observability.NewMetricsForTesting()
	return quote.NewService(catalog, rs, reader, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics), reader, metrics
}

func tallinn(temp, wind float64, phenomenon string) domain.Observation {
	return domain.Observation{
		Station:        "Tallinn-Harku",
		WMOCode:        "26038",
		AirTemperature: temp,
		WindSpeed:      wind,
		Phenomenon:     phenomenon,
		ObservedAt:     observedAt,
	}
}

// --- tests ---

func TestQuote_BikeInFrost(t *testing.T) {
	svc, _, metrics := newService(t, tallinn(-12, 5, "Clear"))

	q, err := svc.Quote(context.Background(), "Tallinn", "bike")
	require.NoError(t, err)

	assert.Equal(t, "Tallinn", q.City)
	assert.Equal(t, "bike", q.VehicleType)
	assert.Equal(t, "3", q.RegionalBaseFee.String())
	assert.Equal(t, "1", q.AirTemperatureExtraFee.String())
	assert.Equal(t, "0", q.WindSpeedExtraFee.String())
	assert.Equal(t, "0", q.WeatherPhenomenonExtraFee.String())
	assert.Equal(t, "4", q.TotalFee.String())
	assert.True(t, observedAt.Equal(q.ObservedAt))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Quotes.WithLabelValues("ok")))
}

func TestQuote_WindForbidsBike(t *testing.T) {
	svc, _, metrics := newService(t, tallinn(5, 25, "Clear"))

	_, err := svc.Quote(context.Background(), "Tallinn", "bike")
	require.ErrorIs(t, err, domain.ErrForbiddenVehicleType)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Quotes.WithLabelValues("forbidden")))
}

func TestQuote_WindDoesNotAffectCar(t *testing.T) {
	svc, _, _ := newService(t, tallinn(5, 25, "Clear"))

	q, err := svc.Quote(context.Background(), "Tallinn", "car")
	require.NoError(t, err)
	assert.Equal(t, "4", q.TotalFee.String())
}

func TestQuote_SnowShower(t *testing.T) {
	svc, _, _ := newService(t, tallinn(5, 5, "Moderate snow shower"))

	q, err := svc.Quote(context.Background(), "Tallinn", "bike")
	require.NoError(t, err)
	assert.Equal(t, "1", q.WeatherPhenomenonExtraFee.String())
	assert.Equal(t, "4", q.TotalFee.String())
}

func TestQuote_ForbiddenPhenomenon(t *testing.T) {
	svc, _, _ := newService(t, tallinn(5, 5, "Glaze"))

	_, err := svc.Quote(context.Background(), "Tallinn", "scooter")
	require.ErrorIs(t, err, domain.ErrForbiddenVehicleType)
}

func TestQuote_AllSurcharges(t *testing.T) {
	svc, _, _ := newService(t, tallinn(-2.1, 15, "Light sleet"))

	q, err := svc.Quote(context.Background(), "Tallinn", "bike")
	require.NoError(t, err)
	assert.Equal(t, "0.5", q.AirTemperatureExtraFee.String())
	assert.Equal(t, "0.5", q.WindSpeedExtraFee.String())
	assert.Equal(t, "1", q.WeatherPhenomenonExtraFee.String())
	assert.Equal(t, "5", q.TotalFee.String())
	assert.True(t, q.TotalFee.Equal(q.RegionalBaseFee.Add(q.AirTemperatureExtraFee).Add(q.WindSpeedExtraFee).Add(q.WeatherPhenomenonExtraFee)))
}

func TestQuote_UnknownCitySkipsLookup(t *testing.T) {
	svc, reader, metrics := newService(t, tallinn(5, 5, "Clear"))

	_, err := svc.Quote(context.Background(), "Riga", "bike")
	require.ErrorIs(t, err, domain.ErrUnknownCity)
	assert.Equal(t, 0, reader.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Quotes.WithLabelValues("unknown_city")))
}

func TestQuote_UnknownVehicleSkipsLookup(t *testing.T) {
	svc, reader, _ := newService(t, tallinn(5, 5, "Clear"))

	_, err := svc.Quote(context.Background(), "Tallinn", "truck")
	require.ErrorIs(t, err, domain.ErrUnknownVehicleType)
	assert.Equal(t, 0, reader.calls)
}

func TestQuote_NoWeatherData(t *testing.T) {
	svc, reader, metrics := newService(t, tallinn(5, 5, "Clear"))

	_, err := svc.Quote(context.Background(), "Tartu", "car")
	require.ErrorIs(t, err, domain.ErrNoWeatherData)
	assert.Equal(t, 1, reader.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Quotes.WithLabelValues("no_data")))
}

func TestQuote_StorageFailure(t *testing.T) {
	svc, reader, metrics := newService(t)
	reader.err = errors.New("connection refused")

	_, err := svc.Quote(context.Background(), "Pärnu", "car")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoWeatherData)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Quotes.WithLabelValues("error")))
}

func TestQuote_UsesLatestObservation(t *testing.T) {
	svc, _, _ := newService(t, tallinn(5, 5, "Clear"), tallinn(-12, 5, "Clear"))

	q, err := svc.Quote(context.Background(), "Tallinn", "scooter")
	require.NoError(t, err)
	assert.Equal(t, "4.5", q.TotalFee.String())
}

func TestListLatest_OnlyCatalogStations(t *testing.T) {
	parnu := tallinn(1, 2, "Light rain")
	parnu.Station = "Pärnu"
	retired := tallinn(3, 4, "Clear")
	retired.Station = "Virtsu"
	svc, _, _ := newService(t, tallinn(5, 5, "Clear"), retired, parnu)

	got, err := svc.ListLatest(context.Background())
	require.NoError(t, err)

	stations := make([]string, 0, len(got))
	for _, o := range got {
		stations = append(stations, o.Station)
	}
	assert.Equal(t, []string{"Pärnu", "Tallinn-Harku"}, stations)
}

func TestListLatest_StorageFailure(t *testing.T) {
	svc, reader, _ := newService(t)
	reader.err = errors.New("connection refused")

	_, err := svc.ListLatest(context.Background())
	require.ErrorContains(t, err, "connection refused")
}
