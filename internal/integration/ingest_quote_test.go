//go:build integration

package integration_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/delivery-fee-service/internal/adapter/feed"
	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/ingest"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
	"github.com/couchcryptid/delivery-fee-service/internal/quote"
	"github.com/couchcryptid/delivery-fee-service/internal/rules"
	"github.com/couchcryptid/delivery-fee-service/internal/store"
)

// TestIngestThenQuote runs one ingestion cycle from a served feed into
// Postgres behind the LRU, then quotes against the stored observations.
func TestIngestThenQuote(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, feedFixture)
	}))
	t.Cleanup(feedSrv.Close)

	pg, err := store.OpenPostgres(ctx, startPostgres(ctx, t))
	require.NoError(t, err)
	observations := store.NewCached(pg, 16)
	t.Cleanup(func() { _ = observations.Close() })

	catalog, ruleSet, err := rules.Default()
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	client := feed.NewClient(feedSrv.URL, 10*time.Second, catalog.HasStation, time.UTC, discardLogger())
	schedule, err := ingest.ParseSchedule("15 * * * *")
	require.NoError(t, err)
	scheduler := ingest.New(client, observations, schedule, clockwork.NewFakeClock(), discardLogger(), metrics)

	require.Error(t, scheduler.CheckReadiness(ctx))
	require.NoError(t, scheduler.RunCycle(ctx))
	require.NoError(t, scheduler.CheckReadiness(ctx))

	stored, err := observations.ListLatest(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 3, "only catalog stations are stored")

	svc := quote.NewService(catalog, ruleSet, observations, discardLogger(), metrics)

	tests := []struct {
		city, vehicle string
		want          string
	}{
		{"Tallinn", "bike", "4.5"},
		{"Tartu", "scooter", "3.5"},
		{"Pärnu", "bike", "3"},
		{"Pärnu", "car", "3"},
	}
	for _, tt := range tests {
		q, err := svc.Quote(ctx, tt.city, tt.vehicle)
		require.NoError(t, err, "%s/%s", tt.city, tt.vehicle)
		assert.Equal(t, tt.want, q.TotalFee.String(), "%s/%s", tt.city, tt.vehicle)
		assert.Equal(t, int64(1709215503), q.ObservedAt.Unix())
	}

	_, err = svc.Quote(ctx, "Riga", "car")
	assert.ErrorIs(t, err, domain.ErrUnknownCity)
}
