//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/delivery-fee-service/internal/adapter/kafka"
	"github.com/couchcryptid/delivery-fee-service/internal/config"
	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

const testObservationsTopic = "test-observations"

// publishedMessage holds a deserialized message read from the observations topic.
type publishedMessage struct {
	Observation domain.Observation
	Key         string
	Headers     map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from observations topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var obs domain.Observation
	require.NoError(t, json.Unmarshal(msg.Value, &obs), "unmarshal observation")

	return publishedMessage{Observation: obs, Key: string(msg.Key), Headers: headers}
}

func TestKafkaWriter_PublishesObservations(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testObservationsTopic)

	cfg := &config.Config{
		KafkaBrokers:           []string{broker},
		KafkaObservationsTopic: testObservationsTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	at := time.Date(2024, 2, 29, 14, 5, 3, 0, time.UTC)
	obs := []domain.Observation{
		{Station: "Tallinn-Harku", WMOCode: "26038", AirTemperature: -2.1, WindSpeed: 4.7, Phenomenon: "Light snow shower", ObservedAt: at},
		{Station: "Pärnu", WMOCode: "41803", AirTemperature: 1.3, WindSpeed: 11.2, Phenomenon: "Moderate rain", ObservedAt: at},
	}
	require.NoError(t, writer.Publish(ctx, "cycle-1", obs))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testObservationsTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := map[string]publishedMessage{}
	for len(received) < len(obs) {
		pm := readPublished(ctx, t, consumer)
		received[pm.Key] = pm
	}

	for _, want := range obs {
		pm, ok := received[want.Station]
		require.True(t, ok, "missing message for %s", want.Station)
		assert.Equal(t, want.Station, pm.Headers["station"])
		assert.Equal(t, "cycle-1", pm.Headers["cycle_id"])
		_, err := time.Parse(time.RFC3339, pm.Headers["observed_at"])
		assert.NoError(t, err, "observed_at should be valid RFC3339")

		assert.Equal(t, want.WMOCode, pm.Observation.WMOCode)
		assert.InDelta(t, want.AirTemperature, pm.Observation.AirTemperature, 1e-9)
		assert.InDelta(t, want.WindSpeed, pm.Observation.WindSpeed, 1e-9)
		assert.Equal(t, want.Phenomenon, pm.Observation.Phenomenon)
		assert.True(t, at.Equal(pm.Observation.ObservedAt))
	}
}
