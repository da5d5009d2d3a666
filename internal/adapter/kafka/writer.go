// Package kafka publishes stored observations to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/delivery-fee-service/internal/config"
	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

// Writer produces observation messages to a Kafka topic.
// It implements ingest.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured observations topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaObservationsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the observations of one ingestion cycle and writes them
// in a single WriteMessages call. Messages are keyed by station so every
// station stays on one partition.
func (w *Writer) Publish(ctx context.Context, cycleID string, obs []domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(obs))
	for i := range obs {
		msg, err := serializeToMessage(cycleID, obs[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write observations: %w", err)
	}
	w.logger.Debug("observations published", "cycle_id", cycleID, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Observation into a Kafka message.
func serializeToMessage(cycleID string, obs domain.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(obs.Station),
		Value: data,
		Time:  obs.ObservedAt,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(obs.Station)},
			{Key: "observed_at", Value: []byte(obs.ObservedAt.Format(time.RFC3339))},
			{Key: "cycle_id", Value: []byte(cycleID)},
		},
	}, nil
}
