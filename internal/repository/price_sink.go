package repository

import (
	"context"

	"SupraView/internal/domain/models"
	"SupraView/pkg/kafka"
)

// KafkaPriceSink publishes emitted price updates to a Kafka topic, keyed by
// pair so per-pair ordering survives partitioning.
type KafkaPriceSink struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaPriceSink creates a Kafka-backed price sink.
func NewKafkaPriceSink(producer *kafka.Producer, topic string) *KafkaPriceSink {
	return &KafkaPriceSink{
		producer: producer,
		topic:    topic,
	}
}

// Publish sends one price update.
func (s *KafkaPriceSink) Publish(ctx context.Context, u *models.PriceUpdate) error {
	return s.producer.Publish(ctx, s.topic, []byte(u.CatalogInfo.Pair), u)
}

// Close closes the underlying producer.
func (s *KafkaPriceSink) Close() error {
	return s.producer.Close()
}
