package repository

import (
	"context"
	"strconv"

	"ChartReplay/internal/domain/models"
	pkgkafka "ChartReplay/pkg/kafka"
)

// KafkaEventSink forwards push events to a Kafka topic, keyed by
// sequence number so downstream consumers can verify ordering.
type KafkaEventSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventSink(producer *pkgkafka.Producer, topic string) *KafkaEventSink {
	if topic == "" {
		topic = "chartreplay.events"
	}
	return &KafkaEventSink{producer: producer, topic: topic}
}

func (s *KafkaEventSink) Deliver(ctx context.Context, ev *models.PushEvent) error {
	key := []byte(strconv.FormatUint(ev.Seq, 10))
	return s.producer.Publish(ctx, s.topic, key, ev)
}

func (s *KafkaEventSink) Close() error {
	return s.producer.Close()
}
