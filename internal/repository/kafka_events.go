package repository

import (
	"context"

	"Fractrade/internal/domain/models"
	pkgkafka "Fractrade/pkg/kafka"
)

// KafkaEventPublisher implements repository.EventPublisher over the shared
// Kafka producer. Messages are keyed by symbol so per-symbol ordering holds
// across partitions.
type KafkaEventPublisher struct {
	producer     *pkgkafka.Producer
	signalsTopic string
	eventsTopic  string
}

// NewKafkaEventPublisher creates an event publisher for the given topics.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, signalsTopic, eventsTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer:     producer,
		signalsTopic: signalsTopic,
		eventsTopic:  eventsTopic,
	}
}

func (p *KafkaEventPublisher) PublishSignal(ctx context.Context, sig *models.Signal) error {
	return p.producer.Publish(ctx, p.signalsTopic, []byte(sig.Symbol), sig)
}

func (p *KafkaEventPublisher) PublishTradeEvent(ctx context.Context, ev *models.TradeEvent) error {
	return p.producer.Publish(ctx, p.eventsTopic, []byte(ev.Symbol), ev)
}

func (p *KafkaEventPublisher) Close() error {
	return nil // producer lifetime is managed by the app
}

// NopEventPublisher is used when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishSignal(context.Context, *models.Signal) error      { return nil }
func (NopEventPublisher) PublishTradeEvent(context.Context, *models.TradeEvent) error { return nil }
func (NopEventPublisher) Close() error                                             { return nil }
