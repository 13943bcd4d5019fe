package usecase

import (
	"context"
	"encoding/json"
	"time"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
	pkgkafka "Fractrade/pkg/kafka"
)

// KafkaBarsHandler consumes closed bars from the bar topic and feeds them
// into the collector, as a secondary feed next to the exchange stream.
type KafkaBarsHandler struct {
	topic     string
	collector *BarCollector
	metrics   drepo.Metrics
}

func NewKafkaBarsHandler(topic string, collector *BarCollector, metrics drepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, collector: collector, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema mirrors models.PriceBar.
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var bar models.PriceBar
	if err := json.Unmarshal(b, &bar); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if bar.Symbol == "" || bar.Timeframe == "" || bar.Timestamp.IsZero() {
		h.metrics.RecordError("consumer_invalid_bar")
		return nil // malformed payloads are dropped, not retried
	}
	h.metrics.RecordLatency("bar_ingest_e2e_seconds", time.Since(bar.Timestamp).Seconds())
	h.collector.Ingest(&bar)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
