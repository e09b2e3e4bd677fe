package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
)

// KafkaCandlesHandler consumes archived candle messages and lands them
// in the analytic store. Runs in deployments where ingest publishes to
// Kafka instead of writing ClickHouse directly.
type KafkaCandlesHandler struct {
	topic   string
	sink    domainrepo.Archiver
	metrics domainrepo.Metrics
}

// NewKafkaCandlesHandler creates the consumer-side candle handler.
func NewKafkaCandlesHandler(topic string, sink domainrepo.Archiver, metrics domainrepo.Metrics) *KafkaCandlesHandler {
	return &KafkaCandlesHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaCandlesHandler) Topic() string { return h.topic }

func (h *KafkaCandlesHandler) Handle(ctx context.Context, b []byte) error {
	var c models.Candle
	if err := json.Unmarshal(b, &c); err != nil {
		h.metrics.RecordPairError("archive", "consumer_unmarshal")
		return err
	}
	if c.Timestamp > 1e11 { // ms
		c.Timestamp = c.Timestamp / 1000
	}

	start := time.Now()
	err := h.sink.Archive(ctx, []models.Candle{c})
	h.metrics.RecordLatency("archive_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordPairError("archive", "consumer_store")
		return err
	}
	h.metrics.RecordRowsUpserted("candles_archive", 1)
	return nil
}
