package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TrendPulse/internal/domain/models"
	pkgkafka "TrendPulse/pkg/kafka"
)

// ClickHouseArchive writes ingested candles to a ClickHouse table for
// long-horizon analytics. Best-effort: the pipeline never depends on it.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates a ClickHouse candle archive.
func NewClickHouseArchive(db *sql.DB, table string) *ClickHouseArchive {
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) Archive(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	// Chunked multi-row VALUES insert to keep round-trips down.
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, c := range candles[start:end] {
			if c.InstrumentID == 0 || c.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				c.InstrumentID,
				c.Timeframe,
				time.Unix(c.Timestamp, 0),
				c.Open,
				c.High,
				c.Low,
				c.Close,
				c.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (instrument_id, timeframe, ts, open, high, low, close, volume) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("archive insert: %w", err)
		}
	}
	return nil
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // Managed by pkg
}

// KafkaArchive publishes ingested candles to a Kafka topic, keyed by
// instrument so per-instrument ordering is preserved.
type KafkaArchive struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaArchive creates a Kafka candle archive.
func NewKafkaArchive(producer *pkgkafka.Producer, topic string) *KafkaArchive {
	return &KafkaArchive{producer: producer, topic: topic}
}

func (a *KafkaArchive) Archive(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(candles))
	for i, c := range candles {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(fmt.Sprintf("%d:%s", c.InstrumentID, c.Timeframe)),
			Value: c,
		}
	}
	return a.producer.PublishBatch(ctx, a.topic, msgs)
}

func (a *KafkaArchive) Close() error {
	if a.producer != nil {
		return a.producer.Close()
	}
	return nil
}
