package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/service/session"
)

// Monday 2026-03-02 is a regular NSE trading day.
func barTS(hour, min int) int64 {
	return time.Date(2026, 3, 2, hour, min, 0, 0, session.IST).Unix()
}

func ingestFixture(retention int) (*Ingest, *fakeMarket, *memCandles, *memCheckpoints) {
	market := newFakeMarket()
	candles := newMemCandles()
	checkpoints := newMemCheckpoints()
	instruments := &memInstruments{instruments: []models.Instrument{
		{ID: 1, Symbol: "RELIANCE", SecurityID: "2885", ExchangeSegment: "NSE_EQ", InstrumentType: "EQUITY", Active: true},
	}}
	u := NewIngest(market, candles, checkpoints, instruments, nil, session.NewCalendar(session.Config{}), noopMetrics{}, testLogger(), IngestConfig{
		Timeframes:      []string{"5"},
		CandleRetention: retention,
		BatchSize:       5,
		BatchPause:      0,
	})
	u.now = func() time.Time { return time.Date(2026, 3, 2, 16, 0, 0, 0, session.IST) }
	return u, market, candles, checkpoints
}

func mkCandle(id int64, tf string, ts int64, close float64) models.Candle {
	return models.Candle{InstrumentID: id, Timeframe: tf, Timestamp: ts, Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func TestIngestFiltersSessionWindow(t *testing.T) {
	u, market, candles, checkpoints := ingestFixture(210)
	market.candles[candleKey{1, "5"}] = []models.Candle{
		mkCandle(1, "5", barTS(9, 10), 99),  // pre-open
		mkCandle(1, "5", barTS(9, 15), 100),
		mkCandle(1, "5", barTS(9, 20), 101),
		mkCandle(1, "5", barTS(15, 35), 102), // post-close
	}

	outcome := u.Run(context.Background())
	if outcome.Failed() {
		t.Fatalf("outcome errors: %+v", outcome.Errors)
	}
	if outcome.Upserted != 2 {
		t.Errorf("upserted = %d, want 2", outcome.Upserted)
	}

	stored, _ := candles.Window(context.Background(), 1, "5", 0)
	if len(stored) != 2 {
		t.Fatalf("stored = %d, want 2", len(stored))
	}
	if stored[0].Timestamp != barTS(9, 15) || stored[1].Timestamp != barTS(9, 20) {
		t.Errorf("stored timestamps = %d, %d", stored[0].Timestamp, stored[1].Timestamp)
	}

	cp, ok := checkpoints.get(models.StageIngest, 1, "5")
	if !ok {
		t.Fatal("checkpoint missing")
	}
	if cp.LastTimestamp != barTS(9, 20) {
		t.Errorf("checkpoint ts = %d, want %d", cp.LastTimestamp, barTS(9, 20))
	}
	if cp.Status != models.CheckpointCompleted {
		t.Errorf("checkpoint status = %s", cp.Status)
	}
}

func TestIngestRerunIsIdempotent(t *testing.T) {
	u, market, candles, checkpoints := ingestFixture(210)
	market.candles[candleKey{1, "5"}] = []models.Candle{
		mkCandle(1, "5", barTS(9, 15), 100),
		mkCandle(1, "5", barTS(9, 20), 101),
	}

	u.Run(context.Background())
	first, _ := candles.Window(context.Background(), 1, "5", 0)

	u.Run(context.Background())
	second, _ := candles.Window(context.Background(), 1, "5", 0)

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("rows after runs = %d, %d", len(first), len(second))
	}
	cp, _ := checkpoints.get(models.StageIngest, 1, "5")
	if cp.LastTimestamp != barTS(9, 20) {
		t.Errorf("checkpoint moved unexpectedly: %d", cp.LastTimestamp)
	}
}

func TestIngestCheckpointMonotonic(t *testing.T) {
	u, market, _, checkpoints := ingestFixture(210)
	market.candles[candleKey{1, "5"}] = []models.Candle{
		mkCandle(1, "5", barTS(9, 15), 100),
	}
	u.Run(context.Background())

	// A later run with only older bars must not move the watermark back.
	u.Run(context.Background())
	cp, _ := checkpoints.get(models.StageIngest, 1, "5")
	if cp.LastTimestamp != barTS(9, 15) {
		t.Errorf("checkpoint ts = %d, want %d", cp.LastTimestamp, barTS(9, 15))
	}

	market.candles[candleKey{1, "5"}] = append(market.candles[candleKey{1, "5"}],
		mkCandle(1, "5", barTS(9, 20), 101))
	u.Run(context.Background())
	cp, _ = checkpoints.get(models.StageIngest, 1, "5")
	if cp.LastTimestamp != barTS(9, 20) {
		t.Errorf("checkpoint ts = %d, want %d", cp.LastTimestamp, barTS(9, 20))
	}
}

func TestIngestProviderErrorSkipsPair(t *testing.T) {
	market := newFakeMarket()
	candles := newMemCandles()
	checkpoints := newMemCheckpoints()
	instruments := &memInstruments{instruments: []models.Instrument{
		{ID: 1, Symbol: "RELIANCE", Active: true},
		{ID: 2, Symbol: "TCS", Active: true},
	}}
	u := NewIngest(market, candles, checkpoints, instruments, nil, session.NewCalendar(session.Config{}), noopMetrics{}, testLogger(), IngestConfig{
		Timeframes:      []string{"5"},
		CandleRetention: 210,
		BatchSize:       5,
	})
	u.now = func() time.Time { return time.Date(2026, 3, 2, 16, 0, 0, 0, session.IST) }

	market.failFor[candleKey{1, "5"}] = models.NewProviderError("intraday", fmt.Errorf("HTTP 429"))
	market.candles[candleKey{2, "5"}] = []models.Candle{mkCandle(2, "5", barTS(9, 15), 200)}

	outcome := u.Run(context.Background())
	if len(outcome.Errors) != 1 {
		t.Fatalf("errors = %+v", outcome.Errors)
	}
	if outcome.Errors[0].InstrumentID != 1 || outcome.Errors[0].Kind != "provider" {
		t.Errorf("error = %+v", outcome.Errors[0])
	}
	if outcome.Processed != 1 {
		t.Errorf("processed = %d, want 1", outcome.Processed)
	}
	if _, ok := checkpoints.get(models.StageIngest, 1, "5"); ok {
		t.Error("failed pair should not get a checkpoint")
	}
	if cp, ok := checkpoints.get(models.StageIngest, 2, "5"); !ok || cp.LastTimestamp != barTS(9, 15) {
		t.Errorf("healthy pair checkpoint = %+v, ok=%v", cp, ok)
	}
}

func TestIngestStoreFailureLeavesCheckpoint(t *testing.T) {
	u, market, candles, checkpoints := ingestFixture(210)
	market.candles[candleKey{1, "5"}] = []models.Candle{mkCandle(1, "5", barTS(9, 15), 100)}
	candles.failUpsert = true

	outcome := u.Run(context.Background())
	if len(outcome.Errors) != 1 || outcome.Errors[0].Kind != "store" {
		t.Fatalf("errors = %+v", outcome.Errors)
	}
	if _, ok := checkpoints.get(models.StageIngest, 1, "5"); ok {
		t.Error("checkpoint must not advance when the upsert failed")
	}
}

func TestIngestRetentionTrim(t *testing.T) {
	u, market, candles, _ := ingestFixture(3)
	var bars []models.Candle
	for i := 0; i < 5; i++ {
		bars = append(bars, mkCandle(1, "5", barTS(9, 15+5*i), 100+float64(i)))
	}
	market.candles[candleKey{1, "5"}] = bars

	u.Run(context.Background())
	stored, _ := candles.Window(context.Background(), 1, "5", 0)
	if len(stored) != 3 {
		t.Fatalf("stored = %d, want 3", len(stored))
	}
	if stored[0].Timestamp != barTS(9, 25) {
		t.Errorf("oldest kept = %d, want %d", stored[0].Timestamp, barTS(9, 25))
	}
}

func TestIngestStaleCheckpointReseeds(t *testing.T) {
	// Retention of 75 five-minute bars fits one session, so the seed
	// window opens at the previous trading day (Friday 2026-02-27).
	u, market, candles, checkpoints := ingestFixture(75)

	checkpoints.Set(context.Background(), models.Checkpoint{
		Stage: models.StageIngest, InstrumentID: 1, Timeframe: "5",
		LastTimestamp: time.Date(2026, 2, 20, 15, 30, 0, 0, session.IST).Unix(),
		Status:        models.CheckpointCompleted,
	})
	// A bar between the stale checkpoint and the seed window start must
	// not be refetched once the window is reseeded.
	beforeSeed := time.Date(2026, 2, 26, 10, 0, 0, 0, session.IST).Unix()
	inSeed := barTS(10, 0)
	market.candles[candleKey{1, "5"}] = []models.Candle{
		mkCandle(1, "5", beforeSeed, 90),
		mkCandle(1, "5", inSeed, 100),
	}

	outcome := u.Run(context.Background())
	if outcome.Failed() {
		t.Fatalf("outcome errors: %+v", outcome.Errors)
	}
	stored, _ := candles.Window(context.Background(), 1, "5", 0)
	if len(stored) != 1 || stored[0].Timestamp != inSeed {
		t.Fatalf("stored = %+v, want only the in-window bar", stored)
	}
	cp, _ := checkpoints.get(models.StageIngest, 1, "5")
	if cp.LastTimestamp != inSeed {
		t.Errorf("checkpoint ts = %d, want %d", cp.LastTimestamp, inSeed)
	}
}

func TestIngestNoActiveInstruments(t *testing.T) {
	market := newFakeMarket()
	u := NewIngest(market, newMemCandles(), newMemCheckpoints(), &memInstruments{}, nil, session.NewCalendar(session.Config{}), noopMetrics{}, testLogger(), IngestConfig{
		Timeframes:      []string{"5"},
		CandleRetention: 210,
		BatchSize:       5,
	})

	outcome := u.Run(context.Background())
	if len(outcome.Errors) != 1 || outcome.Errors[0].Kind != "config" {
		t.Fatalf("errors = %+v", outcome.Errors)
	}
	if len(market.calls) != 0 {
		t.Error("provider must not be called without instruments")
	}
}
