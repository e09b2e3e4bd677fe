package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/service/session"
)

func indicatorsFixture(candles *memCandles, signals *memSignals, checkpoints *memCheckpoints, configs []models.IndicatorConfig, retention int) *Indicators {
	u := NewIndicators(
		&memInstruments{instruments: []models.Instrument{{ID: 1, Symbol: "RELIANCE", Active: true}}},
		&memConfigs{configs: configs},
		candles,
		signals,
		checkpoints,
		noopMetrics{},
		testLogger(),
		IndicatorStageConfig{
			Timeframes:      []string{"5"},
			CandleWindow:    210,
			SignalRetention: retention,
			BatchSize:       5,
		},
	)
	u.now = func() time.Time { return time.Date(2026, 3, 2, 16, 0, 0, 0, session.IST) }
	return u
}

func seedCloses(candles *memCandles, closes []float64) []int64 {
	timestamps := make([]int64, len(closes))
	rows := make([]models.Candle, len(closes))
	for i, c := range closes {
		ts := barTS(9, 15+5*i)
		timestamps[i] = ts
		rows[i] = mkCandle(1, "5", ts, c)
	}
	candles.Upsert(context.Background(), rows)
	return timestamps
}

func TestIndicatorsComputeEMASignals(t *testing.T) {
	candles := newMemCandles()
	signals := newMemSignals()
	checkpoints := newMemCheckpoints()
	timestamps := seedCloses(candles, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	u := indicatorsFixture(candles, signals, checkpoints, []models.IndicatorConfig{{ID: 10, Type: "ema", Period: 3, Active: true}}, 50)

	outcome := u.Run(context.Background())
	if outcome.Failed() {
		t.Fatalf("outcome errors: %+v", outcome.Errors)
	}
	if outcome.Upserted != 7 {
		t.Errorf("upserted = %d, want 7", outcome.Upserted)
	}

	rows, _ := signals.At(context.Background(), 1, 10, "5", timestamps)
	if len(rows) != 7 {
		t.Fatalf("signals = %d, want 7", len(rows))
	}
	// Period-3 EMA over 1..9 seeds with SMA(1,2,3)=2 and then tracks
	// one behind the close.
	want := []float64{2, 3, 4, 5, 6, 7, 8}
	for i, s := range rows {
		if math.Abs(s.Value-want[i]) > 1e-9 {
			t.Errorf("signal[%d] = %v, want %v", i, s.Value, want[i])
		}
		if s.Timestamp != timestamps[i+2] {
			t.Errorf("signal[%d] ts = %d, want %d", i, s.Timestamp, timestamps[i+2])
		}
	}

	cp, ok := checkpoints.get(models.StageIndicator, 1, "5")
	if !ok || cp.LastTimestamp != timestamps[len(timestamps)-1] {
		t.Errorf("checkpoint = %+v, ok=%v", cp, ok)
	}
}

func TestIndicatorsInsertOnlyMissing(t *testing.T) {
	candles := newMemCandles()
	signals := newMemSignals()
	checkpoints := newMemCheckpoints()
	timestamps := seedCloses(candles, []float64{1, 2, 3, 4, 5})
	u := indicatorsFixture(candles, signals, checkpoints, []models.IndicatorConfig{{ID: 10, Type: "ema", Period: 3, Active: true}}, 50)

	// A row already stored for the middle aligned timestamp must be left
	// as-is; the stage only fills gaps.
	sentinel := models.Signal{InstrumentID: 1, IndicatorID: 10, Timeframe: "5", Timestamp: timestamps[3], Value: 999}
	signals.Upsert(context.Background(), []models.Signal{sentinel})

	outcome := u.Run(context.Background())
	if outcome.Upserted != 2 {
		t.Errorf("upserted = %d, want 2", outcome.Upserted)
	}
	rows, _ := signals.At(context.Background(), 1, 10, "5", []int64{timestamps[3]})
	if len(rows) != 1 || rows[0].Value != 999 {
		t.Errorf("pre-existing row overwritten: %+v", rows)
	}

	// Second run is covered by the checkpoint and inserts nothing.
	outcome = u.Run(context.Background())
	if outcome.Upserted != 0 {
		t.Errorf("rerun upserted = %d, want 0", outcome.Upserted)
	}
}

func TestIndicatorsUnchangedPairSkipped(t *testing.T) {
	candles := newMemCandles()
	signals := newMemSignals()
	checkpoints := newMemCheckpoints()
	seedCloses(candles, []float64{1, 2, 3, 4, 5})
	u := indicatorsFixture(candles, signals, checkpoints, []models.IndicatorConfig{{ID: 10, Type: "ema", Period: 3, Active: true}}, 50)

	u.Run(context.Background())
	if candles.windowReads != 1 {
		t.Fatalf("window reads after first run = %d, want 1", candles.windowReads)
	}

	// No new candles: the checkpoint already covers the newest bar, so
	// the rerun must not re-read or recompute the window.
	outcome := u.Run(context.Background())
	if outcome.Failed() {
		t.Fatalf("outcome errors: %+v", outcome.Errors)
	}
	if candles.windowReads != 1 {
		t.Errorf("window reads after rerun = %d, want 1", candles.windowReads)
	}

	// A newer bar moves the watermark and reopens the pair.
	candles.Upsert(context.Background(), []models.Candle{mkCandle(1, "5", barTS(9, 40), 6)})
	u.Run(context.Background())
	if candles.windowReads != 2 {
		t.Errorf("window reads after new bar = %d, want 2", candles.windowReads)
	}
	cp, ok := checkpoints.get(models.StageIndicator, 1, "5")
	if !ok || cp.LastTimestamp != barTS(9, 40) {
		t.Errorf("checkpoint = %+v, ok=%v", cp, ok)
	}
}

func TestIndicatorsMultipleConfigs(t *testing.T) {
	candles := newMemCandles()
	signals := newMemSignals()
	seedCloses(candles, []float64{1, 2, 3, 4, 5, 6})
	u := indicatorsFixture(candles, signals, newMemCheckpoints(), []models.IndicatorConfig{
		{ID: 10, Type: "ema", Period: 3, Active: true},
		{ID: 20, Type: "ema", Period: 5, Active: true},
	}, 50)

	outcome := u.Run(context.Background())
	if outcome.Failed() {
		t.Fatalf("outcome errors: %+v", outcome.Errors)
	}
	if got := signals.count(1, 10, "5"); got != 4 {
		t.Errorf("period-3 signals = %d, want 4", got)
	}
	if got := signals.count(1, 20, "5"); got != 2 {
		t.Errorf("period-5 signals = %d, want 2", got)
	}
}

func TestIndicatorsWindowShorterThanPeriod(t *testing.T) {
	candles := newMemCandles()
	signals := newMemSignals()
	checkpoints := newMemCheckpoints()
	timestamps := seedCloses(candles, []float64{1, 2})
	u := indicatorsFixture(candles, signals, checkpoints, []models.IndicatorConfig{{ID: 10, Type: "ema", Period: 3, Active: true}}, 50)

	outcome := u.Run(context.Background())
	if outcome.Failed() {
		t.Fatalf("outcome errors: %+v", outcome.Errors)
	}
	if got := signals.count(1, 10, "5"); got != 0 {
		t.Errorf("signals = %d, want 0", got)
	}
	// The pair still checkpoints: the window was seen, just too short.
	if cp, ok := checkpoints.get(models.StageIndicator, 1, "5"); !ok || cp.LastTimestamp != timestamps[1] {
		t.Errorf("checkpoint = %+v, ok=%v", cp, ok)
	}
}

func TestIndicatorsRetentionTrim(t *testing.T) {
	candles := newMemCandles()
	signals := newMemSignals()
	seedCloses(candles, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	u := indicatorsFixture(candles, signals, newMemCheckpoints(), []models.IndicatorConfig{{ID: 10, Type: "ema", Period: 3, Active: true}}, 3)

	u.Run(context.Background())
	if got := signals.count(1, 10, "5"); got != 3 {
		t.Errorf("signals after trim = %d, want 3", got)
	}
}

func TestIndicatorsNoActiveConfigs(t *testing.T) {
	u := indicatorsFixture(newMemCandles(), newMemSignals(), newMemCheckpoints(), nil, 50)
	outcome := u.Run(context.Background())
	if len(outcome.Errors) != 1 || outcome.Errors[0].Kind != "config" {
		t.Fatalf("errors = %+v", outcome.Errors)
	}
}
