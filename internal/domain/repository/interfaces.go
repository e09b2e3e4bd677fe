package repository

import (
	"context"
	"time"

	"TrendPulse/internal/domain/models"
)

// InstrumentRepository reads tracked instruments. Rows are created and
// edited externally; the pipeline never writes them.
type InstrumentRepository interface {
	Active(ctx context.Context) ([]models.Instrument, error)
}

// IndicatorConfigRepository reads indicator definitions.
type IndicatorConfigRepository interface {
	ActiveEMAs(ctx context.Context) ([]models.IndicatorConfig, error)
}

// CandleRepository holds raw OHLCV series keyed on
// (instrument_id, timeframe, ts).
type CandleRepository interface {
	Upsert(ctx context.Context, candles []models.Candle) error
	// Window returns up to limit newest candles for the pair, ascending.
	Window(ctx context.Context, instrumentID int64, tf Timeframe, limit int) ([]models.Candle, error)
	// Latest returns the newest candle for the pair, or nil when the series is empty.
	Latest(ctx context.Context, instrumentID int64, tf Timeframe) (*models.Candle, error)
	// LatestAny returns the newest candle for the instrument across all
	// timeframes, or nil when none exist.
	LatestAny(ctx context.Context, instrumentID int64) (*models.Candle, error)
	// LatestBefore returns the newest candle with ts < beforeTS across all
	// timeframes, or nil.
	LatestBefore(ctx context.Context, instrumentID int64, beforeTS int64) (*models.Candle, error)
	// NthNewestTS returns the timestamp of the n-th newest candle
	// (1-based). ok is false when fewer than n rows exist.
	NthNewestTS(ctx context.Context, instrumentID int64, tf Timeframe, n int) (ts int64, ok bool, err error)
	DeleteOlderThan(ctx context.Context, instrumentID int64, tf Timeframe, beforeTS int64) error
}

// SignalRepository holds computed indicator values keyed on
// (instrument_id, indicator_id, timeframe, ts).
type SignalRepository interface {
	Upsert(ctx context.Context, signals []models.Signal) error
	// ExistingTimestamps returns the stored signal timestamps in
	// [fromTS, toTS] for the series key.
	ExistingTimestamps(ctx context.Context, instrumentID, indicatorID int64, tf Timeframe, fromTS, toTS int64) ([]int64, error)
	// At returns the signals at exactly the given timestamps, ascending.
	At(ctx context.Context, instrumentID, indicatorID int64, tf Timeframe, timestamps []int64) ([]models.Signal, error)
	// LatestBefore returns the newest signal with ts < beforeTS, or nil.
	LatestBefore(ctx context.Context, instrumentID, indicatorID int64, tf Timeframe, beforeTS int64) (*models.Signal, error)
	NthNewestTS(ctx context.Context, instrumentID, indicatorID int64, tf Timeframe, n int) (ts int64, ok bool, err error)
	DeleteOlderThan(ctx context.Context, instrumentID, indicatorID int64, tf Timeframe, beforeTS int64) error
}

// TrendRepository holds trend/crossover records keyed on
// (instrument_id, timeframe, ts).
type TrendRepository interface {
	Upsert(ctx context.Context, records []models.TrendRecord) error
	// Latest returns the newest trend record for the pair, or nil.
	Latest(ctx context.Context, instrumentID int64, tf Timeframe) (*models.TrendRecord, error)
	// LatestCrossover returns the newest record with a non-null crossover,
	// or nil.
	LatestCrossover(ctx context.Context, instrumentID int64, tf Timeframe) (*models.TrendRecord, error)
	NthNewestTS(ctx context.Context, instrumentID int64, tf Timeframe, n int) (ts int64, ok bool, err error)
	DeleteOlderThan(ctx context.Context, instrumentID int64, tf Timeframe, beforeTS int64) error
}

// CheckpointRepository persists per-(stage, instrument, timeframe)
// progress. Upsert is idempotent on the composite key; there is no
// read-modify-write isolation between Get and Set (overlapping runs are
// fenced by the orchestrator lease instead).
type CheckpointRepository interface {
	// Get returns nil (no error) when no checkpoint exists for the key.
	Get(ctx context.Context, stage string, instrumentID int64, tf Timeframe) (*models.Checkpoint, error)
	Set(ctx context.Context, cp models.Checkpoint) error
}

// SnapshotRepository holds the derived latest-state rows. Replace-all is
// expressed as upsert of the fresh rows followed by deletion of stale
// ones, so readers never observe an empty table.
type SnapshotRepository interface {
	UpsertAll(ctx context.Context, rows []models.StrategySnapshot) error
	DeleteNotIn(ctx context.Context, instrumentIDs []int64) error
	All(ctx context.Context) ([]models.StrategySnapshot, error)
}

// MarketData fetches raw price bars from the upstream provider.
// Stateless; no retry built in, callers decide.
type MarketData interface {
	Fetch(ctx context.Context, inst models.Instrument, tf Timeframe, from, to time.Time) ([]models.Candle, error)
}

// Archiver receives freshly ingested candle batches for the optional
// analytic sink. Best-effort: failures are counted, never fatal.
type Archiver interface {
	Archive(ctx context.Context, candles []models.Candle) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordStageRun(stage string, ok bool)
	RecordPairProcessed(stage string)
	RecordPairError(stage, kind string)
	RecordRowsUpserted(table string, n int)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
