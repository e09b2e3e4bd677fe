package usecase

import (
	"context"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/services/indicator"
	applogger "TrendPulse/pkg/logger"
)

// IndicatorStageConfig tunes the indicator stage.
type IndicatorStageConfig struct {
	Timeframes      []string
	CandleWindow    int
	SignalRetention int
	BatchSize       int
	BatchPause      time.Duration
}

// Indicators computes EMA signals over the stored candle window for
// every active EMA definition, inserting only timestamps not yet
// present so reruns are idempotent.
type Indicators struct {
	instruments domainrepo.InstrumentRepository
	configs     domainrepo.IndicatorConfigRepository
	candles     domainrepo.CandleRepository
	signals     domainrepo.SignalRepository
	checkpoints domainrepo.CheckpointRepository
	metrics     domainrepo.Metrics
	logger      *applogger.Logger
	cfg         IndicatorStageConfig
	now         func() time.Time
}

// NewIndicators creates the indicator stage.
func NewIndicators(
	instruments domainrepo.InstrumentRepository,
	configs domainrepo.IndicatorConfigRepository,
	candles domainrepo.CandleRepository,
	signals domainrepo.SignalRepository,
	checkpoints domainrepo.CheckpointRepository,
	metrics domainrepo.Metrics,
	logger *applogger.Logger,
	cfg IndicatorStageConfig,
) *Indicators {
	return &Indicators{
		instruments: instruments,
		configs:     configs,
		candles:     candles,
		signals:     signals,
		checkpoints: checkpoints,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Run executes the indicator stage over all active pairs.
func (u *Indicators) Run(ctx context.Context) models.StageOutcome {
	start := u.now()
	outcome := models.StageOutcome{Stage: models.StageIndicator}

	emas, err := u.configs.ActiveEMAs(ctx)
	if err != nil {
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: errorKind(err), Message: err.Error()})
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome
	}
	if len(emas) == 0 {
		cerr := models.NewConfigError("no active EMA configs")
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: "config", Message: cerr.Error()})
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome
	}

	instruments, err := u.instruments.Active(ctx)
	if err != nil {
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: errorKind(err), Message: err.Error()})
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome
	}

	pairs := buildPairs(instruments, u.cfg.Timeframes)
	outcome.Pairs = len(pairs)

	var upserted int64
	errs := runPairs(ctx, pairs, u.cfg.BatchSize, u.cfg.BatchPause, func(ctx context.Context, p Pair) *models.PairError {
		n, perr := u.computePair(ctx, p, emas)
		atomicAdd(&upserted, int64(n))
		if perr != nil {
			u.logger.Warn("indicator compute failed",
				applogger.String("symbol", p.Instrument.Symbol),
				applogger.String("timeframe", string(p.Timeframe)),
				applogger.String("error", perr.Message))
			u.metrics.RecordPairError(models.StageIndicator, perr.Kind)
			return perr
		}
		u.metrics.RecordPairProcessed(models.StageIndicator)
		return nil
	})

	outcome.Errors = errs
	outcome.Processed = outcome.Pairs - len(errs)
	outcome.Upserted = int(upserted)
	outcome.DurationMS = time.Since(start).Milliseconds()
	u.metrics.RecordLatency("indicator", time.Since(start).Seconds())
	return outcome
}

func (u *Indicators) computePair(ctx context.Context, p Pair, emas []models.IndicatorConfig) (int, *models.PairError) {
	now := u.now()

	cp, err := u.checkpoints.Get(ctx, models.StageIndicator, p.Instrument.ID, p.Timeframe)
	if err != nil {
		return 0, pairError(p, err)
	}
	if cp != nil && cp.LastTimestamp > 0 {
		latest, err := u.candles.Latest(ctx, p.Instrument.ID, p.Timeframe)
		if err != nil {
			return 0, pairError(p, err)
		}
		// Nothing newer than the watermark; the series is already
		// computed up to the newest candle.
		if latest == nil || latest.Timestamp <= cp.LastTimestamp {
			return 0, nil
		}
	}

	window, err := u.candles.Window(ctx, p.Instrument.ID, p.Timeframe, u.cfg.CandleWindow)
	if err != nil {
		return 0, pairError(p, err)
	}
	if len(window) == 0 {
		return 0, nil
	}

	closes := make([]float64, len(window))
	timestamps := make([]int64, len(window))
	for i, c := range window {
		closes[i] = c.Close
		timestamps[i] = c.Timestamp
	}

	total := 0
	for _, cfg := range emas {
		n, err := u.computeSeries(ctx, p, cfg, closes, timestamps)
		if err != nil {
			return total, pairError(p, err)
		}
		total += n
	}

	done := models.Checkpoint{
		Stage:         models.StageIndicator,
		InstrumentID:  p.Instrument.ID,
		Timeframe:     string(p.Timeframe),
		LastTimestamp: timestamps[len(timestamps)-1],
		LastRunAt:     now.Unix(),
		Status:        models.CheckpointCompleted,
	}
	if err := u.checkpoints.Set(ctx, done); err != nil {
		return total, pairError(p, err)
	}
	return total, nil
}

// computeSeries computes one EMA series over the window and inserts only
// the timestamps not already stored.
func (u *Indicators) computeSeries(ctx context.Context, p Pair, cfg models.IndicatorConfig, closes []float64, timestamps []int64) (int, error) {
	values := indicator.ComputeEMA(closes, cfg.Period)
	if values == nil {
		// Window shorter than the period; nothing to compute yet.
		return 0, nil
	}
	aligned := timestamps[cfg.Period-1:]

	existing, err := u.signals.ExistingTimestamps(ctx, p.Instrument.ID, cfg.ID, p.Timeframe, aligned[0], aligned[len(aligned)-1])
	if err != nil {
		return 0, err
	}
	seen := make(map[int64]struct{}, len(existing))
	for _, ts := range existing {
		seen[ts] = struct{}{}
	}

	fresh := make([]models.Signal, 0, len(aligned))
	for i, ts := range aligned {
		if _, ok := seen[ts]; ok {
			continue
		}
		fresh = append(fresh, models.Signal{
			InstrumentID: p.Instrument.ID,
			IndicatorID:  cfg.ID,
			Timeframe:    string(p.Timeframe),
			Timestamp:    ts,
			Value:        values[i],
		})
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := u.signals.Upsert(ctx, fresh); err != nil {
		return 0, err
	}
	u.metrics.RecordRowsUpserted("signals", len(fresh))

	ts, ok, err := u.signals.NthNewestTS(ctx, p.Instrument.ID, cfg.ID, p.Timeframe, u.cfg.SignalRetention)
	if err != nil {
		return len(fresh), err
	}
	if ok {
		if err := u.signals.DeleteOlderThan(ctx, p.Instrument.ID, cfg.ID, p.Timeframe, ts); err != nil {
			return len(fresh), err
		}
	}
	return len(fresh), nil
}
