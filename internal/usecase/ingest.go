package usecase

import (
	"context"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/session"
	applogger "TrendPulse/pkg/logger"
)

// IngestConfig tunes the ingest stage.
type IngestConfig struct {
	Timeframes      []string
	CandleRetention int
	BatchSize       int
	BatchPause      time.Duration
}

// Ingest pulls fresh candles from the provider into the store, one
// (instrument, timeframe) pair at a time, tracking progress through
// per-pair checkpoints.
type Ingest struct {
	market      domainrepo.MarketData
	candles     domainrepo.CandleRepository
	checkpoints domainrepo.CheckpointRepository
	instruments domainrepo.InstrumentRepository
	archiver    domainrepo.Archiver
	calendar    *session.Calendar
	metrics     domainrepo.Metrics
	logger      *applogger.Logger
	cfg         IngestConfig
	now         func() time.Time
}

// NewIngest creates the ingest stage. archiver may be nil when no
// analytic sink is configured.
func NewIngest(
	market domainrepo.MarketData,
	candles domainrepo.CandleRepository,
	checkpoints domainrepo.CheckpointRepository,
	instruments domainrepo.InstrumentRepository,
	archiver domainrepo.Archiver,
	calendar *session.Calendar,
	metrics domainrepo.Metrics,
	logger *applogger.Logger,
	cfg IngestConfig,
) *Ingest {
	return &Ingest{
		market:      market,
		candles:     candles,
		checkpoints: checkpoints,
		instruments: instruments,
		archiver:    archiver,
		calendar:    calendar,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Run executes the ingest stage over all active pairs.
func (u *Ingest) Run(ctx context.Context) models.StageOutcome {
	start := u.now()
	outcome := models.StageOutcome{Stage: models.StageIngest}

	instruments, err := u.instruments.Active(ctx)
	if err != nil {
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: errorKind(err), Message: err.Error()})
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome
	}
	if len(instruments) == 0 {
		cerr := models.NewConfigError("no active instruments configured")
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: "config", Message: cerr.Error()})
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome
	}

	pairs := buildPairs(instruments, u.cfg.Timeframes)
	outcome.Pairs = len(pairs)

	var upserted int64
	errs := runPairs(ctx, pairs, u.cfg.BatchSize, u.cfg.BatchPause, func(ctx context.Context, p Pair) *models.PairError {
		n, perr := u.ingestPair(ctx, p)
		atomicAdd(&upserted, int64(n))
		if perr != nil {
			u.metrics.RecordPairError(models.StageIngest, perr.Kind)
			return perr
		}
		u.metrics.RecordPairProcessed(models.StageIngest)
		return nil
	})

	outcome.Errors = errs
	outcome.Processed = outcome.Pairs - len(errs)
	outcome.Upserted = int(upserted)
	outcome.DurationMS = time.Since(start).Milliseconds()
	u.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	return outcome
}

func (u *Ingest) ingestPair(ctx context.Context, p Pair) (int, *models.PairError) {
	now := u.now()

	cp, err := u.checkpoints.Get(ctx, models.StageIngest, p.Instrument.ID, p.Timeframe)
	if err != nil {
		return 0, pairError(p, err)
	}

	from := u.fetchFrom(cp, now, p.Timeframe)
	fetched, err := u.market.Fetch(ctx, p.Instrument, p.Timeframe, from, now)
	if err != nil {
		u.logger.Warn("ingest fetch failed",
			applogger.String("symbol", p.Instrument.Symbol),
			applogger.String("timeframe", string(p.Timeframe)),
			applogger.Error(err))
		return 0, pairError(p, err)
	}

	fresh := u.filterCandles(fetched, cp)
	if len(fresh) == 0 {
		// Nothing new this run; record the attempt without moving the
		// watermark.
		u.touchCheckpoint(ctx, cp, p, now)
		return 0, nil
	}

	if err := u.candles.Upsert(ctx, fresh); err != nil {
		// Checkpoint untouched so the same window is retried next run.
		return 0, pairError(p, err)
	}
	u.metrics.RecordRowsUpserted("candles", len(fresh))

	if u.archiver != nil {
		if aerr := u.archiver.Archive(ctx, fresh); aerr != nil {
			u.logger.Warn("candle archive failed", applogger.Error(aerr))
		}
	}

	if err := u.trimCandles(ctx, p); err != nil {
		return len(fresh), pairError(p, err)
	}

	last := fresh[len(fresh)-1]
	u.metrics.RecordLastPrice(p.Instrument.Symbol, last.Close)

	cpNew := models.Checkpoint{
		Stage:         models.StageIngest,
		InstrumentID:  p.Instrument.ID,
		Timeframe:     string(p.Timeframe),
		LastTimestamp: last.Timestamp,
		LastRunAt:     now.Unix(),
		Status:        models.CheckpointCompleted,
	}
	if err := u.checkpoints.Set(ctx, cpNew); err != nil {
		return len(fresh), pairError(p, err)
	}
	return len(fresh), nil
}

// fetchFrom picks the window start: resume just past the checkpoint, or
// reseed enough sessions to rebuild the full retention window when there
// is no checkpoint or it has fallen behind the window.
func (u *Ingest) fetchFrom(cp *models.Checkpoint, now time.Time, tf domainrepo.Timeframe) time.Time {
	sessions := u.calendar.SessionsForCandles(u.cfg.CandleRetention, tf.Minutes())
	seedStart := u.calendar.SessionsBack(now, sessions)
	if cp == nil || cp.LastTimestamp <= 0 {
		return seedStart
	}
	cpTime := time.Unix(cp.LastTimestamp, 0)
	if cpTime.Before(seedStart) {
		return seedStart
	}
	return cpTime.Add(time.Second)
}

// filterCandles drops bars outside the trading session and bars at or
// below the checkpoint watermark, keeping the series strictly advancing.
func (u *Ingest) filterCandles(candles []models.Candle, cp *models.Checkpoint) []models.Candle {
	var watermark int64
	if cp != nil {
		watermark = cp.LastTimestamp
	}
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		t := time.Unix(c.Timestamp, 0)
		if !u.calendar.IsTradingDay(t) || !u.calendar.InSession(t) {
			continue
		}
		if c.Timestamp <= watermark {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (u *Ingest) trimCandles(ctx context.Context, p Pair) error {
	ts, ok, err := u.candles.NthNewestTS(ctx, p.Instrument.ID, p.Timeframe, u.cfg.CandleRetention)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return u.candles.DeleteOlderThan(ctx, p.Instrument.ID, p.Timeframe, ts)
}

func (u *Ingest) touchCheckpoint(ctx context.Context, cp *models.Checkpoint, p Pair, now time.Time) {
	updated := models.Checkpoint{
		Stage:        models.StageIngest,
		InstrumentID: p.Instrument.ID,
		Timeframe:    string(p.Timeframe),
		LastRunAt:    now.Unix(),
		Status:       models.CheckpointCompleted,
	}
	if cp != nil {
		updated.LastTimestamp = cp.LastTimestamp
	}
	if err := u.checkpoints.Set(ctx, updated); err != nil {
		u.logger.Warn("checkpoint touch failed", applogger.Error(err))
	}
}
