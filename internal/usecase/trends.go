package usecase

import (
	"context"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/services/indicator"
	applogger "TrendPulse/pkg/logger"
)

// TrendStageConfig tunes the trend stage.
type TrendStageConfig struct {
	Timeframes     []string
	CandleWindow   int
	TrendRetention int
	BatchSize      int
	BatchPause     time.Duration
}

// Trends derives trend direction and crossover events by pairing the
// shortest and longest active EMA series at matching timestamps. The
// checkpoint carries the fold forward so an event on the boundary
// between two runs is still detected exactly once.
type Trends struct {
	instruments domainrepo.InstrumentRepository
	configs     domainrepo.IndicatorConfigRepository
	candles     domainrepo.CandleRepository
	signals     domainrepo.SignalRepository
	trends      domainrepo.TrendRepository
	checkpoints domainrepo.CheckpointRepository
	metrics     domainrepo.Metrics
	logger      *applogger.Logger
	cfg         TrendStageConfig
	now         func() time.Time
}

// NewTrends creates the trend stage.
func NewTrends(
	instruments domainrepo.InstrumentRepository,
	configs domainrepo.IndicatorConfigRepository,
	candles domainrepo.CandleRepository,
	signals domainrepo.SignalRepository,
	trends domainrepo.TrendRepository,
	checkpoints domainrepo.CheckpointRepository,
	metrics domainrepo.Metrics,
	logger *applogger.Logger,
	cfg TrendStageConfig,
) *Trends {
	return &Trends{
		instruments: instruments,
		configs:     configs,
		candles:     candles,
		signals:     signals,
		trends:      trends,
		checkpoints: checkpoints,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Run executes the trend stage over all active pairs.
func (u *Trends) Run(ctx context.Context) models.StageOutcome {
	start := u.now()
	outcome := models.StageOutcome{Stage: models.StageTrend}

	short, long, cerr := u.selectLegs(ctx)
	if cerr != nil {
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: errorKind(cerr), Message: cerr.Error()})
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
		n, perr := u.evaluatePair(ctx, p, short, long)
		atomicAdd(&upserted, int64(n))
		if perr != nil {
			u.metrics.RecordPairError(models.StageTrend, perr.Kind)
			return perr
		}
		u.metrics.RecordPairProcessed(models.StageTrend)
		return nil
	})

	outcome.Errors = errs
	outcome.Processed = outcome.Pairs - len(errs)
	outcome.Upserted = int(upserted)
	outcome.DurationMS = time.Since(start).Milliseconds()
	u.metrics.RecordLatency("trend", time.Since(start).Seconds())
	return outcome
}

// selectLegs picks the shortest and longest active EMA periods. Trend
// evaluation needs two distinct legs.
func (u *Trends) selectLegs(ctx context.Context) (short, long models.IndicatorConfig, err error) {
	emas, err := u.configs.ActiveEMAs(ctx)
	if err != nil {
		return short, long, err
	}
	if len(emas) < 2 {
		return short, long, models.NewConfigError("trend evaluation needs at least two active EMA configs, have %d", len(emas))
	}
	short = emas[0]
	long = emas[len(emas)-1]
	if short.Period == long.Period {
		return short, long, models.NewConfigError("trend evaluation needs two distinct EMA periods, both are %d", short.Period)
	}
	return short, long, nil
}

func (u *Trends) evaluatePair(ctx context.Context, p Pair, short, long models.IndicatorConfig) (int, *models.PairError) {
	now := u.now()

	cp, err := u.checkpoints.Get(ctx, models.StageTrend, p.Instrument.ID, p.Timeframe)
	if err != nil {
		return 0, pairError(p, err)
	}
	var watermark int64
	if cp != nil {
		watermark = cp.LastTimestamp
	}

	window, err := u.candles.Window(ctx, p.Instrument.ID, p.Timeframe, u.cfg.CandleWindow)
	if err != nil {
		return 0, pairError(p, err)
	}
	candidates := make([]int64, 0, len(window))
	for _, c := range window {
		if c.Timestamp > watermark {
			candidates = append(candidates, c.Timestamp)
		}
	}
	if len(candidates) == 0 {
		u.touchCheckpoint(ctx, cp, p, now)
		return 0, nil
	}

	points, perr := u.joinSignals(ctx, p, short, long, candidates)
	if perr != nil {
		return 0, perr
	}
	if len(points) == 0 {
		u.touchCheckpoint(ctx, cp, p, now)
		return 0, nil
	}

	carry, perr := u.carryBefore(ctx, p, short, long, points[0].Timestamp)
	if perr != nil {
		return 0, perr
	}

	records := indicator.EvaluateTrend(points, carry)
	for i := range records {
		records[i].InstrumentID = p.Instrument.ID
		records[i].Timeframe = string(p.Timeframe)
	}

	if err := u.trends.Upsert(ctx, records); err != nil {
		return 0, pairError(p, err)
	}
	u.metrics.RecordRowsUpserted("trend_records", len(records))

	if err := u.trimTrends(ctx, p); err != nil {
		return len(records), pairError(p, err)
	}

	cpNew := models.Checkpoint{
		Stage:         models.StageTrend,
		InstrumentID:  p.Instrument.ID,
		Timeframe:     string(p.Timeframe),
		LastTimestamp: records[len(records)-1].Timestamp,
		LastRunAt:     now.Unix(),
		Status:        models.CheckpointCompleted,
	}
	if err := u.checkpoints.Set(ctx, cpNew); err != nil {
		return len(records), pairError(p, err)
	}
	return len(records), nil
}

// joinSignals pairs the short and long series at matching timestamps.
// A timestamp where either leg is missing is skipped, not interpolated.
func (u *Trends) joinSignals(ctx context.Context, p Pair, short, long models.IndicatorConfig, timestamps []int64) ([]indicator.PairPoint, *models.PairError) {
	shortRows, err := u.signals.At(ctx, p.Instrument.ID, short.ID, p.Timeframe, timestamps)
	if err != nil {
		return nil, pairError(p, err)
	}
	longRows, err := u.signals.At(ctx, p.Instrument.ID, long.ID, p.Timeframe, timestamps)
	if err != nil {
		return nil, pairError(p, err)
	}

	longByTS := make(map[int64]float64, len(longRows))
	for _, s := range longRows {
		longByTS[s.Timestamp] = s.Value
	}

	points := make([]indicator.PairPoint, 0, len(shortRows))
	for _, s := range shortRows {
		lv, ok := longByTS[s.Timestamp]
		if !ok {
			continue
		}
		points = append(points, indicator.PairPoint{Timestamp: s.Timestamp, Short: s.Value, Long: lv})
	}
	return points, nil
}

// carryBefore loads the newest stored pair preceding firstTS so the
// crossover fold continues across run boundaries. The carry is only
// valid when both legs exist at the same prior timestamp.
func (u *Trends) carryBefore(ctx context.Context, p Pair, short, long models.IndicatorConfig, firstTS int64) (indicator.Carry, *models.PairError) {
	prevShort, err := u.signals.LatestBefore(ctx, p.Instrument.ID, short.ID, p.Timeframe, firstTS)
	if err != nil {
		return indicator.Carry{}, pairError(p, err)
	}
	prevLong, err := u.signals.LatestBefore(ctx, p.Instrument.ID, long.ID, p.Timeframe, firstTS)
	if err != nil {
		return indicator.Carry{}, pairError(p, err)
	}
	if prevShort == nil || prevLong == nil || prevShort.Timestamp != prevLong.Timestamp {
		return indicator.Carry{}, nil
	}
	return indicator.Carry{PrevShort: prevShort.Value, PrevLong: prevLong.Value, Valid: true}, nil
}

func (u *Trends) trimTrends(ctx context.Context, p Pair) error {
	ts, ok, err := u.trends.NthNewestTS(ctx, p.Instrument.ID, p.Timeframe, u.cfg.TrendRetention)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return u.trends.DeleteOlderThan(ctx, p.Instrument.ID, p.Timeframe, ts)
}

func (u *Trends) touchCheckpoint(ctx context.Context, cp *models.Checkpoint, p Pair, now time.Time) {
	updated := models.Checkpoint{
		Stage:        models.StageTrend,
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
