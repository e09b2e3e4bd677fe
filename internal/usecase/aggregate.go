package usecase

import (
	"context"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/session"
	"TrendPulse/internal/services/indicator"
	applogger "TrendPulse/pkg/logger"
)

// AggregateConfig tunes the aggregate stage.
type AggregateConfig struct {
	Timeframes []string
}

// Aggregate rebuilds the per-instrument snapshot table from the latest
// candles and trend records. The snapshot is derived state: fresh rows
// are upserted first and stale instruments deleted after, so readers
// never observe an empty table mid-rebuild.
type Aggregate struct {
	instruments domainrepo.InstrumentRepository
	candles     domainrepo.CandleRepository
	trends      domainrepo.TrendRepository
	snapshots   domainrepo.SnapshotRepository
	checkpoints domainrepo.CheckpointRepository
	calendar    *session.Calendar
	metrics     domainrepo.Metrics
	logger      *applogger.Logger
	cfg         AggregateConfig
	now         func() time.Time
}

// NewAggregate creates the aggregate stage.
func NewAggregate(
	instruments domainrepo.InstrumentRepository,
	candles domainrepo.CandleRepository,
	trends domainrepo.TrendRepository,
	snapshots domainrepo.SnapshotRepository,
	checkpoints domainrepo.CheckpointRepository,
	calendar *session.Calendar,
	metrics domainrepo.Metrics,
	logger *applogger.Logger,
	cfg AggregateConfig,
) *Aggregate {
	return &Aggregate{
		instruments: instruments,
		candles:     candles,
		trends:      trends,
		snapshots:   snapshots,
		checkpoints: checkpoints,
		calendar:    calendar,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Run executes the aggregate stage.
func (u *Aggregate) Run(ctx context.Context) models.StageOutcome {
	start := u.now()
	outcome := models.StageOutcome{Stage: models.StageAggregate}

	instruments, err := u.instruments.Active(ctx)
	if err != nil {
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: errorKind(err), Message: err.Error()})
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome
	}
	outcome.Pairs = len(instruments)

	rows := make([]models.StrategySnapshot, 0, len(instruments))
	activeIDs := make([]int64, 0, len(instruments))
	for _, inst := range instruments {
		activeIDs = append(activeIDs, inst.ID)

		row, err := u.buildRow(ctx, inst)
		if err != nil {
			u.logger.Warn("snapshot build failed",
				applogger.String("symbol", inst.Symbol),
				applogger.Error(err))
			outcome.Errors = append(outcome.Errors, models.PairError{
				InstrumentID: inst.ID,
				Kind:         errorKind(err),
				Message:      err.Error(),
			})
			u.metrics.RecordPairError(models.StageAggregate, errorKind(err))
			continue
		}
		if row == nil {
			// No candle data yet; nothing to snapshot.
			continue
		}
		rows = append(rows, *row)
		u.metrics.RecordPairProcessed(models.StageAggregate)
		u.metrics.RecordLastPrice(inst.Symbol, row.Price)
	}

	if err := u.snapshots.UpsertAll(ctx, rows); err != nil {
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: errorKind(err), Message: err.Error()})
		outcome.DurationMS = time.Since(start).Milliseconds()
		return outcome
	}
	u.metrics.RecordRowsUpserted("strategy_snapshots", len(rows))

	if err := u.snapshots.DeleteNotIn(ctx, activeIDs); err != nil {
		outcome.Errors = append(outcome.Errors, models.PairError{Kind: errorKind(err), Message: err.Error()})
	}

	outcome.Processed = len(rows)
	outcome.Upserted = len(rows)
	u.touchCheckpoint(ctx, outcome)
	outcome.DurationMS = time.Since(start).Milliseconds()
	u.metrics.RecordLatency("aggregate", time.Since(start).Seconds())
	return outcome
}

// touchCheckpoint records the stage-level rebuild watermark. The
// snapshot table is global, so the row uses the pipeline scope.
func (u *Aggregate) touchCheckpoint(ctx context.Context, outcome models.StageOutcome) {
	status := models.CheckpointCompleted
	if outcome.Failed() {
		status = models.CheckpointFailed
	}
	now := u.now().Unix()
	cp := models.Checkpoint{
		Stage:         models.StageAggregate,
		InstrumentID:  0,
		Timeframe:     models.PipelineTimeframe,
		LastTimestamp: now,
		LastRunAt:     now,
		Status:        status,
	}
	if err := u.checkpoints.Set(ctx, cp); err != nil {
		u.logger.Warn("checkpoint touch failed", applogger.Error(err))
	}
}

// buildRow derives one snapshot row, or nil when the instrument has no
// candle data at all.
func (u *Aggregate) buildRow(ctx context.Context, inst models.Instrument) (*models.StrategySnapshot, error) {
	latest, err := u.candles.LatestAny(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	row := &models.StrategySnapshot{
		InstrumentID: inst.ID,
		Symbol:       inst.Symbol,
		Price:        latest.Close,
		PriceTS:      latest.Timestamp,
		Frames:       make(map[string]models.SnapshotFrame, len(u.cfg.Timeframes)),
		UpdatedAt:    u.now().Unix(),
	}

	pct, err := u.changePct(ctx, inst.ID, latest)
	if err != nil {
		return nil, err
	}
	row.ChangePct = pct

	for _, tf := range u.cfg.Timeframes {
		frame, err := u.buildFrame(ctx, inst.ID, domainrepo.Timeframe(tf))
		if err != nil {
			return nil, err
		}
		if frame != nil {
			row.Frames[tf] = *frame
		}
	}
	return row, nil
}

// changePct computes percent change against the last close of the prior
// session day. Nil when there is no prior close or it is zero.
func (u *Aggregate) changePct(ctx context.Context, instrumentID int64, latest *models.Candle) (*float64, error) {
	boundary := u.calendar.StartOfSessionDay(time.Unix(latest.Timestamp, 0))
	prev, err := u.candles.LatestBefore(ctx, instrumentID, boundary.Unix())
	if err != nil {
		return nil, err
	}
	if prev == nil || prev.Close == 0 {
		return nil, nil
	}
	pct := indicator.Round2((latest.Close - prev.Close) / prev.Close * 100)
	return &pct, nil
}

func (u *Aggregate) buildFrame(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe) (*models.SnapshotFrame, error) {
	latest, err := u.trends.Latest(ctx, instrumentID, tf)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	frame := &models.SnapshotFrame{Trend: latest.Trend}

	cross, err := u.trends.LatestCrossover(ctx, instrumentID, tf)
	if err != nil {
		return nil, err
	}
	if cross != nil {
		ts := cross.Timestamp
		frame.CrossoverTS = &ts
	}
	return frame, nil
}
