package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/lease"
	applogger "TrendPulse/pkg/logger"
)

// ErrRunInProgress is returned when another pipeline run holds the lease.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// leaseKey fences concurrent pipeline runs across processes.
const leaseKey = "trendpulse:pipeline:lease"

type stageRunner interface {
	Run(ctx context.Context) models.StageOutcome
}

// Orchestrator drives the four stages in order. Stages run
// continue-on-error: a failed stage is recorded and the remaining stages
// still execute, since each stage re-derives its own inputs from the
// store.
type Orchestrator struct {
	ingest      stageRunner
	indicators  stageRunner
	trends      stageRunner
	aggregate   stageRunner
	checkpoints domainrepo.CheckpointRepository
	locker      lease.Locker
	metrics     domainrepo.Metrics
	logger      *applogger.Logger
	leaseTTL    time.Duration
	now         func() time.Time
}

// NewOrchestrator creates the pipeline orchestrator.
func NewOrchestrator(
	ingest, indicators, trends, aggregate stageRunner,
	checkpoints domainrepo.CheckpointRepository,
	locker lease.Locker,
	metrics domainrepo.Metrics,
	logger *applogger.Logger,
	leaseTTL time.Duration,
) *Orchestrator {
	return &Orchestrator{
		ingest:      ingest,
		indicators:  indicators,
		trends:      trends,
		aggregate:   aggregate,
		checkpoints: checkpoints,
		locker:      locker,
		metrics:     metrics,
		logger:      logger,
		leaseTTL:    leaseTTL,
		now:         time.Now,
	}
}

func (o *Orchestrator) stages() []struct {
	name   string
	runner stageRunner
} {
	return []struct {
		name   string
		runner stageRunner
	}{
		{models.StageIngest, o.ingest},
		{models.StageIndicator, o.indicators},
		{models.StageTrend, o.trends},
		{models.StageAggregate, o.aggregate},
	}
}

// Run executes the full pipeline under the run lease.
func (o *Orchestrator) Run(ctx context.Context) (models.RunResult, error) {
	ok, err := o.locker.Acquire(ctx, leaseKey, o.leaseTTL)
	if err != nil {
		return models.RunResult{}, fmt.Errorf("acquire run lease: %w", err)
	}
	if !ok {
		return models.RunResult{}, ErrRunInProgress
	}
	defer func() {
		if rerr := o.locker.Release(context.WithoutCancel(ctx), leaseKey); rerr != nil {
			o.logger.Warn("release run lease failed", applogger.Error(rerr))
		}
	}()

	result := models.RunResult{Success: true}
	for _, s := range o.stages() {
		step := o.runStep(ctx, s.name, s.runner)
		result.Steps = append(result.Steps, step)
		if !step.OK {
			result.Success = false
			if result.Error == nil {
				detail := step.Detail
				result.Error = &detail
			}
		}
	}

	o.recordPipelineCheckpoint(ctx, &result)
	return result, nil
}

// RunStage executes a single named stage under the run lease, for
// targeted reruns after a partial failure.
func (o *Orchestrator) RunStage(ctx context.Context, stage string) (models.RunResult, error) {
	var runner stageRunner
	for _, s := range o.stages() {
		if s.name == stage {
			runner = s.runner
			break
		}
	}
	if runner == nil {
		return models.RunResult{}, models.NewConfigError("unknown stage %q", stage)
	}

	ok, err := o.locker.Acquire(ctx, leaseKey, o.leaseTTL)
	if err != nil {
		return models.RunResult{}, fmt.Errorf("acquire run lease: %w", err)
	}
	if !ok {
		return models.RunResult{}, ErrRunInProgress
	}
	defer func() {
		if rerr := o.locker.Release(context.WithoutCancel(ctx), leaseKey); rerr != nil {
			o.logger.Warn("release run lease failed", applogger.Error(rerr))
		}
	}()

	result := models.RunResult{Success: true}
	step := o.runStep(ctx, stage, runner)
	result.Steps = append(result.Steps, step)
	if !step.OK {
		result.Success = false
		detail := step.Detail
		result.Error = &detail
	}

	o.recordPipelineCheckpoint(ctx, &result)
	return result, nil
}

// Status reports the pipeline-level checkpoint.
func (o *Orchestrator) Status(ctx context.Context) (models.PipelineStatus, error) {
	cp, err := o.checkpoints.Get(ctx, models.StagePipeline, 0, domainrepo.Timeframe(models.PipelineTimeframe))
	if err != nil {
		return models.PipelineStatus{}, err
	}
	if cp == nil {
		return models.PipelineStatus{Status: "never_run"}, nil
	}
	return models.PipelineStatus{LastRunAt: cp.LastRunAt, Status: cp.Status}, nil
}

func (o *Orchestrator) runStep(ctx context.Context, name string, runner stageRunner) models.StepResult {
	o.logger.Info("stage starting", applogger.String("stage", name))
	outcome := runner.Run(ctx)

	step := models.StepResult{Name: name, OK: !outcome.Failed()}
	if step.OK {
		step.Status = models.CheckpointCompleted
	} else {
		step.Status = models.CheckpointFailed
		step.Detail = summarizeErrors(outcome.Errors)
	}

	o.metrics.RecordStageRun(name, step.OK)
	o.logger.Info("stage finished",
		applogger.String("stage", name),
		applogger.Bool("ok", step.OK),
		applogger.Int("pairs", outcome.Pairs),
		applogger.Int("processed", outcome.Processed),
		applogger.Int("upserted", outcome.Upserted),
		applogger.Int("errors", len(outcome.Errors)),
		applogger.Int64("duration_ms", outcome.DurationMS))
	return step
}

// recordPipelineCheckpoint writes the pipeline-level row. A write
// failure downgrades the result but never masks the step outcomes.
func (o *Orchestrator) recordPipelineCheckpoint(ctx context.Context, result *models.RunResult) {
	status := models.CheckpointCompleted
	if !result.Success {
		status = models.CheckpointFailed
	}
	now := o.now().Unix()
	cp := models.Checkpoint{
		Stage:         models.StagePipeline,
		InstrumentID:  0,
		Timeframe:     models.PipelineTimeframe,
		LastTimestamp: now,
		LastRunAt:     now,
		Status:        status,
	}
	if err := o.checkpoints.Set(ctx, cp); err != nil {
		o.logger.Error("pipeline checkpoint write failed", applogger.Error(err))
		result.Success = false
		if result.Error == nil {
			msg := err.Error()
			result.Error = &msg
		}
	}
}

func summarizeErrors(errs []models.PairError) string {
	if len(errs) == 0 {
		return ""
	}
	first := errs[0]
	if len(errs) == 1 {
		return first.Message
	}
	return fmt.Sprintf("%s (and %d more)", first.Message, len(errs)-1)
}
