package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/lease"
)

type fakeStage struct {
	stage string
	errs  []models.PairError
	runs  int
}

func (f *fakeStage) Run(context.Context) models.StageOutcome {
	f.runs++
	return models.StageOutcome{Stage: f.stage, Pairs: 1, Processed: 1, Errors: f.errs}
}

func orchestratorFixture(checkpoints *memCheckpoints, locker lease.Locker, stages ...*fakeStage) (*Orchestrator, []*fakeStage) {
	if stages == nil {
		stages = []*fakeStage{
			{stage: models.StageIngest},
			{stage: models.StageIndicator},
			{stage: models.StageTrend},
			{stage: models.StageAggregate},
		}
	}
	o := NewOrchestrator(
		stages[0], stages[1], stages[2], stages[3],
		checkpoints, locker, noopMetrics{}, testLogger(), time.Minute,
	)
	return o, stages
}

func TestOrchestratorRunsAllStages(t *testing.T) {
	checkpoints := newMemCheckpoints()
	o, stages := orchestratorFixture(checkpoints, lease.NewLocalLocker())

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success || result.Error != nil {
		t.Errorf("result = %+v", result)
	}
	wantNames := []string{models.StageIngest, models.StageIndicator, models.StageTrend, models.StageAggregate}
	if len(result.Steps) != len(wantNames) {
		t.Fatalf("steps = %d", len(result.Steps))
	}
	for i, step := range result.Steps {
		if step.Name != wantNames[i] || !step.OK || step.Status != models.CheckpointCompleted {
			t.Errorf("step[%d] = %+v", i, step)
		}
	}
	for _, s := range stages {
		if s.runs != 1 {
			t.Errorf("stage %s runs = %d", s.stage, s.runs)
		}
	}

	cp, ok := checkpoints.get(models.StagePipeline, 0, models.PipelineTimeframe)
	if !ok || cp.Status != models.CheckpointCompleted {
		t.Errorf("pipeline checkpoint = %+v, ok=%v", cp, ok)
	}
}

func TestOrchestratorContinuesPastFailedStage(t *testing.T) {
	checkpoints := newMemCheckpoints()
	stages := []*fakeStage{
		{stage: models.StageIngest, errs: []models.PairError{{InstrumentID: 1, Timeframe: "5", Kind: "provider", Message: "HTTP 429"}}},
		{stage: models.StageIndicator},
		{stage: models.StageTrend},
		{stage: models.StageAggregate},
	}
	o, _ := orchestratorFixture(checkpoints, lease.NewLocalLocker(), stages...)

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success {
		t.Error("success must be false when a step failed")
	}
	if result.Error == nil || *result.Error == "" {
		t.Error("error detail missing")
	}
	if len(result.Steps) != 4 {
		t.Fatalf("steps = %d, want all 4 despite the failure", len(result.Steps))
	}
	if result.Steps[0].OK || result.Steps[0].Status != models.CheckpointFailed {
		t.Errorf("failed step = %+v", result.Steps[0])
	}
	for _, s := range stages[1:] {
		if s.runs != 1 {
			t.Errorf("stage %s did not run after failure", s.stage)
		}
	}

	cp, _ := checkpoints.get(models.StagePipeline, 0, models.PipelineTimeframe)
	if cp.Status != models.CheckpointFailed {
		t.Errorf("pipeline checkpoint status = %s", cp.Status)
	}
}

func TestOrchestratorRejectsOverlappingRun(t *testing.T) {
	locker := lease.NewLocalLocker()
	o, stages := orchestratorFixture(newMemCheckpoints(), locker)

	// Simulate a run in flight.
	if ok, _ := locker.Acquire(context.Background(), "trendpulse:pipeline:lease", time.Minute); !ok {
		t.Fatal("setup acquire failed")
	}

	_, err := o.Run(context.Background())
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("err = %v, want ErrRunInProgress", err)
	}
	for _, s := range stages {
		if s.runs != 0 {
			t.Errorf("stage %s ran while lease was held", s.stage)
		}
	}
}

func TestOrchestratorReleasesLease(t *testing.T) {
	o, _ := orchestratorFixture(newMemCheckpoints(), lease.NewLocalLocker())
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("second run should reacquire the lease: %v", err)
	}
}

func TestOrchestratorCheckpointWriteFailure(t *testing.T) {
	checkpoints := newMemCheckpoints()
	checkpoints.failSet = true
	o, _ := orchestratorFixture(checkpoints, lease.NewLocalLocker())

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success {
		t.Error("success must be false when the pipeline checkpoint write failed")
	}
	if result.Error == nil {
		t.Error("error detail missing")
	}
}

func TestOrchestratorRunStage(t *testing.T) {
	checkpoints := newMemCheckpoints()
	o, stages := orchestratorFixture(checkpoints, lease.NewLocalLocker())

	result, err := o.RunStage(context.Background(), models.StageTrend)
	if err != nil {
		t.Fatalf("run stage: %v", err)
	}
	if len(result.Steps) != 1 || result.Steps[0].Name != models.StageTrend {
		t.Fatalf("steps = %+v", result.Steps)
	}
	for _, s := range stages {
		want := 0
		if s.stage == models.StageTrend {
			want = 1
		}
		if s.runs != want {
			t.Errorf("stage %s runs = %d, want %d", s.stage, s.runs, want)
		}
	}
}

func TestOrchestratorRunStageUnknown(t *testing.T) {
	o, _ := orchestratorFixture(newMemCheckpoints(), lease.NewLocalLocker())
	_, err := o.RunStage(context.Background(), "compact")
	var ce *models.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestOrchestratorStatus(t *testing.T) {
	checkpoints := newMemCheckpoints()
	o, _ := orchestratorFixture(checkpoints, lease.NewLocalLocker())

	status, err := o.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != "never_run" {
		t.Errorf("status = %+v", status)
	}

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	status, err = o.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != models.CheckpointCompleted || status.LastRunAt == 0 {
		t.Errorf("status = %+v", status)
	}
}

var _ domainrepo.CheckpointRepository = (*memCheckpoints)(nil)
