package models

// PairError is a failure isolated to one (instrument, timeframe) work
// item. One bad pair never blocks the rest of a stage.
type PairError struct {
	InstrumentID int64  `json:"instrument_id"`
	Timeframe    string `json:"timeframe"`
	Kind         string `json:"kind"` // "provider" | "store" | "config" | "internal"
	Message      string `json:"message"`
}

// StageOutcome is what one stage run reports back to the orchestrator.
type StageOutcome struct {
	Stage      string      `json:"stage"`
	Pairs      int         `json:"pairs"`
	Processed  int         `json:"processed"`
	Upserted   int         `json:"upserted"`
	Errors     []PairError `json:"errors,omitempty"`
	DurationMS int64       `json:"duration_ms"`
}

// Failed reports whether any pair in the stage failed.
func (o *StageOutcome) Failed() bool { return len(o.Errors) > 0 }

// StepResult is one orchestrator step in the trigger response.
type StepResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// RunResult is the orchestrator trigger response body.
type RunResult struct {
	Success bool         `json:"success"`
	Error   *string      `json:"error"`
	Steps   []StepResult `json:"steps"`
}

// PipelineStatus reports the pipeline-level checkpoint for operators.
type PipelineStatus struct {
	LastRunAt int64  `json:"last_run_at"`
	Status    string `json:"status"`
}

// SnapshotRequest filters the snapshot read endpoint.
type SnapshotRequest struct {
	Symbol string `query:"symbol" validate:"omitempty,max=32"`
}

// StageRunRequest selects a single stage for a targeted rerun.
type StageRunRequest struct {
	Stage string `param:"stage" validate:"required,oneof=ingest indicator trend aggregate"`
}
