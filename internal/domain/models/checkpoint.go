package models

// Stage names used as checkpoint keys.
const (
	StageIngest    = "ingest"
	StageIndicator = "indicator"
	StageTrend     = "trend"
	StageAggregate = "aggregate"
	StagePipeline  = "pipeline"
)

// Checkpoint statuses.
const (
	CheckpointPending    = "pending"
	CheckpointProcessing = "processing"
	CheckpointCompleted  = "completed"
	CheckpointFailed     = "failed"
)

// PipelineTimeframe is the timeframe key of the pipeline-level checkpoint
// row (stage="pipeline", instrument_id=0).
const PipelineTimeframe = "global"

// Checkpoint records, per (stage, instrument, timeframe), the newest
// timestamp a stage has durably processed. LastTimestamp is monotonically
// non-decreasing per key and reflects data actually persisted downstream,
// not merely fetched.
type Checkpoint struct {
	Stage         string `json:"stage"`
	InstrumentID  int64  `json:"instrument_id"`
	Timeframe     string `json:"timeframe"`
	LastTimestamp int64  `json:"last_ts"`
	LastRunAt     int64  `json:"last_run_at"`
	Status        string `json:"status"`
}
