package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/repository/reststore"
)

// CheckpointRepository persists stage progress in the REST store.
type CheckpointRepository struct {
	store *reststore.Client
}

// NewCheckpointRepository creates a checkpoint repository.
func NewCheckpointRepository(store *reststore.Client) *CheckpointRepository {
	return &CheckpointRepository{store: store}
}

func (r *CheckpointRepository) Get(ctx context.Context, stage string, instrumentID int64, tf domainrepo.Timeframe) (*models.Checkpoint, error) {
	var rows []models.Checkpoint
	err := r.store.Select(ctx, tableCheckpoints, reststore.Query{
		Filters: map[string]string{
			"stage":         eqStr(stage),
			"instrument_id": eqInt(instrumentID),
			"timeframe":     eqStr(string(tf)),
		},
		Limit: 1,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *CheckpointRepository) Set(ctx context.Context, cp models.Checkpoint) error {
	return r.store.Upsert(ctx, tableCheckpoints, []models.Checkpoint{cp}, "stage,instrument_id,timeframe")
}
