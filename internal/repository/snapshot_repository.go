package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/repository/reststore"
)

// SnapshotRepository persists derived latest-state rows in the REST store.
type SnapshotRepository struct {
	store *reststore.Client
}

// NewSnapshotRepository creates a snapshot repository.
func NewSnapshotRepository(store *reststore.Client) *SnapshotRepository {
	return &SnapshotRepository{store: store}
}

func (r *SnapshotRepository) UpsertAll(ctx context.Context, rows []models.StrategySnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	return r.store.Upsert(ctx, tableSnapshots, rows, "instrument_id")
}

// DeleteNotIn removes snapshot rows whose instrument is no longer in the
// given set. An empty set clears the table.
func (r *SnapshotRepository) DeleteNotIn(ctx context.Context, instrumentIDs []int64) error {
	filters := map[string]string{"instrument_id": "gte.0"}
	if len(instrumentIDs) > 0 {
		filters["instrument_id"] = notInInts(instrumentIDs)
	}
	return r.store.Delete(ctx, tableSnapshots, filters)
}

func (r *SnapshotRepository) All(ctx context.Context) ([]models.StrategySnapshot, error) {
	var rows []models.StrategySnapshot
	err := r.store.Select(ctx, tableSnapshots, reststore.Query{
		Order: "symbol.asc",
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
