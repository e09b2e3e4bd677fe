package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/repository/reststore"
)

// TrendRepository persists trend/crossover records in the REST store.
type TrendRepository struct {
	store *reststore.Client
}

// NewTrendRepository creates a trend repository.
func NewTrendRepository(store *reststore.Client) *TrendRepository {
	return &TrendRepository{store: store}
}

func (r *TrendRepository) Upsert(ctx context.Context, records []models.TrendRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.store.Upsert(ctx, tableTrends, records, "instrument_id,timeframe,ts")
}

func (r *TrendRepository) Latest(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe) (*models.TrendRecord, error) {
	var rows []models.TrendRecord
	err := r.store.Select(ctx, tableTrends, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
			"timeframe":     eqStr(string(tf)),
		},
		Order: "ts.desc",
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

func (r *TrendRepository) LatestCrossover(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe) (*models.TrendRecord, error) {
	var rows []models.TrendRecord
	err := r.store.Select(ctx, tableTrends, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
			"timeframe":     eqStr(string(tf)),
			"crossover":     "not.is.null",
		},
		Order: "ts.desc",
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

func (r *TrendRepository) NthNewestTS(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe, n int) (int64, bool, error) {
	var rows []struct {
		TS int64 `json:"ts"`
	}
	err := r.store.Select(ctx, tableTrends, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
			"timeframe":     eqStr(string(tf)),
		},
		Select: "ts",
		Order:  "ts.desc",
		Limit:  n,
	}, &rows)
	if err != nil {
		return 0, false, err
	}
	if len(rows) < n {
		return 0, false, nil
	}
	return rows[n-1].TS, true, nil
}

func (r *TrendRepository) DeleteOlderThan(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe, beforeTS int64) error {
	return r.store.Delete(ctx, tableTrends, map[string]string{
		"instrument_id": eqInt(instrumentID),
		"timeframe":     eqStr(string(tf)),
		"ts":            ltInt(beforeTS),
	})
}
