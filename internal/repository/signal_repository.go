package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/repository/reststore"
)

// SignalRepository persists computed indicator values in the REST store.
type SignalRepository struct {
	store *reststore.Client
}

// NewSignalRepository creates a signal repository.
func NewSignalRepository(store *reststore.Client) *SignalRepository {
	return &SignalRepository{store: store}
}

func (r *SignalRepository) Upsert(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	return r.store.Upsert(ctx, tableSignals, signals, "instrument_id,indicator_id,timeframe,ts")
}

func (r *SignalRepository) ExistingTimestamps(ctx context.Context, instrumentID, indicatorID int64, tf domainrepo.Timeframe, fromTS, toTS int64) ([]int64, error) {
	var rows []struct {
		TS int64 `json:"ts"`
	}
	err := r.store.Select(ctx, tableSignals, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
			"indicator_id":  eqInt(indicatorID),
			"timeframe":     eqStr(string(tf)),
			"and":           andRange("ts", fromTS, toTS),
		},
		Select: "ts",
		Order:  "ts.asc",
	}, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(rows))
	for i, row := range rows {
		out[i] = row.TS
	}
	return out, nil
}

func (r *SignalRepository) At(ctx context.Context, instrumentID, indicatorID int64, tf domainrepo.Timeframe, timestamps []int64) ([]models.Signal, error) {
	if len(timestamps) == 0 {
		return nil, nil
	}
	var rows []models.Signal
	err := r.store.Select(ctx, tableSignals, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
			"indicator_id":  eqInt(indicatorID),
			"timeframe":     eqStr(string(tf)),
			"ts":            inInts(timestamps),
		},
		Order: "ts.asc",
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SignalRepository) LatestBefore(ctx context.Context, instrumentID, indicatorID int64, tf domainrepo.Timeframe, beforeTS int64) (*models.Signal, error) {
	var rows []models.Signal
	err := r.store.Select(ctx, tableSignals, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
			"indicator_id":  eqInt(indicatorID),
			"timeframe":     eqStr(string(tf)),
			"ts":            ltInt(beforeTS),
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

func (r *SignalRepository) NthNewestTS(ctx context.Context, instrumentID, indicatorID int64, tf domainrepo.Timeframe, n int) (int64, bool, error) {
	var rows []struct {
		TS int64 `json:"ts"`
	}
	err := r.store.Select(ctx, tableSignals, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
			"indicator_id":  eqInt(indicatorID),
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

func (r *SignalRepository) DeleteOlderThan(ctx context.Context, instrumentID, indicatorID int64, tf domainrepo.Timeframe, beforeTS int64) error {
	return r.store.Delete(ctx, tableSignals, map[string]string{
		"instrument_id": eqInt(instrumentID),
		"indicator_id":  eqInt(indicatorID),
		"timeframe":     eqStr(string(tf)),
		"ts":            ltInt(beforeTS),
	})
}
