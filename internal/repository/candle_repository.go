package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/repository/reststore"
)

// CandleRepository persists OHLCV bars in the REST store.
type CandleRepository struct {
	store *reststore.Client
}

// NewCandleRepository creates a candle repository.
func NewCandleRepository(store *reststore.Client) *CandleRepository {
	return &CandleRepository{store: store}
}

func (r *CandleRepository) Upsert(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.store.Upsert(ctx, tableCandles, candles, "instrument_id,timeframe,ts")
}

func (r *CandleRepository) Window(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe, limit int) ([]models.Candle, error) {
	var rows []models.Candle
	err := r.store.Select(ctx, tableCandles, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
			"timeframe":     eqStr(string(tf)),
		},
		Order: "ts.desc",
		Limit: limit,
	}, &rows)
	if err != nil {
		return nil, err
	}
	reverseCandles(rows)
	return rows, nil
}

func (r *CandleRepository) Latest(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe) (*models.Candle, error) {
	var rows []models.Candle
	err := r.store.Select(ctx, tableCandles, reststore.Query{
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

func (r *CandleRepository) LatestAny(ctx context.Context, instrumentID int64) (*models.Candle, error) {
	var rows []models.Candle
	err := r.store.Select(ctx, tableCandles, reststore.Query{
		Filters: map[string]string{"instrument_id": eqInt(instrumentID)},
		Order:   "ts.desc",
		Limit:   1,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *CandleRepository) LatestBefore(ctx context.Context, instrumentID int64, beforeTS int64) (*models.Candle, error) {
	var rows []models.Candle
	err := r.store.Select(ctx, tableCandles, reststore.Query{
		Filters: map[string]string{
			"instrument_id": eqInt(instrumentID),
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

func (r *CandleRepository) NthNewestTS(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe, n int) (int64, bool, error) {
	var rows []struct {
		TS int64 `json:"ts"`
	}
	err := r.store.Select(ctx, tableCandles, reststore.Query{
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

func (r *CandleRepository) DeleteOlderThan(ctx context.Context, instrumentID int64, tf domainrepo.Timeframe, beforeTS int64) error {
	return r.store.Delete(ctx, tableCandles, map[string]string{
		"instrument_id": eqInt(instrumentID),
		"timeframe":     eqStr(string(tf)),
		"ts":            ltInt(beforeTS),
	})
}

func reverseCandles(rows []models.Candle) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
