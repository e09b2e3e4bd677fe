package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/repository/reststore"
)

// InstrumentRepository reads the externally managed instrument catalog.
type InstrumentRepository struct {
	store *reststore.Client
}

// NewInstrumentRepository creates an instrument repository.
func NewInstrumentRepository(store *reststore.Client) *InstrumentRepository {
	return &InstrumentRepository{store: store}
}

func (r *InstrumentRepository) Active(ctx context.Context) ([]models.Instrument, error) {
	var rows []models.Instrument
	err := r.store.Select(ctx, tableInstruments, reststore.Query{
		Filters: map[string]string{"active": "is.true"},
		Order:   "id.asc",
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IndicatorConfigRepository reads indicator definitions.
type IndicatorConfigRepository struct {
	store *reststore.Client
}

// NewIndicatorConfigRepository creates an indicator config repository.
func NewIndicatorConfigRepository(store *reststore.Client) *IndicatorConfigRepository {
	return &IndicatorConfigRepository{store: store}
}

// ActiveEMAs returns active EMA configs ordered by period ascending, so
// the first is the short leg and the last the long leg.
func (r *IndicatorConfigRepository) ActiveEMAs(ctx context.Context) ([]models.IndicatorConfig, error) {
	var rows []models.IndicatorConfig
	err := r.store.Select(ctx, tableIndicatorConfigs, reststore.Query{
		Filters: map[string]string{
			"active": "is.true",
			"type":   eqStr("ema"),
		},
		Order: "period.asc",
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
