package models

// SnapshotFrame is the per-timeframe slice of a snapshot row: the latest
// trend direction and the timestamp of the latest crossover event.
type SnapshotFrame struct {
	Trend       string `json:"trend"`
	CrossoverTS *int64 `json:"crossover_ts"`
}

// StrategySnapshot is the derived latest-state row per instrument that
// read-only clients consume. It is fully rebuildable from candles and
// trend records and is never treated as authoritative.
type StrategySnapshot struct {
	InstrumentID int64                    `json:"instrument_id"`
	Symbol       string                   `json:"symbol"`
	Price        float64                  `json:"price"`
	PriceTS      int64                    `json:"price_ts"`
	ChangePct    *float64                 `json:"change_pct"`
	Frames       map[string]SnapshotFrame `json:"frames"`
	UpdatedAt    int64                    `json:"updated_at"`
}
