package models

// Candle is one OHLCV bar. Unique on (instrument_id, timeframe, ts);
// ts is unix seconds of the bar open.
type Candle struct {
	InstrumentID int64   `json:"instrument_id"`
	Timeframe    string  `json:"timeframe"`
	Timestamp    int64   `json:"ts"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
	Volume       float64 `json:"volume"`
}

// Signal is one computed indicator value. Unique on
// (instrument_id, indicator_id, timeframe, ts).
type Signal struct {
	InstrumentID int64   `json:"instrument_id"`
	IndicatorID  int64   `json:"indicator_id"`
	Timeframe    string  `json:"timeframe"`
	Timestamp    int64   `json:"ts"`
	Value        float64 `json:"value"`
}
