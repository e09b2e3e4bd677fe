package models

// Trend direction values.
const (
	TrendBullish = "Bullish"
	TrendBearish = "Bearish"
)

// TrendRecord pairs the short and long EMA at one bar and carries the
// derived trend plus the crossover event, if one fired at this bar.
// Unique on (instrument_id, timeframe, ts). Crossover is nil when no
// event occurred (the common case).
type TrendRecord struct {
	InstrumentID int64   `json:"instrument_id"`
	Timeframe    string  `json:"timeframe"`
	Timestamp    int64   `json:"ts"`
	ShortEMA     float64 `json:"short_ema"`
	LongEMA      float64 `json:"long_ema"`
	Trend        string  `json:"trend"`
	Crossover    *string `json:"crossover"`
}
