package models

// Instrument is a tracked security. Rows are managed externally; the
// pipeline only reads them and uses the routing fields to address the
// upstream provider.
type Instrument struct {
	ID              int64  `json:"id"`
	Symbol          string `json:"symbol"`
	SecurityID      string `json:"security_id"`
	ExchangeSegment string `json:"exchange_segment"`
	InstrumentType  string `json:"instrument_type"`
	Active          bool   `json:"active"`
}

// IndicatorConfig is a read-only indicator definition consumed by the
// indicator stage. Only type "ema" is computed.
type IndicatorConfig struct {
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	Period int    `json:"period"`
	Active bool   `json:"active"`
}
