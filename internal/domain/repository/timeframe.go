package repository

import "strconv"

// Timeframe is candle granularity in minutes, stored as its string form
// (the store keys series on it).
type Timeframe string

const (
	TF5  Timeframe = "5"
	TF15 Timeframe = "15"
	TF60 Timeframe = "60"
)

// Minutes returns the timeframe width in minutes (0 if malformed).
func (tf Timeframe) Minutes() int {
	n, err := strconv.Atoi(string(tf))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// IsValidTimeframe returns true if tf parses to a positive minute count.
func IsValidTimeframe(tf Timeframe) bool {
	return tf.Minutes() > 0
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF5 }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
