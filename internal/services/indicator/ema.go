// Package indicator holds the pure series math the pipeline stages run:
// EMA computation and trend/crossover evaluation. Everything here is
// deterministic over its inputs so stage reruns are idempotent.
package indicator

import "math"

// Point is one computed value aligned to a candle timestamp.
type Point struct {
	Timestamp int64
	Value     float64
}

// ComputeEMA returns the EMA series for closes using the standard
// charting convention: the first value is the arithmetic mean of the
// first period closes (SMA seed), each subsequent value is
// close*alpha + prev*(1-alpha) with alpha = 2/(period+1).
//
// Result[i] aligns with closes[period-1+i]; values are rounded to 6
// decimals for storage stability. Returns nil when the series is
// shorter than period.
func ComputeEMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}

	var sum float64
	for _, c := range closes[:period] {
		sum += c
	}
	ema := sum / float64(period)

	alpha := 2.0 / float64(period+1)
	out := make([]float64, 0, len(closes)-period+1)
	out = append(out, Round6(ema))
	for _, c := range closes[period:] {
		ema = c*alpha + ema*(1-alpha)
		out = append(out, Round6(ema))
	}
	return out
}

// Round6 rounds v to 6 decimal places.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Round2 rounds v to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}
