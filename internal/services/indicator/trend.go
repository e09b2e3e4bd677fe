package indicator

import "TrendPulse/internal/domain/models"

// PairPoint is a short/long EMA pair at one timestamp.
type PairPoint struct {
	Timestamp int64
	Short     float64
	Long      float64
}

// Carry is the fold accumulator for crossover evaluation: the pair
// values of the immediately preceding point. Valid is false at the start
// of a series with no history, in which case the first point yields a
// trend but never a crossover.
type Carry struct {
	PrevShort float64
	PrevLong  float64
	Valid     bool
}

// EvaluateTrend folds over points in ascending timestamp order and
// derives the trend direction and crossover event at each step.
//
// Trend is Bullish when short >= long, else Bearish. A Bullish crossover
// fires when the prior short was below the prior long and the current
// short is at or above the current long; Bearish is the mirror case.
// Points must already be sorted ascending; each step's decision depends
// on the previous step's pair, which the step then replaces.
func EvaluateTrend(points []PairPoint, carry Carry) []models.TrendRecord {
	out := make([]models.TrendRecord, 0, len(points))
	for _, p := range points {
		rec := models.TrendRecord{
			Timestamp: p.Timestamp,
			ShortEMA:  p.Short,
			LongEMA:   p.Long,
			Trend:     models.TrendBearish,
		}
		if p.Short >= p.Long {
			rec.Trend = models.TrendBullish
		}
		if carry.Valid {
			switch {
			case carry.PrevShort < carry.PrevLong && p.Short >= p.Long:
				v := models.TrendBullish
				rec.Crossover = &v
			case carry.PrevShort > carry.PrevLong && p.Short <= p.Long:
				v := models.TrendBearish
				rec.Crossover = &v
			}
		}
		out = append(out, rec)
		carry = Carry{PrevShort: p.Short, PrevLong: p.Long, Valid: true}
	}
	return out
}
