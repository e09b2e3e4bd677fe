package indicator

import (
	"testing"

	"TrendPulse/internal/domain/models"
)

func TestEvaluateTrendCrossoverSequence(t *testing.T) {
	points := []PairPoint{
		{Timestamp: 100, Short: 10, Long: 12},
		{Timestamp: 200, Short: 11, Long: 11},
		{Timestamp: 300, Short: 13, Long: 10},
	}
	got := EvaluateTrend(points, Carry{})
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}

	wantTrends := []string{models.TrendBearish, models.TrendBullish, models.TrendBullish}
	for i, w := range wantTrends {
		if got[i].Trend != w {
			t.Errorf("point %d: trend=%s, want %s", i, got[i].Trend, w)
		}
	}

	if got[0].Crossover != nil {
		t.Errorf("point 0: unexpected crossover %v (no carry-in)", *got[0].Crossover)
	}
	if got[1].Crossover == nil || *got[1].Crossover != models.TrendBullish {
		t.Errorf("point 1: want Bullish crossover, got %v", got[1].Crossover)
	}
	if got[2].Crossover != nil {
		t.Errorf("point 2: unexpected crossover %v", *got[2].Crossover)
	}
}

func TestEvaluateTrendCarryIn(t *testing.T) {
	// With carry-in state the very first point can fire a crossover.
	carry := Carry{PrevShort: 9, PrevLong: 10, Valid: true}
	got := EvaluateTrend([]PairPoint{{Timestamp: 100, Short: 11, Long: 10}}, carry)
	if len(got) != 1 {
		t.Fatalf("len=%d, want 1", len(got))
	}
	if got[0].Crossover == nil || *got[0].Crossover != models.TrendBullish {
		t.Errorf("want Bullish crossover on first point, got %v", got[0].Crossover)
	}
}

func TestEvaluateTrendBearishCrossover(t *testing.T) {
	points := []PairPoint{
		{Timestamp: 100, Short: 12, Long: 10},
		{Timestamp: 200, Short: 10, Long: 10},
	}
	got := EvaluateTrend(points, Carry{})
	if got[1].Crossover == nil || *got[1].Crossover != models.TrendBearish {
		t.Errorf("want Bearish crossover at point 1, got %v", got[1].Crossover)
	}
	// short == long still counts as Bullish trend
	if got[1].Trend != models.TrendBullish {
		t.Errorf("trend=%s, want Bullish on tie", got[1].Trend)
	}
}

func TestEvaluateTrendEqualPriorNoCrossover(t *testing.T) {
	// A prior tie can never produce a crossover in either direction.
	carry := Carry{PrevShort: 10, PrevLong: 10, Valid: true}
	got := EvaluateTrend([]PairPoint{{Timestamp: 100, Short: 15, Long: 5}}, carry)
	if got[0].Crossover != nil {
		t.Errorf("unexpected crossover %v after tied prior", *got[0].Crossover)
	}
}
