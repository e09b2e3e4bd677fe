package usecase

import (
	"context"
	"testing"
	"time"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/service/cache"
)

func TestSnapshotReaderFiltersBySymbol(t *testing.T) {
	snapshots := newMemSnapshots()
	snapshots.UpsertAll(context.Background(), []models.StrategySnapshot{
		{InstrumentID: 1, Symbol: "RELIANCE", Price: 110},
		{InstrumentID: 2, Symbol: "TCS", Price: 3500},
	})
	u := NewSnapshotReader(snapshots, nil, 0)

	all, err := u.List(context.Background(), "")
	if err != nil || len(all) != 2 {
		t.Fatalf("all = %d, err = %v", len(all), err)
	}

	one, err := u.List(context.Background(), "reliance")
	if err != nil || len(one) != 1 || one[0].Symbol != "RELIANCE" {
		t.Fatalf("filtered = %+v, err = %v", one, err)
	}

	none, err := u.List(context.Background(), "INFY")
	if err != nil || len(none) != 0 {
		t.Fatalf("missing symbol = %+v, err = %v", none, err)
	}
}

func TestSnapshotReaderServesFromCache(t *testing.T) {
	snapshots := newMemSnapshots()
	snapshots.UpsertAll(context.Background(), []models.StrategySnapshot{
		{InstrumentID: 1, Symbol: "RELIANCE", Price: 110},
	})
	u := NewSnapshotReader(snapshots, cache.NewTTLCache(), time.Minute)

	if _, err := u.List(context.Background(), ""); err != nil {
		t.Fatalf("warm: %v", err)
	}

	// A store update within the TTL is not visible; the cached copy is
	// served instead.
	snapshots.UpsertAll(context.Background(), []models.StrategySnapshot{
		{InstrumentID: 1, Symbol: "RELIANCE", Price: 999},
	})
	rows, err := u.List(context.Background(), "")
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if len(rows) != 1 || rows[0].Price != 110 {
		t.Errorf("rows = %+v, want cached price 110", rows)
	}
}
