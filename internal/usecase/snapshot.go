package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/cache"
)

const snapshotCacheKey = "snapshot:all"

// SnapshotReader serves the derived snapshot table to read-only clients,
// with a short cache in front so bursts of dashboard polls do not hit
// the store.
type SnapshotReader struct {
	snapshots domainrepo.SnapshotRepository
	cache     cache.BytesCache
	ttl       time.Duration
}

// NewSnapshotReader creates a snapshot reader. cache may be nil to
// disable caching.
func NewSnapshotReader(snapshots domainrepo.SnapshotRepository, c cache.BytesCache, ttl time.Duration) *SnapshotReader {
	return &SnapshotReader{snapshots: snapshots, cache: c, ttl: ttl}
}

// List returns snapshot rows, optionally filtered to one symbol
// (case-insensitive).
func (u *SnapshotReader) List(ctx context.Context, symbol string) ([]models.StrategySnapshot, error) {
	rows, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	if symbol == "" {
		return rows, nil
	}
	out := make([]models.StrategySnapshot, 0, 1)
	for _, r := range rows {
		if strings.EqualFold(r.Symbol, symbol) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (u *SnapshotReader) load(ctx context.Context) ([]models.StrategySnapshot, error) {
	if u.cache != nil {
		if b, ok, err := u.cache.GetBytes(snapshotCacheKey); err == nil && ok {
			var rows []models.StrategySnapshot
			if jerr := json.Unmarshal(b, &rows); jerr == nil {
				return rows, nil
			}
		}
	}

	rows, err := u.snapshots.All(ctx)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		if b, err := json.Marshal(rows); err == nil {
			_ = u.cache.SetBytes(snapshotCacheKey, b, u.ttl)
		}
	}
	return rows, nil
}
