package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
)

// Pair is one (instrument, timeframe) work item.
type Pair struct {
	Instrument models.Instrument
	Timeframe  domainrepo.Timeframe
}

// buildPairs crosses the active instruments with the configured
// timeframes in a stable order.
func buildPairs(instruments []models.Instrument, timeframes []string) []Pair {
	pairs := make([]Pair, 0, len(instruments)*len(timeframes))
	for _, inst := range instruments {
		for _, tf := range timeframes {
			pairs = append(pairs, Pair{Instrument: inst, Timeframe: domainrepo.Timeframe(tf)})
		}
	}
	return pairs
}

// runPairs executes fn over pairs in chunks of batchSize concurrent
// workers, pausing between chunks so the upstream provider is not
// hammered. A nil return from fn means the pair succeeded.
func runPairs(ctx context.Context, pairs []Pair, batchSize int, pause time.Duration, fn func(context.Context, Pair) *models.PairError) []models.PairError {
	if batchSize <= 0 {
		batchSize = 1
	}

	var mu sync.Mutex
	var errs []models.PairError

	for start := 0; start < len(pairs); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}

		var wg sync.WaitGroup
		for _, pair := range pairs[start:end] {
			wg.Add(1)
			go func(p Pair) {
				defer wg.Done()
				if perr := fn(ctx, p); perr != nil {
					mu.Lock()
					errs = append(errs, *perr)
					mu.Unlock()
				}
			}(pair)
		}
		wg.Wait()

		if end < len(pairs) && pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(pause):
			}
		}
	}

	return errs
}

func atomicAdd(addr *int64, delta int64) {
	atomic.AddInt64(addr, delta)
}

// pairError builds a PairError from a typed stage error.
func pairError(p Pair, err error) *models.PairError {
	return &models.PairError{
		InstrumentID: p.Instrument.ID,
		Timeframe:    string(p.Timeframe),
		Kind:         errorKind(err),
		Message:      err.Error(),
	}
}

func errorKind(err error) string {
	var pe *models.ProviderError
	var se *models.StoreError
	var ce *models.ConfigError
	switch {
	case errors.As(err, &pe):
		return "provider"
	case errors.As(err, &se):
		return "store"
	case errors.As(err, &ce):
		return "config"
	default:
		return "internal"
	}
}
