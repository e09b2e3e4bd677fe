package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	applogger "TrendPulse/pkg/logger"
)

func testLogger() *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

// --- in-memory repositories ---

type candleKey struct {
	instrumentID int64
	timeframe    string
}

type memCandles struct {
	mu   sync.Mutex
	rows map[candleKey]map[int64]models.Candle
	// failUpsert simulates a store outage on write.
	failUpsert  bool
	upserts     int
	windowReads int
}

func newMemCandles() *memCandles {
	return &memCandles{rows: make(map[candleKey]map[int64]models.Candle)}
}

func (m *memCandles) Upsert(_ context.Context, candles []models.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert {
		return models.NewStoreError("upsert", "candles", fmt.Errorf("store down"))
	}
	m.upserts++
	for _, c := range candles {
		k := candleKey{c.InstrumentID, c.Timeframe}
		if m.rows[k] == nil {
			m.rows[k] = make(map[int64]models.Candle)
		}
		m.rows[k][c.Timestamp] = c
	}
	return nil
}

func (m *memCandles) sorted(k candleKey) []models.Candle {
	out := make([]models.Candle, 0, len(m.rows[k]))
	for _, c := range m.rows[k] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func (m *memCandles) Window(_ context.Context, id int64, tf domainrepo.Timeframe, limit int) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowReads++
	all := m.sorted(candleKey{id, string(tf)})
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *memCandles) Latest(_ context.Context, id int64, tf domainrepo.Timeframe) (*models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(candleKey{id, string(tf)})
	if len(all) == 0 {
		return nil, nil
	}
	c := all[len(all)-1]
	return &c, nil
}

func (m *memCandles) LatestAny(_ context.Context, id int64) (*models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Candle
	for k := range m.rows {
		if k.instrumentID != id {
			continue
		}
		all := m.sorted(k)
		if len(all) == 0 {
			continue
		}
		c := all[len(all)-1]
		if best == nil || c.Timestamp > best.Timestamp {
			cc := c
			best = &cc
		}
	}
	return best, nil
}

func (m *memCandles) LatestBefore(_ context.Context, id int64, beforeTS int64) (*models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Candle
	for k := range m.rows {
		if k.instrumentID != id {
			continue
		}
		for _, c := range m.sorted(k) {
			if c.Timestamp >= beforeTS {
				continue
			}
			if best == nil || c.Timestamp > best.Timestamp {
				cc := c
				best = &cc
			}
		}
	}
	return best, nil
}

func (m *memCandles) NthNewestTS(_ context.Context, id int64, tf domainrepo.Timeframe, n int) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(candleKey{id, string(tf)})
	if len(all) < n {
		return 0, false, nil
	}
	return all[len(all)-n].Timestamp, true, nil
}

func (m *memCandles) DeleteOlderThan(_ context.Context, id int64, tf domainrepo.Timeframe, beforeTS int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := candleKey{id, string(tf)}
	for ts := range m.rows[k] {
		if ts < beforeTS {
			delete(m.rows[k], ts)
		}
	}
	return nil
}

type signalKey struct {
	instrumentID int64
	indicatorID  int64
	timeframe    string
}

type memSignals struct {
	mu   sync.Mutex
	rows map[signalKey]map[int64]models.Signal
}

func newMemSignals() *memSignals {
	return &memSignals{rows: make(map[signalKey]map[int64]models.Signal)}
}

func (m *memSignals) Upsert(_ context.Context, signals []models.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range signals {
		k := signalKey{s.InstrumentID, s.IndicatorID, s.Timeframe}
		if m.rows[k] == nil {
			m.rows[k] = make(map[int64]models.Signal)
		}
		m.rows[k][s.Timestamp] = s
	}
	return nil
}

func (m *memSignals) sorted(k signalKey) []models.Signal {
	out := make([]models.Signal, 0, len(m.rows[k]))
	for _, s := range m.rows[k] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func (m *memSignals) ExistingTimestamps(_ context.Context, id, indID int64, tf domainrepo.Timeframe, fromTS, toTS int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, s := range m.sorted(signalKey{id, indID, string(tf)}) {
		if s.Timestamp >= fromTS && s.Timestamp <= toTS {
			out = append(out, s.Timestamp)
		}
	}
	return out, nil
}

func (m *memSignals) At(_ context.Context, id, indID int64, tf domainrepo.Timeframe, timestamps []int64) ([]models.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[int64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		want[ts] = struct{}{}
	}
	var out []models.Signal
	for _, s := range m.sorted(signalKey{id, indID, string(tf)}) {
		if _, ok := want[s.Timestamp]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSignals) LatestBefore(_ context.Context, id, indID int64, tf domainrepo.Timeframe, beforeTS int64) (*models.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Signal
	for _, s := range m.sorted(signalKey{id, indID, string(tf)}) {
		if s.Timestamp < beforeTS {
			ss := s
			best = &ss
		}
	}
	return best, nil
}

func (m *memSignals) NthNewestTS(_ context.Context, id, indID int64, tf domainrepo.Timeframe, n int) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(signalKey{id, indID, string(tf)})
	if len(all) < n {
		return 0, false, nil
	}
	return all[len(all)-n].Timestamp, true, nil
}

func (m *memSignals) DeleteOlderThan(_ context.Context, id, indID int64, tf domainrepo.Timeframe, beforeTS int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := signalKey{id, indID, string(tf)}
	for ts := range m.rows[k] {
		if ts < beforeTS {
			delete(m.rows[k], ts)
		}
	}
	return nil
}

func (m *memSignals) count(id, indID int64, tf string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[signalKey{id, indID, tf}])
}

type memTrends struct {
	mu   sync.Mutex
	rows map[candleKey]map[int64]models.TrendRecord
}

func newMemTrends() *memTrends {
	return &memTrends{rows: make(map[candleKey]map[int64]models.TrendRecord)}
}

func (m *memTrends) Upsert(_ context.Context, records []models.TrendRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		k := candleKey{r.InstrumentID, r.Timeframe}
		if m.rows[k] == nil {
			m.rows[k] = make(map[int64]models.TrendRecord)
		}
		m.rows[k][r.Timestamp] = r
	}
	return nil
}

func (m *memTrends) sorted(k candleKey) []models.TrendRecord {
	out := make([]models.TrendRecord, 0, len(m.rows[k]))
	for _, r := range m.rows[k] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func (m *memTrends) Latest(_ context.Context, id int64, tf domainrepo.Timeframe) (*models.TrendRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(candleKey{id, string(tf)})
	if len(all) == 0 {
		return nil, nil
	}
	r := all[len(all)-1]
	return &r, nil
}

func (m *memTrends) LatestCrossover(_ context.Context, id int64, tf domainrepo.Timeframe) (*models.TrendRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(candleKey{id, string(tf)})
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Crossover != nil {
			r := all[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memTrends) NthNewestTS(_ context.Context, id int64, tf domainrepo.Timeframe, n int) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(candleKey{id, string(tf)})
	if len(all) < n {
		return 0, false, nil
	}
	return all[len(all)-n].Timestamp, true, nil
}

func (m *memTrends) DeleteOlderThan(_ context.Context, id int64, tf domainrepo.Timeframe, beforeTS int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := candleKey{id, string(tf)}
	for ts := range m.rows[k] {
		if ts < beforeTS {
			delete(m.rows[k], ts)
		}
	}
	return nil
}

type cpKey struct {
	stage        string
	instrumentID int64
	timeframe    string
}

type memCheckpoints struct {
	mu      sync.Mutex
	rows    map[cpKey]models.Checkpoint
	failSet bool
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{rows: make(map[cpKey]models.Checkpoint)}
}

func (m *memCheckpoints) Get(_ context.Context, stage string, id int64, tf domainrepo.Timeframe) (*models.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.rows[cpKey{stage, id, string(tf)}]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (m *memCheckpoints) Set(_ context.Context, cp models.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return models.NewStoreError("upsert", "checkpoints", fmt.Errorf("store down"))
	}
	m.rows[cpKey{cp.Stage, cp.InstrumentID, cp.Timeframe}] = cp
	return nil
}

func (m *memCheckpoints) get(stage string, id int64, tf string) (models.Checkpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.rows[cpKey{stage, id, tf}]
	return cp, ok
}

type memSnapshots struct {
	mu   sync.Mutex
	rows map[int64]models.StrategySnapshot
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{rows: make(map[int64]models.StrategySnapshot)}
}

func (m *memSnapshots) UpsertAll(_ context.Context, rows []models.StrategySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.rows[r.InstrumentID] = r
	}
	return nil
}

func (m *memSnapshots) DeleteNotIn(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	for id := range m.rows {
		if _, ok := keep[id]; !ok {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *memSnapshots) All(_ context.Context) ([]models.StrategySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StrategySnapshot, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

type memInstruments struct {
	instruments []models.Instrument
	err         error
}

func (m *memInstruments) Active(context.Context) ([]models.Instrument, error) {
	return m.instruments, m.err
}

type memConfigs struct {
	configs []models.IndicatorConfig
	err     error
}

func (m *memConfigs) ActiveEMAs(context.Context) ([]models.IndicatorConfig, error) {
	return m.configs, m.err
}

// fakeMarket serves canned candles per (instrument, timeframe) and can
// fail selected pairs to exercise the provider-error path.
type fakeMarket struct {
	mu      sync.Mutex
	candles map[candleKey][]models.Candle
	failFor map[candleKey]error
	calls   []candleKey
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		candles: make(map[candleKey][]models.Candle),
		failFor: make(map[candleKey]error),
	}
}

func (m *fakeMarket) Fetch(_ context.Context, inst models.Instrument, tf domainrepo.Timeframe, from, to time.Time) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := candleKey{inst.ID, string(tf)}
	m.calls = append(m.calls, k)
	if err, ok := m.failFor[k]; ok {
		return nil, err
	}
	var out []models.Candle
	for _, c := range m.candles[k] {
		if c.Timestamp >= from.Unix() && c.Timestamp <= to.Unix() {
			out = append(out, c)
		}
	}
	return out, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordStageRun(string, bool)        {}
func (noopMetrics) RecordPairProcessed(string)         {}
func (noopMetrics) RecordPairError(string, string)     {}
func (noopMetrics) RecordRowsUpserted(string, int)     {}
func (noopMetrics) RecordLastPrice(string, float64)    {}
func (noopMetrics) RecordLatency(string, float64)      {}
