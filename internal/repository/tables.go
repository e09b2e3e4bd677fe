package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// Store table names.
const (
	tableInstruments      = "instruments"
	tableIndicatorConfigs = "indicator_configs"
	tableCandles          = "candles"
	tableSignals          = "signals"
	tableTrends           = "trend_records"
	tableCheckpoints      = "checkpoints"
	tableSnapshots        = "strategy_snapshots"
)

func eqInt(v int64) string { return "eq." + strconv.FormatInt(v, 10) }

func eqStr(v string) string { return "eq." + v }

func ltInt(v int64) string { return "lt." + strconv.FormatInt(v, 10) }

// andRange builds an and-conjunction over one column, used where a
// single query needs both bounds on the same column.
func andRange(col string, from, to int64) string {
	return fmt.Sprintf("(%s.gte.%d,%s.lte.%d)", col, from, col, to)
}

func inInts(vs []int64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "in.(" + strings.Join(parts, ",") + ")"
}

func notInInts(vs []int64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "not.in.(" + strings.Join(parts, ",") + ")"
}
