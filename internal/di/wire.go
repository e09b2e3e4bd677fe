//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TrendPulse/pkg/config"
	"TrendPulse/pkg/server"
)

// InitializeApp wires the full application graph from configuration.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideStoreClient,
		ProvideMarketData,
		ProvideCalendar,
		ProvideLocker,
		ProvideSnapshotCache,
		ProvideInstrumentRepository,
		ProvideIndicatorConfigRepository,
		ProvideCandleRepository,
		ProvideSignalRepository,
		ProvideTrendRepository,
		ProvideCheckpointRepository,
		ProvideSnapshotRepository,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideArchiver,
		ProvideKafkaConsumer,
		ProvideCandlesHandler,
		ProvideIngest,
		ProvideIndicators,
		ProvideTrends,
		ProvideAggregate,
		ProvideOrchestrator,
		ProvideSnapshotReader,
		ProvideHTTPHandler,
		ProvideApp,
	)
	return nil, nil
}
