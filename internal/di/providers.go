package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"TrendPulse/internal/domain/repository"
	"TrendPulse/internal/handler/api"
	internalrepo "TrendPulse/internal/repository"
	"TrendPulse/internal/repository/reststore"
	icache "TrendPulse/internal/service/cache"
	"TrendPulse/internal/service/dhan"
	"TrendPulse/internal/service/lease"
	"TrendPulse/internal/service/session"
	"TrendPulse/internal/usecase"
	pkgch "TrendPulse/pkg/clickhouse"
	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	pkgkafka "TrendPulse/pkg/kafka"
	applogger "TrendPulse/pkg/logger"
	"TrendPulse/pkg/metrics"
	"TrendPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStoreClient creates the REST store client.
func ProvideStoreClient(cfg *config.Config) *reststore.Client {
	return reststore.NewClient(cfg.Store.BaseURL, cfg.Store.APIKey,
		reststore.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Store.Timeout))),
	)
}

// ProvideMarketData creates the upstream market-data client.
func ProvideMarketData(cfg *config.Config) repository.MarketData {
	return dhan.New(cfg.Provider.BaseURL, cfg.Provider.AccessToken, cfg.Provider.ClientID,
		dhan.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Provider.Timeout))),
		dhan.WithMaxRPS(cfg.Provider.MaxRPS),
	)
}

// ProvideCalendar builds the trading-session calendar.
func ProvideCalendar(cfg *config.Config) *session.Calendar {
	return session.NewCalendar(session.Config{
		OpenHour:    cfg.Session.OpenHour,
		OpenMinute:  cfg.Session.OpenMinute,
		CloseHour:   cfg.Session.CloseHour,
		CloseMinute: cfg.Session.CloseMinute,
		Holidays:    cfg.Session.Holidays,
	})
}

// ProvideLocker creates the run lease. Redis-backed when configured so
// the lease fences runs across processes; in-process otherwise.
func ProvideLocker(cfg *config.Config) lease.Locker {
	if cfg.Redis.Enabled {
		cli := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return lease.NewRedisLocker(cli)
	}
	return lease.NewLocalLocker()
}

// ProvideSnapshotCache creates the snapshot read cache.
func ProvideSnapshotCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// Repositories over the REST store.

func ProvideInstrumentRepository(store *reststore.Client) repository.InstrumentRepository {
	return internalrepo.NewInstrumentRepository(store)
}

func ProvideIndicatorConfigRepository(store *reststore.Client) repository.IndicatorConfigRepository {
	return internalrepo.NewIndicatorConfigRepository(store)
}

func ProvideCandleRepository(store *reststore.Client) repository.CandleRepository {
	return internalrepo.NewCandleRepository(store)
}

func ProvideSignalRepository(store *reststore.Client) repository.SignalRepository {
	return internalrepo.NewSignalRepository(store)
}

func ProvideTrendRepository(store *reststore.Client) repository.TrendRepository {
	return internalrepo.NewTrendRepository(store)
}

func ProvideCheckpointRepository(store *reststore.Client) repository.CheckpointRepository {
	return internalrepo.NewCheckpointRepository(store)
}

func ProvideSnapshotRepository(store *reststore.Client) repository.SnapshotRepository {
	return internalrepo.NewSnapshotRepository(store)
}

// ProvideClickHouseClient creates a ClickHouse client when the archive
// path needs one; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Archive.Backend != "clickhouse" && !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS trendpulse",
		"CREATE TABLE IF NOT EXISTS trendpulse.candles_archive (instrument_id Int64, timeframe String, ts DateTime, open Float64, high Float64, low Float64, close Float64, volume Float64) ENGINE=MergeTree ORDER BY (instrument_id, timeframe, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when the Kafka archive
// backend is configured; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Archive.Backend != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideArchiver picks the candle archive backend. Nil when disabled;
// ingest treats a nil archiver as "no sink".
func ProvideArchiver(cfg *config.Config, chClient *pkgch.Client, producer *pkgkafka.Producer) repository.Archiver {
	switch cfg.Archive.Backend {
	case "kafka":
		return internalrepo.NewKafkaArchive(producer, cfg.Kafka.Topic)
	case "clickhouse":
		return internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Database+".candles_archive")
	default:
		return nil
	}
}

// ProvideKafkaConsumer creates the archive consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideCandlesHandler builds the consumer-side landing handler. Nil
// when the consumer is disabled.
func ProvideCandlesHandler(cfg *config.Config, chClient *pkgch.Client, m repository.Metrics) pkgkafka.MessageHandler {
	if !cfg.Kafka.Consumer.Enabled || chClient == nil {
		return nil
	}
	sink := internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Database+".candles_archive")
	return usecase.NewKafkaCandlesHandler(cfg.Kafka.Topic, sink, m)
}

// Pipeline stages.

func ProvideIngest(
	market repository.MarketData,
	candles repository.CandleRepository,
	checkpoints repository.CheckpointRepository,
	instruments repository.InstrumentRepository,
	archiver repository.Archiver,
	calendar *session.Calendar,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Ingest {
	return usecase.NewIngest(market, candles, checkpoints, instruments, archiver, calendar, m, logger, usecase.IngestConfig{
		Timeframes:      cfg.Pipeline.Timeframes,
		CandleRetention: cfg.Pipeline.CandleRetention,
		BatchSize:       cfg.Pipeline.BatchSize,
		BatchPause:      cfg.Pipeline.BatchPause,
	})
}

func ProvideIndicators(
	instruments repository.InstrumentRepository,
	configs repository.IndicatorConfigRepository,
	candles repository.CandleRepository,
	signals repository.SignalRepository,
	checkpoints repository.CheckpointRepository,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Indicators {
	return usecase.NewIndicators(instruments, configs, candles, signals, checkpoints, m, logger, usecase.IndicatorStageConfig{
		Timeframes:      cfg.Pipeline.Timeframes,
		CandleWindow:    cfg.Pipeline.CandleRetention,
		SignalRetention: cfg.Pipeline.SignalRetention,
		BatchSize:       cfg.Pipeline.BatchSize,
		BatchPause:      cfg.Pipeline.BatchPause,
	})
}

func ProvideTrends(
	instruments repository.InstrumentRepository,
	configs repository.IndicatorConfigRepository,
	candles repository.CandleRepository,
	signals repository.SignalRepository,
	trends repository.TrendRepository,
	checkpoints repository.CheckpointRepository,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Trends {
	return usecase.NewTrends(instruments, configs, candles, signals, trends, checkpoints, m, logger, usecase.TrendStageConfig{
		Timeframes:     cfg.Pipeline.Timeframes,
		CandleWindow:   cfg.Pipeline.CandleRetention,
		TrendRetention: cfg.Pipeline.SignalRetention,
		BatchSize:      cfg.Pipeline.BatchSize,
		BatchPause:     cfg.Pipeline.BatchPause,
	})
}

func ProvideAggregate(
	instruments repository.InstrumentRepository,
	candles repository.CandleRepository,
	trends repository.TrendRepository,
	snapshots repository.SnapshotRepository,
	checkpoints repository.CheckpointRepository,
	calendar *session.Calendar,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Aggregate {
	return usecase.NewAggregate(instruments, candles, trends, snapshots, checkpoints, calendar, m, logger, usecase.AggregateConfig{
		Timeframes: cfg.Pipeline.Timeframes,
	})
}

func ProvideOrchestrator(
	ingest *usecase.Ingest,
	indicators *usecase.Indicators,
	trends *usecase.Trends,
	aggregate *usecase.Aggregate,
	checkpoints repository.CheckpointRepository,
	locker lease.Locker,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(ingest, indicators, trends, aggregate, checkpoints, locker, m, logger, cfg.Pipeline.LeaseTTL)
}

func ProvideSnapshotReader(
	snapshots repository.SnapshotRepository,
	c icache.BytesCache,
	cfg *config.Config,
) *usecase.SnapshotReader {
	return usecase.NewSnapshotReader(snapshots, c, cfg.Redis.SnapshotTTL)
}

// ProvideHTTPHandler builds the API surface.
func ProvideHTTPHandler(
	logger *applogger.Logger,
	orchestrator *usecase.Orchestrator,
	snapshots *usecase.SnapshotReader,
) xhttp.Handler {
	return api.NewPipelineHandler(logger, orchestrator, snapshots)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	archiver repository.Archiver,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, logger, handler, consumer, kh, chClient)
	if archiver != nil {
		app.AddCloser(archiver.Close)
	}
	return app
}
