package di

import (
	"context"
	"fmt"
	"time"

	domrepo "Fractrade/internal/domain/repository"
	"Fractrade/internal/handler/api"
	mid "Fractrade/internal/middleware"
	internalrepo "Fractrade/internal/repository"
	"Fractrade/internal/risk"
	"Fractrade/internal/service/exchange"
	"Fractrade/internal/service/gateway"
	"Fractrade/internal/services/fractal"
	"Fractrade/internal/usecase"
	"Fractrade/pkg/cache"
	pkgch "Fractrade/pkg/clickhouse"
	"Fractrade/pkg/config"
	xhttp "Fractrade/pkg/http"
	pkgkafka "Fractrade/pkg/kafka"
	"Fractrade/pkg/logger"
	"Fractrade/pkg/metrics"
	"Fractrade/pkg/queue"
	"Fractrade/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger builds the process-wide structured logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideTimeframes normalizes the configured timeframe list.
func ProvideTimeframes(cfg *config.Config) []domrepo.Timeframe {
	tfs := make([]domrepo.Timeframe, 0, len(cfg.Trading.Timeframes))
	for _, tf := range cfg.Trading.Timeframes {
		tfs = append(tfs, domrepo.NormalizeTimeframe(tf))
	}
	return tfs
}

// ProvideClickHouseClient connects to ClickHouse and creates the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stmts := append(append([]string{}, internalrepo.BarSchema...), internalrepo.TradeSchema...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideBarStore creates the ClickHouse-backed bar store with a layered
// read cache for the latest-bars window.
func ProvideBarStore(client *pkgch.Client, rc *redis.Client) domrepo.BarStore {
	inner := internalrepo.NewClickHouseBarStore(client.DB())
	layered := cache.NewLayeredCache(cache.NewRedisCache(rc, "fractrade:cache"), 256)
	return internalrepo.NewCachedBarStore(inner, layered)
}

// ProvideTradeStore creates the ClickHouse-backed trade store.
func ProvideTradeStore(client *pkgch.Client) domrepo.TradeStore {
	return internalrepo.NewClickHouseTradeStore(client.DB())
}

// ProvideRedisClient connects to Redis for the risk snapshot and the
// persistence queue.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideRiskStore creates the Redis-backed risk snapshot store.
func ProvideRiskStore(client *redis.Client) domrepo.RiskStore {
	return internalrepo.NewRedisRiskStore(client)
}

// ProvideRedisQueue builds the persistence work queue with its jobs
// registered.
func ProvideRedisQueue(
	cfg *config.Config,
	log *logger.Logger,
	client *redis.Client,
	trades domrepo.TradeStore,
	riskStore domrepo.RiskStore,
) *queue.RedisQueue {
	rq := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}, client)
	rq.RegisterJobs([]queue.Job{
		internalrepo.NewTradeUpsertJob(trades),
		internalrepo.NewRiskStateSaveJob(riskStore),
	})
	return rq
}

// ProvideQueuePersistence adapts the queue into the async persistence
// interfaces the engine and risk book expect.
func ProvideQueuePersistence(rq *queue.RedisQueue, log *logger.Logger) *internalrepo.QueuePersistence {
	return internalrepo.NewQueuePersistence(rq, log)
}

// ProvideKafkaProducer creates the event producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	return pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
}

// ProvideEventPublisher routes signals and trade events to Kafka, or to a
// no-op sink when the bus is disabled.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topics.Signals, cfg.Kafka.Topics.Events)
}

// ProvideRiskBook seeds the risk book from the persisted snapshot.
func ProvideRiskBook(
	cfg *config.Config,
	riskStore domrepo.RiskStore,
	persist *internalrepo.QueuePersistence,
	m domrepo.Metrics,
) (*risk.Book, error) {
	limits := risk.Limits{
		PositionSizePct:   cfg.Trading.PositionSizePct,
		MaxPositions:      cfg.Trading.MaxPositions,
		StopLossPct:       cfg.Trading.StopLossPct,
		TakeProfitPct:     cfg.Trading.TakeProfitPct,
		DailyLossLimitPct: cfg.Trading.DailyLossLimitPct,
		MaxDrawdownPct:    cfg.Trading.MaxDrawdownPct,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	loaded, err := riskStore.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("risk snapshot load: %w", err)
	}
	return risk.NewBook(limits, loaded, cfg.Trading.StartingEquity, persist, m), nil
}

// ProvideGateway selects the execution gateway by mode. The paper gateway
// starts without a price source; the collector provider binds it.
func ProvideGateway(cfg *config.Config, log *logger.Logger) (domrepo.ExecutionGateway, error) {
	switch cfg.Execution.Mode {
	case "http":
		return gateway.NewHTTPGateway(gateway.HTTPGatewayConfig{
			BaseURL:         cfg.Execution.GatewayURL,
			Timeout:         cfg.Execution.Timeout,
			MaxOrdersPerSec: cfg.Execution.MaxOrdersPerSec,
			BreakerMaxFails: cfg.Execution.BreakerMaxFails,
			BreakerOpen:     cfg.Execution.BreakerOpenPeriod,
		}, log), nil
	case "paper":
		return gateway.NewPaperGateway(nil), nil
	default:
		return nil, fmt.Errorf("unknown execution mode %q", cfg.Execution.Mode)
	}
}

// ProvideTradeEngine builds the trade lifecycle engine.
func ProvideTradeEngine(
	cfg *config.Config,
	book *risk.Book,
	gw domrepo.ExecutionGateway,
	persist *internalrepo.QueuePersistence,
	events domrepo.EventPublisher,
	m domrepo.Metrics,
	log *logger.Logger,
) *usecase.TradeEngine {
	return usecase.NewTradeEngine(usecase.EngineConfig{
		ExecutionTimeout: cfg.Execution.Timeout,
	}, book, gw, persist, events, m, log)
}

// ProvideDetector builds the fractal detector.
func ProvideDetector(cfg *config.Config) (*fractal.Detector, error) {
	return fractal.NewDetector(cfg.Trading.FractalPeriod)
}

// ProvideAggregator builds the cross-timeframe aggregator.
func ProvideAggregator(tfs []domrepo.Timeframe) *usecase.Aggregator {
	return usecase.NewAggregator(tfs)
}

// ProvideScorer builds the signal scorer.
func ProvideScorer(cfg *config.Config, tfs []domrepo.Timeframe) *usecase.Scorer {
	return usecase.NewScorer(tfs, cfg.Trading.ActivationThreshold)
}

// ProvideBarPipeline builds the persistence pipeline for incoming bars.
func ProvideBarPipeline(bars domrepo.BarStore, m domrepo.Metrics) *mid.BarPipeline {
	return mid.NewBarPipeline(bars, m)
}

// ProvideStream creates the exchange kline stream.
func ProvideStream(cfg *config.Config, log *logger.Logger) domrepo.BarStream {
	return exchange.NewKlineStream(
		cfg.Exchange.WebSocketURL,
		cfg.Trading.Symbols,
		cfg.Trading.Timeframes,
		cfg.Exchange.ReconnectDelay,
		cfg.Exchange.PingInterval,
		log,
	)
}

// ProvideCollector assembles the ingestion pipeline and, in paper mode,
// binds the collector to the gateway as the fill price source.
func ProvideCollector(
	cfg *config.Config,
	stream domrepo.BarStream,
	bars domrepo.BarStore,
	pipe *mid.BarPipeline,
	detector *fractal.Detector,
	agg *usecase.Aggregator,
	scorer *usecase.Scorer,
	engine *usecase.TradeEngine,
	events domrepo.EventPublisher,
	gw domrepo.ExecutionGateway,
	m domrepo.Metrics,
	log *logger.Logger,
	tfs []domrepo.Timeframe,
) *usecase.BarCollector {
	collector := usecase.NewBarCollector(usecase.CollectorConfig{
		Symbols:     cfg.Trading.Symbols,
		Timeframes:  tfs,
		MaxBars:     cfg.Trading.MaxBarsPerSeries,
		MinStrength: cfg.Trading.MinFractalStrength,
		ConfirmBars: cfg.Trading.ConfirmationBars,
		Backfill:    cfg.Trading.BackfillBars,
	}, stream, bars, pipe, detector, agg, scorer, engine, events, m, log)

	if pg, ok := gw.(*gateway.PaperGateway); ok {
		pg.BindPrices(collector)
	}
	return collector
}

// ProvideKafkaConsumer creates the bars consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	opts := []pkgkafka.ConsumerOption{
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
	}
	if cfg.Kafka.Consumer.DLQTopic != "" {
		opts = append(opts, pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic))
	}
	return pkgkafka.NewConsumer(opts...)
}

// ProvideBarsHandler adapts the collector into a Kafka message handler for
// replicated bar streams.
func ProvideBarsHandler(cfg *config.Config, collector *usecase.BarCollector, m domrepo.Metrics) pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil
	}
	return usecase.NewKafkaBarsHandler(cfg.Kafka.Topics.Bars, collector, m)
}

// ProvideAPIHandler builds the HTTP API handler.
func ProvideAPIHandler(
	log *logger.Logger,
	collector *usecase.BarCollector,
	scorer *usecase.Scorer,
	engine *usecase.TradeEngine,
	book *risk.Book,
	bars domrepo.BarStore,
	trades domrepo.TradeStore,
) xhttp.Handler {
	return api.NewTradingEchoHandler(log, collector, scorer, engine, book, bars, trades)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	rq *queue.RedisQueue,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, collector, consumer, kh, chClient, rq, producer, handler)
}
