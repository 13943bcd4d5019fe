//go:build wireinject
// +build wireinject

package di

import (
	"Fractrade/pkg/config"
	"Fractrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideTimeframes,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Stores and async persistence
		ProvideBarStore,
		ProvideTradeStore,
		ProvideRiskStore,
		ProvideRedisQueue,
		ProvideQueuePersistence,
		ProvideEventPublisher,

		// Trading core
		ProvideRiskBook,
		ProvideGateway,
		ProvideTradeEngine,
		ProvideDetector,
		ProvideAggregator,
		ProvideScorer,
		ProvideBarPipeline,
		ProvideStream,
		ProvideCollector,
		ProvideBarsHandler,

		// HTTP surface
		ProvideAPIHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
