//go:build wireinject
// +build wireinject

package di

import (
	"TradeCore/pkg/config"
	"TradeCore/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideQuoteCache,

		// Repositories
		ProvideStateStore,
		ProvideMarketData,
		ProvideDecisionStorage,
		ProvideDecisionPublisher,
		ProvideCSVSink,

		// Output
		ProvideHub,
		ProvideDecisionProcessor,
		ProvideDecisionPipeline,
		ProvideDecisionHandler,

		// Use cases
		ProvideAggregator,
		ProvideStateMachine,
		ProvideTradeCycle,
		ProvideQueue,
		ProvideScheduler,
		ProvideDecisionArchiver,

		// Transport
		ProvideTradingHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
