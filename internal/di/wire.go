//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"EarnRev/pkg/config"
	"EarnRev/pkg/server"
)

var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,

	// Data sources and extraction
	ProvideEventSource,
	ProvideExtractor,

	// Caches
	ProvideRedisCache,
	ProvideCacheService,
	ProvideAnalysisCache,

	// Result sinks
	ProvideClickHouseClient,
	ProvideResultStore,
	ProvideKafkaProducer,
	ProvideResultPublisher,
	ProvideResultProcessor,

	// Use cases
	ProvideAnalyzeUseCase,
	ProvideQueuePublisher,
)

// InitializeApp wires the API server, queue workers and results consumer.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		ProvideQueueWorkers,
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,
		ProvideKafkaResultsHandler,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeRuntime wires the use cases driven by the command line.
func InitializeRuntime(cfg *config.Config) (*Runtime, func(), error) {
	wire.Build(
		coreSet,
		ProvideScanUseCase,
		ProvideRuntime,
	)
	return nil, nil, nil
}
