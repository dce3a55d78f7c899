//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SignalEngine/pkg/config"
	"SignalEngine/pkg/server"
)

// InitializeApp wires the engine from cfg. The returned cleanup closes
// connections in reverse construction order.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,

		// Repositories
		ProvideCandleSource,
		ProvideSignalMirror,
		ProvideSignalStore,
		ProvideSignalPublisher,

		// Scoring
		ProvideInferenceBackend,
		ProvideScorer,
		ProvideAggregator,

		// Use cases
		ProvideSignalPipeline,
		ProvideReasoningUpdater,
		ProvideScanner,
		ProvideKafkaConsumer,
		ProvideSignalQuery,
		ProvideClassifier,

		// Serving
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
