package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/handler/api"
	"SignalEngine/internal/handler/ws"
	mid "SignalEngine/internal/middleware"
	internalrepo "SignalEngine/internal/repository"
	"SignalEngine/internal/service/binance"
	svcmetrics "SignalEngine/internal/service/metrics"
	"SignalEngine/internal/service/ratelimit"
	"SignalEngine/internal/services/analytics"
	"SignalEngine/internal/services/neural"
	"SignalEngine/internal/usecase"
	pkgcache "SignalEngine/pkg/cache"
	pkgch "SignalEngine/pkg/clickhouse"
	"SignalEngine/pkg/config"
	xhttp "SignalEngine/pkg/http"
	pkgkafka "SignalEngine/pkg/kafka"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/metrics"
	"SignalEngine/pkg/server"
)

const (
	connectTimeout = 10 * time.Second
	restoreTimeout = 5 * time.Second
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics registers every collector on the default registry.
func ProvideMetrics() domrepo.Metrics {
	svcmetrics.Register()
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient connects only when a component reads from or writes to ClickHouse.
// The returned client is nil otherwise.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouseNeeded() {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	c := cfg.ClickHouse
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(c.Host, c.Port),
		pkgch.WithDatabase(c.Database),
		pkgch.WithCredentials(c.User, c.Password),
		pkgch.WithHTTP(c.UseHTTP),
		pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout),
		pkgch.WithAsyncInsert(c.AsyncInsert, false),
		pkgch.WithMaxExecutionTime(c.MaxExecutionTime),
		pkgch.WithPool(4, 2, 0),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if c.InitSchema {
		stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", c.Database)}
		if cfg.Candles.Source == "clickhouse" {
			stmts = append(stmts, internalrepo.CandleSchema(cfg.Candles.Table)...)
		}
		if c.ArchiveSignals {
			stmts = append(stmts, internalrepo.SignalArchiveSchema(c.ArchiveTable)...)
		}
		if err := client.InitSchema(ctx, stmts); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}

	l.Info("clickhouse connected",
		applogger.String("host", c.Host),
		applogger.String("database", c.Database),
	)
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideCandleSource selects the candle backend named by candles.source.
func ProvideCandleSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (domrepo.CandleSource, error) {
	switch cfg.Candles.Source {
	case "", "binance":
		return binance.New(cfg.Binance.BaseURL, cfg.Binance.Timeout, l), nil
	case "clickhouse":
		src, err := internalrepo.NewCHCandleSource(ch, cfg.Candles.Table, l)
		if err != nil {
			return nil, fmt.Errorf("clickhouse candle source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown candle source %q", cfg.Candles.Source)
	}
}

// ProvideRedisCache connects when redis.enabled is set; otherwise it returns nil.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*pkgcache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	rc, err := pkgcache.NewRedisCache(ctx,
		pkgcache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	l.Info("redis connected", applogger.String("host", cfg.Redis.Host), applogger.Int("port", cfg.Redis.Port))
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return rc, cleanup, nil
}

// ProvideSignalMirror returns nil without a Redis connection.
func ProvideSignalMirror(cfg *config.Config, rc *pkgcache.RedisCache) *internalrepo.RedisSignalMirror {
	if rc == nil {
		return nil
	}
	return internalrepo.NewRedisSignalMirror(rc, cfg.Redis.TTL)
}

// ProvideSignalStore builds the in-memory store and seeds it from the mirror
// so a restart serves the last known signals before the first cycle completes.
func ProvideSignalStore(cfg *config.Config, mirror *internalrepo.RedisSignalMirror, l *applogger.Logger) *internalrepo.MemorySignalStore {
	store := internalrepo.NewMemorySignalStore(time.Now)
	if mirror == nil {
		return store
	}

	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	sigs, err := mirror.Restore(ctx, cfg.Scanner.Watchlist)
	if err != nil {
		l.Warn("signal restore incomplete", applogger.Error(err))
	}
	seeded := 0
	for _, sig := range sigs {
		if store.Seed(sig) {
			seeded++
		}
	}
	l.Info("signal store restored", applogger.Int("seeded", seeded))
	return store
}

// ProvideKafkaProducer returns nil when kafka.enabled is off. The producer is
// closed through the signal publisher that wraps it.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithBatching(k.Producer.BatchSize, k.Producer.BatchBytes, k.Producer.Linger),
		pkgkafka.WithTimeouts(k.Producer.WriteTimeout, k.Producer.ReadTimeout),
		pkgkafka.WithAsync(k.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("kafka producer ready", applogger.Strings("brokers", k.Brokers), applogger.String("topic", k.SignalsTopic))
	return producer, nil
}

// ProvideSignalPublisher fans signals out to every configured sink. With no
// sinks configured publishing is a no-op. Cleanup closes every sink.
func ProvideSignalPublisher(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	mirror *internalrepo.RedisSignalMirror,
	ch *pkgch.Client,
	l *applogger.Logger,
) (*internalrepo.FanoutPublisher, func(), error) {
	var sinks []domrepo.SignalPublisher
	if cfg.ClickHouse.ArchiveSignals {
		archive, err := internalrepo.NewCHSignalArchive(ch, cfg.ClickHouse.ArchiveTable)
		if err != nil {
			if producer != nil {
				_ = producer.Close()
			}
			return nil, nil, fmt.Errorf("signal archive: %w", err)
		}
		sinks = append(sinks, archive)
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic))
	}
	if mirror != nil {
		sinks = append(sinks, mirror)
	}
	fan := internalrepo.NewFanoutPublisher(sinks...)
	l.Info("signal sinks configured", applogger.Int("sinks", fan.Len()))
	cleanup := func() {
		if err := fan.Close(); err != nil {
			l.Warn("signal sink close error", applogger.Error(err))
		}
	}
	return fan, cleanup, nil
}

func ProvideSignalPipeline(cfg *config.Config, pub *internalrepo.FanoutPublisher, m domrepo.Metrics, l *applogger.Logger) *mid.SignalPipeline {
	return mid.NewSignalPipeline(pub, m, l,
		mid.WithMinInterval(cfg.Publish.MinInterval),
		mid.WithMaxPending(cfg.Publish.BufferSize),
	)
}

// ProvideInferenceBackend falls back to the unavailable backend, which makes
// the scorer return neutral results, when no inference URL is configured.
func ProvideInferenceBackend(cfg *config.Config) domsvc.InferenceBackend {
	if cfg.Inference.URL == "" {
		return neural.UnavailableBackend{}
	}
	return analytics.NewHTTPInferenceBackend(cfg.Inference.URL, cfg.Inference.Timeout, cfg.Inference.Retries)
}

func ProvideScorer(backend domsvc.InferenceBackend, m domrepo.Metrics, l *applogger.Logger) *neural.Scorer {
	return neural.NewScorer(backend, l, m)
}

func ProvideAggregator(scorer *neural.Scorer, cfg *config.Config) *usecase.SignalAggregator {
	return usecase.NewSignalAggregator(scorer, cfg.Engine, cfg.Scanner)
}

// ProvideReasoningUpdater always exists so Kafka patches can be applied even
// when local generation is disabled.
func ProvideReasoningUpdater(cfg *config.Config, store *internalrepo.MemorySignalStore, m domrepo.Metrics, l *applogger.Logger) *usecase.ReasoningUpdater {
	r := cfg.Reasoning
	return usecase.NewReasoningUpdater(analytics.NewHTTPReasoner(r.URL, r.Timeout), store, m, l, r.Workers, r.QueueSize, r.Timeout)
}

func ProvideScanner(
	cfg *config.Config,
	source domrepo.CandleSource,
	agg *usecase.SignalAggregator,
	store *internalrepo.MemorySignalStore,
	pipeline *mid.SignalPipeline,
	updater *usecase.ReasoningUpdater,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Scanner {
	listeners := []usecase.SignalListener{pipeline}
	if cfg.Reasoning.Enabled {
		listeners = append(listeners, updater)
	}
	return usecase.NewScanner(source, agg, store, cfg.Scanner, m, l, listeners...)
}

// ProvideKafkaConsumer subscribes the reasoning patch handler. It returns nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, updater *usecase.ReasoningUpdater, m domrepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ReasoningTopic == "" {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerBufferSize(kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
		pkgkafka.WithConsumerFetch(kc.MinBytes, kc.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewReasoningPatchHandler(cfg.Kafka.ReasoningTopic, updater, m))
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.NewLoggingHook(l)))
	return consumer, nil
}

func ProvideSignalQuery(store *internalrepo.MemorySignalStore) *usecase.SignalQuery {
	return usecase.NewSignalQuery(store, time.Now)
}

func ProvideClassifier(scorer *neural.Scorer) *usecase.Classifier {
	return usecase.NewClassifier(scorer)
}

// ProvideHTTPServer mounts the REST API and the websocket stream.
func ProvideHTTPServer(cfg *config.Config, query *usecase.SignalQuery, classifier *usecase.Classifier, l *applogger.Logger) *xhttp.Server {
	s := cfg.Server
	rl := ratelimit.New(s.RateLimit.Capacity, s.RateLimit.RefillPerSec)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handlers := xhttp.Handlers{
		api.NewSignalsHandler(query, classifier, rl, l),
		ws.NewStreamHandler(query, s.StreamInterval, 0, l),
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(s.Port),
		xhttp.WithTimeouts(s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORS(s.CORS),
	)
}

// ProvideApp assembles the lifecycle. The pipeline is registered first so it
// is stopped, and flushed, last.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.Scanner,
	httpServer *xhttp.Server,
	pipeline *mid.SignalPipeline,
	updater *usecase.ReasoningUpdater,
	consumer *pkgkafka.Consumer,
) *server.App {
	opts := []server.AppOption{
		server.WithWorker("signal-pipeline", pipeline),
		server.WithWorker("reasoning-updater", updater),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if consumer != nil {
		opts = append(opts, server.WithService("kafka-consumer", consumer))
	}
	return server.New(l, scanner, httpServer, opts...)
}
