package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"EarnRev/internal/domain/repository"
	"EarnRev/internal/domain/service"
	"EarnRev/internal/handler/api"
	internalrepo "EarnRev/internal/repository"
	icache "EarnRev/internal/service/cache"
	"EarnRev/internal/service/fmp"
	extractionmetrics "EarnRev/internal/service/metrics"
	"EarnRev/internal/service/ratelimit"
	"EarnRev/internal/services/extraction"
	"EarnRev/internal/usecase"
	pkgcache "EarnRev/pkg/cache"
	pkgch "EarnRev/pkg/clickhouse"
	"EarnRev/pkg/config"
	xhttp "EarnRev/pkg/http"
	pkgkafka "EarnRev/pkg/kafka"
	applogger "EarnRev/pkg/logger"
	"EarnRev/pkg/metrics"
	"EarnRev/pkg/queue"
	"EarnRev/pkg/server"
)

// ProvideLogger creates the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	extractionmetrics.Register()
	return metrics.New(nil)
}

// ProvideEventSource builds FMP as the primary source and the Postgres
// mirror as fallback. Either one alone is used directly.
func ProvideEventSource(cfg *config.Config, log *applogger.Logger) (repository.EventSource, func(), error) {
	var sources []internalrepo.NamedSource
	if cfg.FMP.APIKey != "" {
		sources = append(sources, internalrepo.NamedSource{
			Name: "fmp",
			Source: fmp.New(fmp.Config{
				APIKey:          cfg.FMP.APIKey,
				BaseURL:         cfg.FMP.BaseURL,
				Timeout:         cfg.FMP.Timeout,
				RateLimit:       cfg.FMP.RateLimit,
				Burst:           cfg.FMP.Burst,
				BreakerFailures: cfg.FMP.BreakerFailures,
				BreakerTimeout:  cfg.FMP.BreakerTimeout,
			}, log),
		})
	}

	cleanup := func() {}
	if cfg.Postgres.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Postgres.Timeout)
		defer cancel()
		db, err := internalrepo.OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		sources = append(sources, internalrepo.NamedSource{
			Name:   "postgres",
			Source: internalrepo.NewPostgresSource(db, cfg.Postgres.Timeout),
		})
		cleanup = func() { _ = db.Close() }
	}

	switch len(sources) {
	case 0:
		return nil, nil, errors.New("no event source configured: set fmp.api_key or postgres.dsn")
	case 1:
		return sources[0].Source, cleanup, nil
	default:
		return internalrepo.NewFallbackSource(log, sources...), cleanup, nil
	}
}

// ProvideExtractor creates the LLM feature extractor.
func ProvideExtractor(cfg *config.Config, log *applogger.Logger) (service.FeatureExtractor, error) {
	completer, err := extraction.NewClaudeCompleter(extraction.ClaudeConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return extraction.NewExtractor(completer,
		extraction.WithConcurrency(cfg.Extraction.Concurrency),
		extraction.WithRateLimit(cfg.Extraction.RateLimit, cfg.Extraction.Burst),
		extraction.WithRetry(cfg.Extraction.Attempts, cfg.Extraction.Backoff),
		extraction.WithMaxChars(cfg.Extraction.MaxChars),
		extraction.WithLogger(log),
	), nil
}

// ProvideRedisCache connects to Redis when enabled; nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(pkgcache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCacheService layers an in-process cache over Redis, or uses the
// in-process cache alone when Redis is disabled.
func ProvideCacheService(rc *pkgcache.RedisCache) (pkgcache.Service, func()) {
	var svc pkgcache.Service
	if rc != nil {
		svc = pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemoryTTL(5*time.Minute))
	} else {
		svc = pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(500))
	}
	return svc, func() { _ = svc.Close() }
}

func ProvideAnalysisCache(store pkgcache.Service, cfg *config.Config, log *applogger.Logger) *icache.AnalysisCache {
	return icache.NewAnalysisCache(store, cfg.Analysis.CacheTTL, log)
}

// ProvideAnalyzeUseCase creates the per-ticker backtest orchestrator.
func ProvideAnalyzeUseCase(
	source repository.EventSource,
	extractor service.FeatureExtractor,
	ac *icache.AnalysisCache,
	m *metrics.Recorder,
	cfg *config.Config,
	log *applogger.Logger,
) *usecase.AnalyzeUseCase {
	return usecase.NewAnalyzeUseCase(source, extractor, log,
		usecase.WithAnalysisCache(ac),
		usecase.WithAnalyzeMetrics(m),
		usecase.WithAnalyzeTimeout(cfg.Analysis.Timeout),
		usecase.WithEventConcurrency(cfg.Analysis.EventConcurrency),
		usecase.WithDefaultMaxEvents(cfg.Analysis.MaxEvents),
	)
}

// ProvideClickHouseClient connects to ClickHouse when enabled; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
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
		pkgch.WithCreateDatabase(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideResultStore creates the ClickHouse results table when a client exists.
func ProvideResultStore(client *pkgch.Client, cfg *config.Config, log *applogger.Logger) (repository.ResultStore, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseResultStore(client.DB(), cfg.ClickHouse.Table, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer when results or logs are
// shipped to Kafka; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if cfg.Backend.Type != usecase.BackendKafka && !cfg.Logging.Collector.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		Linger:       cfg.Kafka.Producer.Linger,
		Async:        cfg.Kafka.Producer.Async,
		KeyAffinity:  true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideResultPublisher publishes results to the results topic.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil || cfg.Backend.Type != usecase.BackendKafka {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
}

// ProvideResultProcessor routes results to the configured backend.
func ProvideResultProcessor(
	pub repository.ResultPublisher,
	store repository.ResultStore,
	m *metrics.Recorder,
	cfg *config.Config,
) *usecase.ResultProcessor {
	return usecase.NewResultProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideScanUseCase creates the batch scanner used by the CLI.
func ProvideScanUseCase(uc *usecase.AnalyzeUseCase, processor *usecase.ResultProcessor, log *applogger.Logger) *usecase.ScanUseCase {
	return usecase.NewScanUseCase(uc, processor, log)
}

// ProvideQueuePublisher returns a publish-only Redis queue when the queue is
// enabled; nil otherwise.
func ProvideQueuePublisher(rc *pkgcache.RedisCache, cfg *config.Config, log *applogger.Logger) (queue.Publisher, func(), error) {
	if rc == nil || !cfg.Redis.Queue.Enabled {
		return nil, func() {}, nil
	}
	pub := queue.NewRedisQueue(rc.Client(), log, queue.WithKeyPrefix(queuePrefix(cfg)))
	if err := pub.Start(); err != nil {
		return nil, nil, fmt.Errorf("queue publisher: %w", err)
	}
	return pub, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pub.Stop(ctx)
	}, nil
}

// ProvideQueueWorkers builds the Redis queue consumer running AnalyzeJob.
// It is started and stopped by server.App.
func ProvideQueueWorkers(
	rc *pkgcache.RedisCache,
	uc *usecase.AnalyzeUseCase,
	processor *usecase.ResultProcessor,
	locker pkgcache.Service,
	cfg *config.Config,
	log *applogger.Logger,
) *queue.RedisQueue {
	if rc == nil || !cfg.Redis.Queue.Enabled {
		return nil
	}
	job := usecase.NewAnalyzeJob(uc, processor, log, usecase.WithJobLock(locker, cfg.Redis.Queue.LockTTL))
	return queue.NewRedisQueue(rc.Client(), log,
		queue.WithKeyPrefix(queuePrefix(cfg)),
		queue.WithConfig(queue.Config{
			Workers:    cfg.Redis.Queue.Workers,
			RetryLimit: cfg.Redis.Queue.RetryLimit,
			RetryDelay: cfg.Redis.Queue.RetryDelay,
		}),
		queue.WithJobs(job),
	)
}

func queuePrefix(cfg *config.Config) string {
	return cfg.Redis.Prefix + ":queue"
}

// ProvideRateLimiter creates the per-IP limiter for /api/analyze and sweeps
// idle clients in the background.
func ProvideRateLimiter(cfg *config.Config) (*ratelimit.Limiter, func()) {
	rl := ratelimit.New(cfg.Analysis.RateLimit.RPS, cfg.Analysis.RateLimit.Burst, cfg.Analysis.RateLimit.Idle)
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				rl.Sweep()
			}
		}
	}()
	return rl, func() { close(done) }
}

// ProvideHTTPHandler creates the echo handler with one health check per
// enabled dependency.
func ProvideHTTPHandler(
	uc *usecase.AnalyzeUseCase,
	q queue.Publisher,
	rl *ratelimit.Limiter,
	rc *pkgcache.RedisCache,
	store repository.ResultStore,
	log *applogger.Logger,
) *api.AnalyzeEchoHandler {
	opts := []api.HandlerOption{api.WithQueue(q)}
	if rl != nil {
		opts = append(opts, api.WithRateLimiter(rl))
	}
	if rc != nil {
		opts = append(opts, api.WithHealthCheck("redis", rc.Ping))
	}
	if store != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", store.Health))
	}
	return api.NewAnalyzeEchoHandler(log, uc, opts...)
}

// ProvideHTTPServer creates the echo server serving the handler and /metrics.
func ProvideHTTPServer(h *api.AnalyzeEchoHandler, cfg *config.Config, log *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h, log,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.AllowOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
	)
}

// ProvideKafkaConsumer creates the results sink consumer when enabled; nil
// otherwise. The sink writes into ClickHouse, so it needs ClickHouse too.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !sinkEnabled(cfg) {
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
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.LoggingHook(log))
	return consumer, nil
}

func sinkEnabled(cfg *config.Config) bool {
	return cfg.Kafka.Consumer.Enabled && cfg.ClickHouse.Enabled
}

// ProvideKafkaResultsHandler sinks the results topic into ClickHouse.
func ProvideKafkaResultsHandler(store repository.ResultStore, m *metrics.Recorder, cfg *config.Config) *usecase.KafkaResultsHandler {
	if store == nil || !sinkEnabled(cfg) {
		return nil
	}
	return usecase.NewKafkaResultsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideApp assembles the server lifecycle.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	workers *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaResultsHandler,
	producer *pkgkafka.Producer,
	processor *usecase.ResultProcessor,
) *server.App {
	// closers run in reverse, so the log collector flushes before the
	// processor closes the shared producer
	opts := []server.Option{server.WithCloser("result processor", func() error {
		processor.Close()
		return nil
	})}
	if workers != nil {
		opts = append(opts, server.WithQueueWorkers(workers))
	}
	if consumer != nil && kh != nil {
		opts = append(opts, server.WithKafkaConsumer(consumer, kh))
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:    cfg.Logging.Collector.Interval,
			CountThreshold:  cfg.Logging.Collector.Threshold,
			Topic:           cfg.Logging.Collector.Topic,
			Publisher:       producer,
			IncludeWarnings: cfg.Logging.Collector.IncludeWarnings,
		})
		opts = append(opts, server.WithCloser("log collector", func() error {
			log.RemoveCollector()
			return nil
		}))
	}
	return server.New(cfg, log, srv, opts...)
}

// Runtime bundles the use cases the command line drives directly.
type Runtime struct {
	Log       *applogger.Logger
	Analyzer  *usecase.AnalyzeUseCase
	Scanner   *usecase.ScanUseCase
	Processor *usecase.ResultProcessor
	Queue     queue.Publisher
}

func ProvideRuntime(
	log *applogger.Logger,
	uc *usecase.AnalyzeUseCase,
	scanner *usecase.ScanUseCase,
	processor *usecase.ResultProcessor,
	q queue.Publisher,
) *Runtime {
	return &Runtime{Log: log, Analyzer: uc, Scanner: scanner, Processor: processor, Queue: q}
}
