package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"TradeCore/internal/domain/repository"
	"TradeCore/internal/handler/api"
	"TradeCore/internal/handler/ws"
	mid "TradeCore/internal/middleware"
	internalrepo "TradeCore/internal/repository"
	"TradeCore/internal/service/marketdata"
	svcmetrics "TradeCore/internal/service/metrics"
	"TradeCore/internal/service/quote"
	"TradeCore/internal/service/ratelimit"
	"TradeCore/internal/services/rules"
	"TradeCore/internal/usecase"
	"TradeCore/pkg/cache"
	pkgch "TradeCore/pkg/clickhouse"
	"TradeCore/pkg/config"
	xhttp "TradeCore/pkg/http"
	pkgkafka "TradeCore/pkg/kafka"
	"TradeCore/pkg/logger"
	"TradeCore/pkg/metrics"
	"TradeCore/pkg/queue"
	"TradeCore/pkg/server"
)

// Optional components are returned as nil when their config section is
// disabled; consumers check for nil.

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the registry every collector registers on and
// /metrics serves.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.NewWithRegisterer(reg)
}

// ProvideClickHouseClient creates a ClickHouse client and the decisions table.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.DecisionSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when kafka is the backend.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the archiving consumer. It only runs with
// ClickHouse to archive into.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled || !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedisCache connects to Redis when enabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideQuoteCache layers an in-process cache over Redis, or uses memory
// alone without Redis.
func ProvideQuoteCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache()
	}
	return cache.NewLayeredCache(rc)
}

// ProvideStateStore keeps session state in Redis when available so several
// instances share it.
func ProvideStateStore(cfg *config.Config, rc *cache.RedisCache) repository.StateStore {
	if rc == nil {
		return internalrepo.NewMemoryStateStore(cfg.Trading.LockWait)
	}
	return internalrepo.NewCacheStateStore(rc, cfg.Trading.LockWait)
}

// ProvideMarketData builds the provider chain: the chart client, optionally
// backed by the simulator.
func ProvideMarketData(
	cfg *config.Config,
	c cache.Service,
	reg *prometheus.Registry,
	rec *metrics.Recorder,
	log *logger.Logger,
) repository.MarketDataProvider {
	sim := marketdata.NewSimulator()
	if cfg.MarketData.Provider == marketdata.SourceSimulated {
		return sim
	}

	client := quote.NewClient(
		xhttp.NewClient(xhttp.WithTimeout(cfg.MarketData.Timeout)),
		quote.WithBaseURL(cfg.MarketData.BaseURL),
		quote.WithMovingWindow(cfg.MarketData.MovingWindow),
		quote.WithLimiter(ratelimit.New(cfg.MarketData.RateLimit, cfg.MarketData.Burst)),
		quote.WithCache(c, cfg.MarketData.CacheTTL),
		quote.WithMetrics(svcmetrics.NewMarketData(reg)),
	)
	if !cfg.MarketData.Fallback {
		return client
	}
	return marketdata.NewFallbackProvider(client, sim, rec, log)
}

// ProvideDecisionStorage creates ClickHouse storage.
func ProvideDecisionStorage(ch *pkgch.Client) repository.Storage {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseDecisionStorage(ch.DB(), ch.Database())
}

// ProvideDecisionPublisher creates Kafka publisher repository.
func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.Topic)
}

func ProvideCSVSink(cfg *config.Config) *internalrepo.CSVSink {
	return internalrepo.NewCSVSink(cfg.Output.CSVPath)
}

func ProvideHub(log *logger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

func ProvideDecisionProcessor(
	cfg *config.Config,
	sink *internalrepo.CSVSink,
	pub repository.Publisher,
	store repository.Storage,
	hub *ws.Hub,
	rec *metrics.Recorder,
	log *logger.Logger,
) *usecase.DecisionProcessor {
	return usecase.NewDecisionProcessor(sink, pub, store, hub, rec, log, cfg.Backend.Type)
}

// ProvideDecisionPipeline creates the async output pipeline when enabled.
func ProvideDecisionPipeline(
	cfg *config.Config,
	proc *usecase.DecisionProcessor,
	rec *metrics.Recorder,
	log *logger.Logger,
) *mid.DecisionPipeline {
	if !cfg.Output.Async {
		return nil
	}
	return mid.NewDecisionPipeline(proc, rec,
		mid.WithBatchSize(cfg.Output.BatchSize),
		mid.WithBufferSize(cfg.Output.BufferSize),
		mid.WithFlushInterval(cfg.Output.FlushInterval),
		mid.WithLogger(log),
	)
}

// ProvideDecisionHandler picks where a cycle hands its decision.
func ProvideDecisionHandler(proc *usecase.DecisionProcessor, pipe *mid.DecisionPipeline) usecase.DecisionHandler {
	if pipe != nil {
		return pipe
	}
	return proc
}

func ProvideAggregator(cfg *config.Config) *usecase.SignalAggregator {
	return usecase.NewSignalAggregator(rules.Default(), usecase.AggregatorConfigFrom(cfg.Aggregator))
}

func ProvideStateMachine(store repository.StateStore, log *logger.Logger) *usecase.StateMachine {
	return usecase.NewStateMachine(store, log)
}

func ProvideTradeCycle(
	cfg *config.Config,
	market repository.MarketDataProvider,
	agg *usecase.SignalAggregator,
	machine *usecase.StateMachine,
	handler usecase.DecisionHandler,
	rec *metrics.Recorder,
	log *logger.Logger,
) *usecase.TradeCycle {
	return usecase.NewTradeCycle(market, agg, machine, usecase.NewDecisionFactory(), handler, rec, log,
		usecase.WithSessionPrefix(cfg.Trading.SessionPrefix),
		usecase.WithConcurrency(cfg.Trading.Concurrency),
	)
}

// ProvideQueue creates the cycle queue on the Redis connection.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, cycle *usecase.TradeCycle, log *logger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Name:       cfg.Queue.Name,
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewCycleJob(cycle, log))
	return q
}

func ProvideScheduler(
	cfg *config.Config,
	cycle *usecase.TradeCycle,
	q *queue.RedisQueue,
	rec *metrics.Recorder,
	log *logger.Logger,
) *usecase.Scheduler {
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	return usecase.NewScheduler(cycle, qs, rec, log, cfg.Trading.Tickers, cfg.Trading.Interval)
}

// ProvideDecisionArchiver consumes the decisions topic into ClickHouse.
func ProvideDecisionArchiver(cfg *config.Config, store repository.Storage, rec *metrics.Recorder) *usecase.DecisionArchiver {
	if store == nil || !cfg.Kafka.Consumer.Enabled {
		return nil
	}
	return usecase.NewDecisionArchiver(cfg.Kafka.Topic, store, rec)
}

func ProvideTradingHandler(
	log *logger.Logger,
	agg *usecase.SignalAggregator,
	cycle *usecase.TradeCycle,
	market repository.MarketDataProvider,
	sink *internalrepo.CSVSink,
	store repository.Storage,
	rc *cache.RedisCache,
) *api.TradingEchoHandler {
	opts := []api.HandlerOption{api.WithDecisionReader(api.CSVReader{Sink: sink})}
	if store != nil {
		opts = append(opts,
			api.WithDecisionReader(api.StorageReader{Storage: store}),
			api.WithHealthCheck("clickhouse", store.Health),
		)
	}
	if rc != nil {
		opts = append(opts, api.WithHealthCheck("redis", func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		}))
	}
	return api.NewTradingEchoHandler(log, agg, cycle, market, opts...)
}

func ProvideHTTPServer(
	cfg *config.Config,
	log *logger.Logger,
	reg *prometheus.Registry,
	trading *api.TradingEchoHandler,
	hub *ws.Hub,
) *xhttp.Server {
	return xhttp.NewServer([]xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(reg, reg),
		xhttp.WithLogger(log),
	}, trading, hub)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	sched *usecase.Scheduler,
	proc *usecase.DecisionProcessor,
	hub *ws.Hub,
	pipe *mid.DecisionPipeline,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	archiver *usecase.DecisionArchiver,
	ch *pkgch.Client,
	quoteCache cache.Service,
) *server.App {
	opts := []server.Option{server.WithCloser("quote-cache", quoteCache)}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if pipe != nil {
		opts = append(opts, server.WithPipeline(pipe))
	}
	if q != nil {
		opts = append(opts, server.WithQueue(q))
	}
	if consumer != nil && archiver != nil {
		opts = append(opts, server.WithConsumer(consumer, archiver))
	}
	return server.New(cfg, log, srv, sched, proc, hub, opts...)
}
