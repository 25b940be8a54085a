package di

import (
	"context"
	"fmt"
	"time"

	"SupraView/internal/domain/models"
	"SupraView/internal/domain/repository"
	"SupraView/internal/handler"
	"SupraView/internal/handler/api"
	"SupraView/internal/handler/ws"
	internalrepo "SupraView/internal/repository"
	"SupraView/internal/service/supra"
	"SupraView/internal/usecase"
	"SupraView/pkg/cache"
	"SupraView/pkg/config"
	xhttp "SupraView/pkg/http"
	pkgkafka "SupraView/pkg/kafka"
	"SupraView/pkg/logger"
	"SupraView/pkg/metrics"
	"SupraView/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return logger.New(&logger.Config{
		Level:  level,
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the quote cache: memory by default, layered over
// Redis when Redis is configured.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideQuoteSource creates the price catalog client.
func ProvideQuoteSource(cfg *config.Config, cacheSvc cache.Service, l *logger.Logger) repository.QuoteSource {
	return supra.NewCatalogClient(cfg.Supra.GraphQLURL,
		supra.WithCatalogTimeout(cfg.Supra.RequestTimeout),
		supra.WithCatalogProvider(cfg.Supra.ProviderID, cfg.Supra.InstrumentTypeID, cfg.Supra.DoraType),
		supra.WithCatalogCache(cacheSvc, cfg.Cache.QuoteTTL),
		supra.WithCatalogLogger(l),
	)
}

// ProvideViewCaller creates the chain RPC client.
func ProvideViewCaller(cfg *config.Config) repository.ViewCaller {
	return supra.NewRPCClient(cfg.Supra.RPCURL,
		supra.WithRPCTimeout(cfg.Supra.RequestTimeout),
	)
}

// ProvideEventSink creates the Kafka price sink, or nil when Kafka is
// disabled.
func ProvideEventSink(cfg *config.Config) (repository.EventSink, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPriceSink(producer, cfg.Kafka.Topic), nil
}

// ProvidePriceHub creates the websocket broadcast hub.
func ProvidePriceHub(l *logger.Logger) *ws.PriceHub {
	return ws.NewPriceHub(l)
}

// ProvidePricePoller creates the price poller with its downstream handlers
// attached: the websocket hub and, when configured, the Kafka sink.
func ProvidePricePoller(
	cfg *config.Config,
	source repository.QuoteSource,
	m repository.Metrics,
	l *logger.Logger,
	hub *ws.PriceHub,
	sink repository.EventSink,
) *usecase.PricePoller {
	handlers := []usecase.UpdateHandler{hub}
	if sink != nil {
		handlers = append(handlers, usecase.UpdateHandlerFunc(func(u *models.PriceUpdate, _ models.Direction) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sink.Publish(ctx, u); err != nil {
				l.Warn("price sink publish failed", logger.Error(err))
			}
		}))
	}

	return usecase.NewPricePoller(usecase.PollerConfig{
		Pair:               cfg.Poller.Pair,
		InstrumentID:       cfg.Poller.InstrumentID,
		ProviderName:       cfg.Supra.ProviderName,
		Interval:           cfg.Poller.Interval,
		Range:              cfg.Poller.Range,
		GranularitySeconds: cfg.Poller.GranularitySeconds,
		HistoryWindow:      cfg.Poller.HistoryWindow,
	}, source, m, l, handlers...)
}

// ProvideSnapshotBuilder creates the asset snapshot builder.
func ProvideSnapshotBuilder(cfg *config.Config, source repository.QuoteSource, m repository.Metrics, l *logger.Logger) *usecase.SnapshotBuilder {
	d := cfg.Snapshot.Defaults
	return usecase.NewSnapshotBuilder(usecase.SnapshotConfig{
		Range:              cfg.Snapshot.Range,
		GranularitySeconds: cfg.Snapshot.GranularitySeconds,
		RetryWait:          cfg.Snapshot.RetryWait,
		RequestTimeout:     cfg.Supra.RequestTimeout,
		DefaultDeposits:    d.Deposits,
		DefaultBorrows:     d.Borrows,
		DefaultLTV:         d.LTV,
		DefaultBW:          d.BW,
		DefaultDepositAPR:  d.DepositAPR,
		DefaultBorrowAPR:   d.BorrowAPR,
	}, cfg.Assets, source, m, l)
}

// ProvidePoolAggregator creates the pool metrics aggregator.
func ProvidePoolAggregator(cfg *config.Config, caller repository.ViewCaller, m repository.Metrics, l *logger.Logger) *usecase.PoolAggregator {
	return usecase.NewPoolAggregator(usecase.PoolsConfig{
		MetricsFunction: cfg.Lending.PoolMetricsFunction,
		RequestTimeout:  cfg.Supra.RequestTimeout,
	}, cfg.Coins, caller, m, l)
}

// ProvidePositionReconciler creates the wallet position reconciler.
func ProvidePositionReconciler(cfg *config.Config, caller repository.ViewCaller, m repository.Metrics, l *logger.Logger) *usecase.PositionReconciler {
	return usecase.NewPositionReconciler(usecase.PositionsConfig{
		BalanceFunction:    cfg.Lending.BalanceFunction,
		ObligationFunction: cfg.Lending.ObligationFunction,
		RequestTimeout:     cfg.Supra.RequestTimeout,
	}, cfg.Coins, caller, m, l)
}

// ProvideHTTPHandler composes the API routes and the websocket endpoint.
func ProvideHTTPHandler(
	poller *usecase.PricePoller,
	snapshots *usecase.SnapshotBuilder,
	pools *usecase.PoolAggregator,
	positions *usecase.PositionReconciler,
	hub *ws.PriceHub,
) xhttp.Handler {
	return handler.NewRoot(
		api.NewMarketHandler(poller, snapshots, pools, positions),
		hub,
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	poller *usecase.PricePoller,
	snapshots *usecase.SnapshotBuilder,
	pools *usecase.PoolAggregator,
	hub *ws.PriceHub,
	sink repository.EventSink,
	httpHandler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, poller, snapshots, pools, hub, sink, httpHandler)
}
