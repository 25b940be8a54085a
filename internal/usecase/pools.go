package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"SupraView/internal/domain/models"
	"SupraView/internal/domain/repository"
	xlogger "SupraView/pkg/logger"
)

// ratioDivisor scales raw 1e18 fixed-point lending ratios.
var ratioDivisor = decimal.New(1, models.RatioDecimals)

// PoolsConfig holds pool metrics aggregation configuration.
type PoolsConfig struct {
	MetricsFunction string
	RequestTimeout  time.Duration
}

// PoolAggregator fetches protocol pool metrics for every configured coin in
// parallel and keeps the latest complete map. A coin whose fetch or
// normalization failed is absent from the map; zeros are reserved for real
// protocol zeros.
type PoolAggregator struct {
	cfg     PoolsConfig
	coins   []models.Coin
	caller  repository.ViewCaller
	metrics repository.Metrics
	logger  *xlogger.Logger

	mu      sync.RWMutex
	current map[string]models.PoolMetrics
}

// NewPoolAggregator creates a pool aggregator over the configured coin set.
func NewPoolAggregator(cfg PoolsConfig, coins []models.Coin, caller repository.ViewCaller, metrics repository.Metrics, logger *xlogger.Logger) *PoolAggregator {
	return &PoolAggregator{
		cfg:     cfg,
		coins:   coins,
		caller:  caller,
		metrics: metrics,
		logger:  logger,
	}
}

// Refresh fetches metrics for all coins and replaces the map wholesale.
func (a *PoolAggregator) Refresh(ctx context.Context) error {
	start := time.Now()

	symbols := make([]string, len(a.coins))
	bySymbol := make(map[string]models.Coin, len(a.coins))
	for i, c := range a.coins {
		symbols[i] = c.Symbol
		bySymbol[c.Symbol] = c
	}

	results := RunKeyed(ctx, symbols, a.cfg.RequestTimeout, func(ctx context.Context, symbol string) (models.PoolMetrics, error) {
		return a.fetchPool(ctx, bySymbol[symbol])
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	next := make(map[string]models.PoolMetrics, len(symbols))
	for symbol, res := range results {
		if res.Err != nil {
			if a.logger != nil {
				a.logger.Warn("pool metrics fetch failed",
					xlogger.String("symbol", symbol), xlogger.Error(res.Err))
			}
			if a.metrics != nil {
				a.metrics.RecordError(models.ErrorKind(res.Err))
			}
			continue
		}
		next[symbol] = res.Value
	}

	a.mu.Lock()
	a.current = next
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.RecordLatency("pools_refresh", time.Since(start).Seconds())
	}
	return nil
}

// Current returns the latest pool metrics map. Callers must treat it as
// read-only.
func (a *PoolAggregator) Current() map[string]models.PoolMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// fetchPool calls the pool metrics view for one coin and normalizes the
// four-element tuple: deposits and borrows by the coin's exponent, ltv and
// borrow weight by the protocol's 1e18 ratio scale.
func (a *PoolAggregator) fetchPool(ctx context.Context, coin models.Coin) (models.PoolMetrics, error) {
	tuple, err := a.caller.CallView(ctx, a.cfg.MetricsFunction, []string{coin.TypeTag}, nil)
	if err != nil {
		return models.PoolMetrics{}, err
	}
	if len(tuple) < 4 {
		return models.PoolMetrics{}, models.NormalizationErrorf("pool_metrics",
			"expected 4 values for %s, got %d", coin.Symbol, len(tuple))
	}

	deposits, err := models.NormalizeRaw(tuple[0], coin.Decimals)
	if err != nil {
		return models.PoolMetrics{}, err
	}
	borrows, err := models.NormalizeRaw(tuple[1], coin.Decimals)
	if err != nil {
		return models.PoolMetrics{}, err
	}
	ltv, err := models.NormalizeRatio(tuple[2], ratioDivisor)
	if err != nil {
		return models.PoolMetrics{}, err
	}
	bw, err := models.NormalizeRatio(tuple[3], ratioDivisor)
	if err != nil {
		return models.PoolMetrics{}, err
	}

	return models.PoolMetrics{
		Deposits: deposits,
		Borrows:  borrows,
		LTV:      ltv,
		BW:       bw,
	}, nil
}
