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

// PositionsConfig holds wallet position reconciliation configuration.
type PositionsConfig struct {
	BalanceFunction    string
	ObligationFunction string
	RequestTimeout     time.Duration
}

// PositionReconciler builds the per-asset view of a connected account by
// merging two concurrent batches: coin balances and lending obligations,
// one call each per configured coin. A coin whose balance call failed is
// absent from the result; an obligation failure only leaves the borrow
// fields at zero.
type PositionReconciler struct {
	cfg     PositionsConfig
	coins   []models.Coin
	caller  repository.ViewCaller
	metrics repository.Metrics
	logger  *xlogger.Logger

	mu      sync.RWMutex
	account string
	current map[string]models.WalletPosition
}

// NewPositionReconciler creates a position reconciler over the configured
// coin set.
func NewPositionReconciler(cfg PositionsConfig, coins []models.Coin, caller repository.ViewCaller, metrics repository.Metrics, logger *xlogger.Logger) *PositionReconciler {
	return &PositionReconciler{
		cfg:     cfg,
		coins:   coins,
		caller:  caller,
		metrics: metrics,
		logger:  logger,
	}
}

// Refresh fetches balances and obligations for account and replaces the
// position map wholesale. An empty account is the only input error.
func (r *PositionReconciler) Refresh(ctx context.Context, account string) error {
	if account == "" {
		return models.NormalizationErrorf("positions", "account is required")
	}
	start := time.Now()

	symbols := make([]string, len(r.coins))
	bySymbol := make(map[string]models.Coin, len(r.coins))
	for i, c := range r.coins {
		symbols[i] = c.Symbol
		bySymbol[c.Symbol] = c
	}

	var (
		wg          sync.WaitGroup
		balances    map[string]Result[decimal.Decimal]
		obligations map[string]Result[models.Obligation]
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		balances = RunKeyed(ctx, symbols, r.cfg.RequestTimeout, func(ctx context.Context, symbol string) (decimal.Decimal, error) {
			return r.fetchBalance(ctx, account, bySymbol[symbol])
		})
	}()
	go func() {
		defer wg.Done()
		obligations = RunKeyed(ctx, symbols, r.cfg.RequestTimeout, func(ctx context.Context, symbol string) (models.Obligation, error) {
			return r.fetchObligation(ctx, account, bySymbol[symbol])
		})
	}()
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	next := make(map[string]models.WalletPosition, len(symbols))
	for _, symbol := range symbols {
		bal := balances[symbol]
		if bal.Err != nil {
			if r.logger != nil {
				r.logger.Warn("balance fetch failed",
					xlogger.String("symbol", symbol), xlogger.Error(bal.Err))
			}
			if r.metrics != nil {
				r.metrics.RecordError(models.ErrorKind(bal.Err))
			}
			continue
		}
		pos := models.WalletPosition{
			Asset:      symbol,
			Amount:     bal.Value,
			TotalValue: bal.Value,
		}
		if ob := obligations[symbol]; ob.Err == nil {
			pos.Borrowed = ob.Value.DebtAmount
			pos.Collateral = ob.Value.CollateralAmount
		} else {
			if r.logger != nil {
				r.logger.Debug("obligation fetch failed",
					xlogger.String("symbol", symbol), xlogger.Error(ob.Err))
			}
			if r.metrics != nil {
				r.metrics.RecordError(models.ErrorKind(ob.Err))
			}
		}
		next[symbol] = pos
	}

	r.mu.Lock()
	r.account = account
	r.current = next
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordLatency("positions_refresh", time.Since(start).Seconds())
	}
	return nil
}

// Current returns the account the positions belong to and the latest map.
// Callers must treat the map as read-only.
func (r *PositionReconciler) Current() (string, map[string]models.WalletPosition) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account, r.current
}

func (r *PositionReconciler) fetchBalance(ctx context.Context, account string, coin models.Coin) (decimal.Decimal, error) {
	tuple, err := r.caller.CallView(ctx, r.cfg.BalanceFunction, []string{coin.TypeTag}, []interface{}{account})
	if err != nil {
		return decimal.Zero, err
	}
	if len(tuple) == 0 {
		return decimal.Zero, models.EmptyResultError(r.cfg.BalanceFunction)
	}
	return models.NormalizeRaw(tuple[0], coin.Decimals)
}

// fetchObligation normalizes the obligation tuple: collateral and debt by
// the coin's exponent, ltv and liquidation threshold from basis points.
func (r *PositionReconciler) fetchObligation(ctx context.Context, account string, coin models.Coin) (models.Obligation, error) {
	tuple, err := r.caller.CallView(ctx, r.cfg.ObligationFunction, []string{coin.TypeTag}, []interface{}{account})
	if err != nil {
		return models.Obligation{}, err
	}
	if len(tuple) < 4 {
		return models.Obligation{}, models.NormalizationErrorf("obligation",
			"expected 4 values for %s, got %d", coin.Symbol, len(tuple))
	}

	collateral, err := models.NormalizeRaw(tuple[0], coin.Decimals)
	if err != nil {
		return models.Obligation{}, err
	}
	debt, err := models.NormalizeRaw(tuple[1], coin.Decimals)
	if err != nil {
		return models.Obligation{}, err
	}
	ltv, err := models.NormalizeRatio(tuple[2], models.BasisPointDivisor)
	if err != nil {
		return models.Obligation{}, err
	}
	liq, err := models.NormalizeRatio(tuple[3], models.BasisPointDivisor)
	if err != nil {
		return models.Obligation{}, err
	}

	return models.Obligation{
		CollateralAmount:     collateral,
		DebtAmount:           debt,
		LTV:                  ltv,
		LiquidationThreshold: liq,
	}, nil
}
