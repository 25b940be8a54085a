package usecase

import (
	"context"
	"sync"
	"time"

	"SupraView/internal/domain/models"
	"SupraView/internal/domain/repository"
	xlogger "SupraView/pkg/logger"
)

// SnapshotConfig holds asset snapshot builder configuration.
type SnapshotConfig struct {
	Range              time.Duration // trailing request window
	GranularitySeconds int
	RetryWait          time.Duration
	RequestTimeout     time.Duration

	// Defaults are the placeholder pool figures for rows whose pool data
	// has not been wired into the snapshot yet.
	DefaultDeposits   string
	DefaultBorrows    string
	DefaultLTV        string
	DefaultBW         string
	DefaultDepositAPR string
	DefaultBorrowAPR  string
}

// SnapshotBuilder renders the asset table: one fresh quote lookup per
// tracked asset, all fetched concurrently, with a single delayed retry
// before an asset degrades to an error row. The rendered table is replaced
// wholesale on every refresh so readers never see a half-built mix.
type SnapshotBuilder struct {
	cfg     SnapshotConfig
	assets  []models.TrackedAsset
	source  repository.QuoteSource
	metrics repository.Metrics
	logger  *xlogger.Logger

	mu      sync.RWMutex
	current []models.AssetSnapshot
}

// NewSnapshotBuilder creates a snapshot builder over the tracked asset set.
func NewSnapshotBuilder(cfg SnapshotConfig, assets []models.TrackedAsset, source repository.QuoteSource, metrics repository.Metrics, logger *xlogger.Logger) *SnapshotBuilder {
	if cfg.Range <= 0 {
		cfg.Range = 24 * time.Hour
	}
	if cfg.GranularitySeconds <= 0 {
		cfg.GranularitySeconds = 60
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	return &SnapshotBuilder{
		cfg:     cfg,
		assets:  assets,
		source:  source,
		metrics: metrics,
		logger:  logger,
	}
}

type assetQuote struct {
	price  string
	change float64
	failed bool
}

// Refresh fetches every tracked asset and replaces the rendered table.
// Individual asset failures degrade to error rows; Refresh itself only
// fails on context cancellation.
func (b *SnapshotBuilder) Refresh(ctx context.Context) error {
	start := time.Now()

	names := make([]string, len(b.assets))
	byName := make(map[string]models.TrackedAsset, len(b.assets))
	for i, a := range b.assets {
		names[i] = a.Name
		byName[a.Name] = a
	}

	results := RunKeyed(ctx, names, 0, func(ctx context.Context, name string) (assetQuote, error) {
		return b.fetchAsset(ctx, byName[name])
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	// Rows keep the configured asset order regardless of settle order.
	table := make([]models.AssetSnapshot, 0, len(b.assets))
	for _, asset := range b.assets {
		table = append(table, b.rows(asset, results[asset.Name].Value)...)
	}

	b.mu.Lock()
	b.current = table
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.RecordLatency("snapshot_refresh", time.Since(start).Seconds())
	}
	return nil
}

// Current returns the last rendered table. Nil before the first refresh.
func (b *SnapshotBuilder) Current() []models.AssetSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// fetchAsset resolves one asset's price and 24h change, retrying once after
// a fixed wait before giving up.
func (b *SnapshotBuilder) fetchAsset(ctx context.Context, asset models.TrackedAsset) (assetQuote, error) {
	quotes, err := b.fetch(ctx, asset)
	if err == nil && len(quotes) > 0 {
		latest, previous, ok := latestAndPrevious(quotes)
		q := assetQuote{price: latest.Average.String()}
		if ok {
			q.change = models.PercentChange(latest.Average, previous.Average)
		}
		return q, nil
	}
	if err != nil {
		if b.logger != nil {
			b.logger.Warn("asset fetch failed, retrying",
				xlogger.String("asset", asset.Name), xlogger.Error(err))
		}
		if b.metrics != nil {
			b.metrics.RecordError(models.ErrorKind(err))
		}
	}

	select {
	case <-ctx.Done():
		return errorQuote(), ctx.Err()
	case <-time.After(b.cfg.RetryWait):
	}

	// The retry path trusts the feed's latest-first ordering and reports
	// no change figure; a second full latest/previous pass is not worth a
	// third request on an already degraded asset.
	quotes, err = b.fetch(ctx, asset)
	if err != nil || len(quotes) == 0 {
		if b.logger != nil {
			b.logger.Error("asset fetch exhausted retries",
				xlogger.String("asset", asset.Name), xlogger.Error(err))
		}
		if b.metrics != nil && err != nil {
			b.metrics.RecordError(models.ErrorKind(err))
		}
		return errorQuote(), err
	}
	return assetQuote{price: quotes[0].Average.String()}, nil
}

func (b *SnapshotBuilder) fetch(ctx context.Context, asset models.TrackedAsset) ([]models.Quote, error) {
	if b.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.RequestTimeout)
		defer cancel()
	}
	end := time.Now()
	return b.source.FetchQuotes(ctx, models.QuoteQuery{
		InstrumentID: asset.InstrumentID,
		Pair:         asset.Pair,
		Start:        end.Add(-b.cfg.Range),
		End:          end,
		Granularity:  b.cfg.GranularitySeconds,
		ForceUpdate:  true,
	})
}

func errorQuote() assetQuote {
	return assetQuote{price: "0", failed: true}
}

// rows renders an asset's snapshot rows: its own row first, then one row per
// alias sharing the same price fields.
func (b *SnapshotBuilder) rows(asset models.TrackedAsset, q assetQuote) []models.AssetSnapshot {
	row := models.AssetSnapshot{
		Name:        asset.Name,
		Deposits:    b.cfg.DefaultDeposits,
		Borrows:     b.cfg.DefaultBorrows,
		LTV:         b.cfg.DefaultLTV,
		BW:          b.cfg.DefaultBW,
		DepositAPR:  b.cfg.DefaultDepositAPR,
		BorrowAPR:   b.cfg.DefaultBorrowAPR,
		Price:       q.price,
		PriceChange: q.change,
		DataPair:    asset.Pair,
		Status:      models.StatusActive,
	}
	if q.failed {
		row.Status = models.StatusError
	}
	if asset.Stable {
		// Stables render pinned regardless of what the feed said.
		row.Price = "1.00"
		row.PriceChange = 0
	}
	if asset.DisplayName != "" {
		row.Name = asset.DisplayName
	}

	out := make([]models.AssetSnapshot, 0, 1+len(asset.Aliases))
	out = append(out, row)
	for _, alias := range asset.Aliases {
		aliased := row
		aliased.Name = alias
		out = append(out, aliased)
	}
	return out
}

// latestAndPrevious selects the quote with the greatest timestamp and the
// one with the greatest strictly earlier timestamp. Positions are never
// trusted. ok is false when no strictly earlier quote exists.
func latestAndPrevious(quotes []models.Quote) (latest, previous models.Quote, ok bool) {
	latest = quotes[0]
	for _, q := range quotes[1:] {
		if q.Timestamp.After(latest.Timestamp) {
			latest = q
		}
	}
	var found bool
	for _, q := range quotes {
		if !q.Timestamp.Before(latest.Timestamp) {
			continue
		}
		if !found || q.Timestamp.After(previous.Timestamp) {
			previous = q
			found = true
		}
	}
	return latest, previous, found
}
