package usecase

import (
	"context"
	"time"

	"SupraView/internal/domain/models"
	"SupraView/internal/domain/repository"
	xlogger "SupraView/pkg/logger"
)

// UpdateHandler receives emitted price updates with the current direction
// signal.
type UpdateHandler interface {
	HandlePriceUpdate(u *models.PriceUpdate, direction models.Direction)
}

// UpdateHandlerFunc is a function adapter for UpdateHandler.
type UpdateHandlerFunc func(*models.PriceUpdate, models.Direction)

func (f UpdateHandlerFunc) HandlePriceUpdate(u *models.PriceUpdate, d models.Direction) {
	f(u, d)
}

// PollerConfig holds price poller configuration.
type PollerConfig struct {
	Pair               string
	InstrumentID       string
	ProviderName       string
	Interval           time.Duration // poll cadence; also the retry backoff
	Range              time.Duration // trailing request window
	GranularitySeconds int
	HistoryWindow      time.Duration
}

// DefaultPollerConfig returns the catalog feed defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:           8 * time.Second,
		Range:              30 * 24 * time.Hour,
		GranularitySeconds: 7200,
		HistoryWindow:      300 * time.Second,
	}
}

// PricePoller drives the quote source on a fixed cadence and emits one
// PriceUpdate per successful cycle. Failures and empty responses emit
// nothing; the next attempt happens one interval later, forever. It owns
// the price history that backs the direction signal.
type PricePoller struct {
	cfg      PollerConfig
	source   repository.QuoteSource
	history  *models.PriceHistory
	handlers []UpdateHandler
	metrics  repository.Metrics
	logger   *xlogger.Logger

	task *Periodic
}

// NewPricePoller creates a price poller.
func NewPricePoller(cfg PollerConfig, source repository.QuoteSource, metrics repository.Metrics, logger *xlogger.Logger, handlers ...UpdateHandler) *PricePoller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollerConfig().Interval
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultPollerConfig().HistoryWindow
	}
	p := &PricePoller{
		cfg:      cfg,
		source:   source,
		history:  models.NewPriceHistory(cfg.HistoryWindow),
		handlers: handlers,
		metrics:  metrics,
		logger:   logger,
	}
	p.task = NewPeriodic(cfg.Interval, p.cycle)
	return p
}

// Start begins polling. The first cycle runs immediately so accessors have
// data before the first tick.
func (p *PricePoller) Start(ctx context.Context) error {
	p.task.Start(ctx)
	if p.logger != nil {
		p.logger.Info("price poller started",
			xlogger.String("pair", p.cfg.Pair),
			xlogger.Duration("interval_ms", p.cfg.Interval),
		)
	}
	return nil
}

// Stop halts polling. Idempotent; an in-flight cycle completes first.
func (p *PricePoller) Stop(ctx context.Context) error {
	err := p.task.Stop(ctx)
	if err == nil && p.logger != nil {
		p.logger.Info("price poller stopped", xlogger.String("pair", p.cfg.Pair))
	}
	return err
}

// Latest returns the most recent update and the current direction signal.
// The update is nil before the first successful cycle.
func (p *PricePoller) Latest() (*models.PriceUpdate, models.Direction) {
	return p.history.Latest(), p.history.Direction()
}

func (p *PricePoller) cycle(ctx context.Context) {
	start := time.Now()
	end := start
	quotes, err := p.source.FetchQuotes(ctx, models.QuoteQuery{
		InstrumentID: p.cfg.InstrumentID,
		Pair:         p.cfg.Pair,
		Start:        end.Add(-p.cfg.Range),
		End:          end,
		Granularity:  p.cfg.GranularitySeconds,
		ForceUpdate:  false,
	})
	if err != nil {
		// All error kinds retry the same way: skip this cycle and wait one
		// full interval. The feed is live and expected to recover.
		if p.logger != nil {
			p.logger.Warn("price poll failed", xlogger.String("pair", p.cfg.Pair), xlogger.Error(err))
		}
		if p.metrics != nil {
			p.metrics.RecordError(models.ErrorKind(err))
			p.metrics.RecordPollCycle(p.cfg.Pair, "error")
		}
		return
	}
	if len(quotes) == 0 {
		// No data is not an error, just nothing to emit this cycle.
		if p.logger != nil {
			p.logger.Debug("no price data received", xlogger.String("pair", p.cfg.Pair))
		}
		if p.metrics != nil {
			p.metrics.RecordPollCycle(p.cfg.Pair, "no_data")
		}
		return
	}

	// The feed returns its latest entry first.
	update := &models.PriceUpdate{
		Quote: quotes[0],
		CatalogInfo: models.CatalogInfo{
			Pair:     p.cfg.Pair,
			Index:    p.cfg.InstrumentID,
			Provider: p.cfg.ProviderName,
		},
	}

	p.history.Push(update)
	direction := p.history.Direction()

	if p.metrics != nil {
		p.metrics.RecordPollCycle(p.cfg.Pair, "ok")
		price, _ := update.Average.Float64()
		p.metrics.RecordLastPrice(p.cfg.Pair, price)
		p.metrics.RecordLatency("price_poll", time.Since(start).Seconds())
	}

	for _, h := range p.handlers {
		h.HandlePriceUpdate(update, direction)
	}
}
