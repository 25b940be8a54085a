package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SupraView/internal/domain/repository"
	"SupraView/internal/handler/ws"
	"SupraView/internal/usecase"
	"SupraView/pkg/config"
	xhttp "SupraView/pkg/http"
	applogger "SupraView/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg    *config.Config
	logger *applogger.Logger

	poller    *usecase.PricePoller
	snapshots *usecase.SnapshotBuilder
	pools     *usecase.PoolAggregator
	hub       *ws.PriceHub
	sink      repository.EventSink

	snapshotTask *usecase.Periodic
	poolsTask    *usecase.Periodic
	httpServer   *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	poller *usecase.PricePoller,
	snapshots *usecase.SnapshotBuilder,
	pools *usecase.PoolAggregator,
	hub *ws.PriceHub,
	sink repository.EventSink,
	httpHandler xhttp.Handler,
) *App {
	a := &App{
		cfg:       cfg,
		logger:    logger,
		poller:    poller,
		snapshots: snapshots,
		pools:     pools,
		hub:       hub,
		sink:      sink,
	}

	a.snapshotTask = usecase.NewPeriodic(cfg.Lending.RefreshInterval, func(ctx context.Context) {
		if err := snapshots.Refresh(ctx); err != nil {
			logger.Warn("snapshot refresh aborted", applogger.Error(err))
		}
	})
	a.poolsTask = usecase.NewPeriodic(cfg.Lending.RefreshInterval, func(ctx context.Context) {
		if err := pools.Refresh(ctx); err != nil {
			logger.Warn("pools refresh aborted", applogger.Error(err))
		}
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(logger),
	)

	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.poller.Start(ctx); err != nil {
		return err
	}
	a.snapshotTask.Start(ctx)
	a.poolsTask.Start(ctx)

	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.logger.Info("application started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("pair", a.cfg.Poller.Pair),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.poller.Stop(shutdownCtx); err != nil {
		a.logger.Warn("poller stop error", applogger.Error(err))
	}
	if err := a.snapshotTask.Stop(shutdownCtx); err != nil {
		a.logger.Warn("snapshot task stop error", applogger.Error(err))
	}
	if err := a.poolsTask.Stop(shutdownCtx); err != nil {
		a.logger.Warn("pools task stop error", applogger.Error(err))
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.hub != nil {
		a.hub.Close()
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.logger.Warn("event sink close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
