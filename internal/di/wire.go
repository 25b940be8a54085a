//go:build wireinject
// +build wireinject

package di

import (
	"SupraView/pkg/config"
	"SupraView/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideQuoteSource,
		ProvideViewCaller,
		ProvideEventSink,

		// Use cases
		ProvidePricePoller,
		ProvideSnapshotBuilder,
		ProvidePoolAggregator,
		ProvidePositionReconciler,

		// Delivery
		ProvidePriceHub,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
