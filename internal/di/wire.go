//go:build wireinject
// +build wireinject

package di

import (
	"ChartReplay/pkg/config"
	"ChartReplay/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideSeriesSource,
		ProvideHub,
		ProvideEventSinks,

		// Engine
		ProvideDispatcher,
		ProvideCache,
		ProvideSession,
		ProvideChartUseCase,
		ProvideRunner,
		ProvideBudgetGuard,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
