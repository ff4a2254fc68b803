package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "ChartReplay/internal/domain/repository"
	"ChartReplay/internal/handler/api"
	"ChartReplay/internal/handler/ws"
	"ChartReplay/internal/middleware"
	"ChartReplay/internal/usecase"
	"ChartReplay/pkg/config"
	xhttp "ChartReplay/pkg/http"
	applogger "ChartReplay/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle: the one blocking
// series load, the HTTP and WebSocket surfaces, the auto-play runner,
// and graceful shutdown.
type App struct {
	cfg    *config.Config
	logger *applogger.Logger
	uc     *usecase.ChartUseCase
	runner *usecase.Runner
	guard  *middleware.BudgetGuard
	hub    *ws.Hub
	source domrepo.SeriesSource
	sinks  []domrepo.EventSink

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	uc *usecase.ChartUseCase,
	runner *usecase.Runner,
	guard *middleware.BudgetGuard,
	hub *ws.Hub,
	source domrepo.SeriesSource,
	sinks []domrepo.EventSink,
) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		uc:     uc,
		runner: runner,
		guard:  guard,
		hub:    hub,
		source: source,
		sinks:  sinks,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the only blocking load; everything after serves from memory
	loadCtx, loadCancel := context.WithTimeout(ctx, 2*time.Minute)
	err := a.uc.Session().LoadSeries(loadCtx, a.source)
	loadCancel()
	if err != nil {
		a.logger.Error("series load failed", applogger.Error(err))
		return err
	}

	chart := api.NewChartEchoHandler(a.uc, a.guard, a.logger)
	a.httpServer = xhttp.NewServer(chart,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	a.hub.RegisterRoutes(a.httpServer.Echo())
	a.httpServer.Echo().GET("/healthz", a.healthz)

	a.runner.Start(ctx)
	a.logger.Info("replay engine ready",
		applogger.String("symbol", a.cfg.Chart.Symbol),
		applogger.Int("port", a.cfg.Server.Port),
	)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	for _, sink := range a.sinks {
		if err := sink.Close(); err != nil {
			a.logger.Warn("sink close error", applogger.Error(err))
		}
	}

	if err := a.source.Close(); err != nil {
		a.logger.Warn("source close error", applogger.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) healthz(c echo.Context) error {
	hctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := a.source.Health(hctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":     status,
		"symbol":     a.cfg.Chart.Symbol,
		"ws_clients": a.hub.Clients(),
	})
}
