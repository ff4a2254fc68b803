package di

import (
	"context"
	"fmt"
	"time"

	domrepo "ChartReplay/internal/domain/repository"
	"ChartReplay/internal/handler/ws"
	mid "ChartReplay/internal/middleware"
	internalrepo "ChartReplay/internal/repository"
	"ChartReplay/internal/service/push"
	"ChartReplay/internal/service/rescache"
	"ChartReplay/internal/usecase"
	pkgch "ChartReplay/pkg/clickhouse"
	"ChartReplay/pkg/config"
	pkgkafka "ChartReplay/pkg/kafka"
	applogger "ChartReplay/pkg/logger"
	"ChartReplay/pkg/metrics"
	"ChartReplay/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideSeriesSource creates the configured bar source.
func ProvideSeriesSource(cfg *config.Config, l *applogger.Logger) (domrepo.SeriesSource, error) {
	switch cfg.Source.Type {
	case "csv":
		src := internalrepo.NewCSVBarSource(cfg.Source.Path)
		src.SetLogger(l)
		return src, nil
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, []string{
			"CREATE DATABASE IF NOT EXISTS chartreplay",
			"CREATE TABLE IF NOT EXISTS chartreplay.bars_1m (symbol String, bucket DateTime, open Float64, high Float64, low Float64, close Float64, vol Int64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
		}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}

		src := internalrepo.NewCHBarSource(client, cfg.Source.Table)
		src.SetLogger(l)
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

// ProvideHub creates the WebSocket push hub.
func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

// ProvideEventSinks assembles the push fan-out: the WebSocket hub
// always, Redis pub/sub and Kafka when enabled.
func ProvideEventSinks(cfg *config.Config, hub *ws.Hub, l *applogger.Logger) ([]domrepo.EventSink, error) {
	sinks := []domrepo.EventSink{hub}

	if cfg.Redis.Enabled {
		pub, err := internalrepo.NewRedisPublisher(
			internalrepo.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
			internalrepo.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			internalrepo.WithRedisChannel(cfg.Redis.Channel),
		)
		if err != nil {
			return nil, fmt.Errorf("redis publisher: %w", err)
		}
		pub.SetLogger(l)
		sinks = append(sinks, pub)
	}

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
			pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
			pkgkafka.WithHashByKey(false),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaEventSink(producer, cfg.Kafka.Topic))

		// ship deduplicated error logs alongside the event stream
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      producer,
		})
	}

	return sinks, nil
}

// ProvideDispatcher creates the push dispatcher with its client view.
func ProvideDispatcher(sinks []domrepo.EventSink, m domrepo.Metrics, l *applogger.Logger) *push.Dispatcher {
	return push.NewDispatcher(push.NewClientView(), m, l, sinks...)
}

// ProvideCache creates the two-tier resolution cache.
func ProvideCache(cfg *config.Config, m domrepo.Metrics) *rescache.Cache {
	return rescache.New(
		rescache.WithCapacity(cfg.Chart.HotCapacity, cfg.Chart.WarmCapacity),
		rescache.WithMetrics(m),
	)
}

// ProvideSession creates the charting session for the configured symbol.
func ProvideSession(cfg *config.Config, cache *rescache.Cache, d *push.Dispatcher, m domrepo.Metrics, l *applogger.Logger) *usecase.Session {
	return usecase.NewSession(cfg.Chart.Symbol, cache, d, m, l)
}

// ProvideChartUseCase creates the chart use case.
func ProvideChartUseCase(session *usecase.Session, m domrepo.Metrics, l *applogger.Logger) *usecase.ChartUseCase {
	return usecase.NewChartUseCase(session, m, l)
}

// ProvideRunner creates the auto-play runner.
func ProvideRunner(cfg *config.Config, uc *usecase.ChartUseCase, l *applogger.Logger) *usecase.Runner {
	return usecase.NewRunner(uc, cfg.Chart.StepInterval, l)
}

// ProvideBudgetGuard creates the request budget guard.
func ProvideBudgetGuard(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) *mid.BudgetGuard {
	return mid.NewBudgetGuard(
		mid.WithBudgets(cfg.Chart.StationaryBudget, cfg.Chart.PostJumpBudget),
		mid.WithJumpGrace(cfg.Chart.JumpGrace),
		mid.WithMetrics(m),
		mid.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	uc *usecase.ChartUseCase,
	runner *usecase.Runner,
	guard *mid.BudgetGuard,
	hub *ws.Hub,
	source domrepo.SeriesSource,
	sinks []domrepo.EventSink,
) *server.App {
	return server.New(cfg, l, uc, runner, guard, hub, source, sinks)
}
