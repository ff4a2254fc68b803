package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ChartReplay/internal/domain/models"
	pkgch "ChartReplay/pkg/clickhouse"
	applogger "ChartReplay/pkg/logger"
)

// CHBarSource loads the historical 1-minute series from ClickHouse.
type CHBarSource struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

func NewCHBarSource(ch *pkgch.Client, table string) *CHBarSource {
	if table == "" {
		table = "chartreplay.bars_1m"
	}
	return &CHBarSource{db: ch.DB(), ch: ch, table: table}
}

// SetLogger injects a structured logger.
func (s *CHBarSource) SetLogger(l *applogger.Logger) { s.l = l }

// LoadSeries fetches the full ordered series for symbol. Validation and
// dedup happen at the bar store; this layer only maps rows.
func (s *CHBarSource) LoadSeries(ctx context.Context, symbol string) ([]models.Bar, error) {
	start := time.Now()
	const qtpl = `
        SELECT toUnixTimestamp(bucket), open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load_series query error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 4096)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.OpenTime, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse load_series scan error",
					applogger.String("table", s.table),
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse load_series ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHBarSource) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHBarSource) Close() error {
	return s.ch.Close()
}
