package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"ChartReplay/internal/domain/models"
	applogger "ChartReplay/pkg/logger"
	"ChartReplay/pkg/util"
)

// CSVBarSource loads the 1-minute series from a local CSV file with the
// columns open_time,open,high,low,close,volume. open_time accepts epoch
// seconds or RFC3339. Useful for fixtures and offline replay datasets.
type CSVBarSource struct {
	path string
	l    *applogger.Logger
}

func NewCSVBarSource(path string) *CSVBarSource {
	return &CSVBarSource{path: path}
}

// SetLogger injects a structured logger.
func (s *CSVBarSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVBarSource) LoadSeries(ctx context.Context, symbol string) ([]models.Bar, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	out := make([]models.Bar, 0, 4096)
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++
		if line == 1 && rec[0] == "open_time" {
			continue // header
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("csv line %d: expected 6 columns, got %d", line, len(rec))
		}

		b, err := parseBarRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		out = append(out, b)
	}

	if s.l != nil {
		s.l.Info("csv load_series ok",
			applogger.String("path", s.path),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
		)
	}
	return out, nil
}

func (s *CSVBarSource) Health(_ context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("csv source: %w", err)
	}
	return nil
}

func (s *CSVBarSource) Close() error { return nil }

func parseBarRecord(rec []string) (models.Bar, error) {
	var b models.Bar

	t, ok := util.ParseTime(rec[0])
	if !ok {
		return b, fmt.Errorf("bad open_time %q", rec[0])
	}
	b.OpenTime = t.Unix()

	fields := []*float64{&b.Open, &b.High, &b.Low, &b.Close}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return b, fmt.Errorf("bad price %q", rec[i+1])
		}
		*dst = v
	}

	vol, err := strconv.ParseFloat(rec[5], 64)
	if err != nil {
		return b, fmt.Errorf("bad volume %q", rec[5])
	}
	b.Volume = int64(vol)
	return b, nil
}
