package repository

import (
	"context"

	"ChartReplay/internal/domain/models"
)

// SeriesSource supplies the raw 1-minute series for one instrument.
// The storage format belongs to the ingestion side; the engine only
// sees an ordered bar collection.
type SeriesSource interface {
	LoadSeries(ctx context.Context, symbol string) ([]models.Bar, error)
	Health(ctx context.Context) error
	Close() error
}

// EventSink receives push events for delivery to external collaborators
// (websocket clients, pub/sub channels, downstream consumers).
type EventSink interface {
	Deliver(ctx context.Context, ev *models.PushEvent) error
	Close() error
}

// Metrics records engine observability signals.
type Metrics interface {
	RecordCacheHit(tf string)
	RecordCacheMiss(tf string)
	RecordDroppedBars(op string, n int)
	RecordPushEvent(kind string)
	RecordLatency(op string, seconds float64)
	RecordReplayPosition(ts int64)
	RecordError(kind string)
}
