package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	droppedBars    *prometheus.CounterVec
	pushEvents     *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	replayPosition prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartreplay_cache_hits_total",
				Help: "Resolution cache hits",
			},
			[]string{"tf"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartreplay_cache_misses_total",
				Help: "Resolution cache misses",
			},
			[]string{"tf"},
		),
		droppedBars: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartreplay_dropped_bars_total",
				Help: "Malformed bars dropped during load or window assembly",
			},
			[]string{"op"},
		),
		pushEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartreplay_push_events_total",
				Help: "Events published on the push channel",
			},
			[]string{"type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartreplay_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartreplay_operation_duration_seconds",
				Help:    "Duration of chart operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		replayPosition: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chartreplay_replay_position_seconds",
				Help: "Virtual clock position of the replay session",
			},
		),
	}
}

// RecordCacheHit records a resolution cache hit.
func (r *Recorder) RecordCacheHit(tf string) {
	r.cacheHits.WithLabelValues(tf).Inc()
}

// RecordCacheMiss records a resolution cache miss.
func (r *Recorder) RecordCacheMiss(tf string) {
	r.cacheMisses.WithLabelValues(tf).Inc()
}

// RecordDroppedBars records bars rejected by validation.
func (r *Recorder) RecordDroppedBars(op string, n int) {
	r.droppedBars.WithLabelValues(op).Add(float64(n))
}

// RecordPushEvent records a published push event.
func (r *Recorder) RecordPushEvent(kind string) {
	r.pushEvents.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordReplayPosition records the virtual clock position.
func (r *Recorder) RecordReplayPosition(ts int64) {
	r.replayPosition.Set(float64(ts))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
