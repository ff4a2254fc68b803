package usecase

import (
	"context"
	"fmt"
	"sync"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
	"ChartReplay/internal/service/barstore"
	"ChartReplay/internal/service/push"
	"ChartReplay/internal/service/rescache"
	applogger "ChartReplay/pkg/logger"
)

// Session bundles the state of one instrument's charting session: the
// bar store, the resolution cache, and the replay controller. It is an
// explicit value handed to every service call; there is no ambient
// global. A single mutex serializes cache and replay mutations (the
// store itself is read-only after load).
type Session struct {
	mu sync.Mutex

	Symbol string
	Store  *barstore.Store
	Cache  *rescache.Cache
	Replay *Replay

	dispatcher *push.Dispatcher
	metrics    domrepo.Metrics
	logger     *applogger.Logger
}

func NewSession(symbol string, cache *rescache.Cache, dispatcher *push.Dispatcher, metrics domrepo.Metrics, logger *applogger.Logger) *Session {
	store := barstore.New()
	return &Session{
		Symbol:     symbol,
		Store:      store,
		Cache:      cache,
		Replay:     NewReplay(store),
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// LoadSeries performs the one blocking load, before the engine is
// ready. Replacing the series changes its identity, so the resolution
// cache is cleared and the replay controller starts over.
func (s *Session) LoadSeries(ctx context.Context, source domrepo.SeriesSource) error {
	bars, err := source.LoadSeries(ctx, s.Symbol)
	if err != nil {
		return fmt.Errorf("load series %s: %w", s.Symbol, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Store.Load(bars)
	s.Cache.Clear()
	s.Replay = NewReplay(s.Store)

	if s.logger != nil {
		s.logger.Info("series loaded",
			applogger.String("symbol", s.Symbol),
			applogger.Int("bars", s.Store.Len()),
			applogger.Int("skipped", s.Store.Skipped()),
		)
	}
	if dropped := s.Store.Skipped(); dropped > 0 && s.metrics != nil {
		s.metrics.RecordDroppedBars("load", dropped)
	}
	return nil
}

// publish hands a completed outcome to the push path. Callers must not
// hold the session lock expectations beyond their own mutation; the
// dispatcher assigns sequence numbers atomically.
func (s *Session) publish(ctx context.Context, ev *models.PushEvent) {
	if s.dispatcher != nil {
		s.dispatcher.Publish(ctx, ev)
	}
}

// State returns a read-only snapshot for the UI.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	hits, misses := s.Cache.Counters()
	return models.SessionState{
		VirtualTime:     s.Replay.VirtualTime(),
		ActiveTimeframe: string(s.Replay.ActiveTimeframe()),
		Playing:         s.Replay.Playing(),
		Speed:           s.Replay.Speed(),
		CacheHits:       hits,
		CacheMisses:     misses,
	}
}
