package usecase

import (
	"context"
	"time"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
	"ChartReplay/internal/service/aggregate"
	"ChartReplay/internal/service/rescache"
	applogger "ChartReplay/pkg/logger"
)

// ChartUseCase translates external chart requests into bar store,
// cache, and replay controller calls. It carries no state of its own;
// everything correctness-relevant lives in the session.
type ChartUseCase struct {
	session *Session
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewChartUseCase(session *Session, metrics domrepo.Metrics, logger *applogger.Logger) *ChartUseCase {
	return &ChartUseCase{session: session, metrics: metrics, logger: logger}
}

func (uc *ChartUseCase) Session() *Session { return uc.session }

// LoadInitial returns a window of visibleCount bars ending at the
// series end, or at the replay virtual time when a session is active.
// The active timeframe follows the request, so the resulting push event
// is also the authoritative timeframe switch.
func (uc *ChartUseCase) LoadInitial(ctx context.Context, tfRaw string, visibleCount int) *models.BarWindow {
	start := time.Now()
	defer uc.observe("load_initial", start)

	tf := domrepo.Timeframe(tfRaw)
	if !domrepo.IsValidTimeframe(tf) {
		return failWindow(tfRaw, domrepo.ErrInvalidTimeframe.Error())
	}
	if visibleCount <= 0 {
		visibleCount = 200
	}

	s := uc.session
	s.mu.Lock()
	if err := s.Replay.SetTimeframe(tf); err != nil {
		s.mu.Unlock()
		return failWindow(tfRaw, err.Error())
	}

	anchorIdx, ok := uc.anchorIndex()
	if !ok {
		s.mu.Unlock()
		return failWindow(string(tf), domrepo.ErrNoData.Error())
	}
	win := uc.window(tf, anchorIdx, visibleCount)
	s.mu.Unlock()

	win = uc.validateWindow("load_initial", tf, win)
	if win.Success {
		s.publish(ctx, &models.PushEvent{
			Type:      models.EventWindowLoaded,
			Timeframe: string(tf),
			Bars:      win.Bars,
		})
	}
	return win
}

// GetRange returns candles covering the 1-minute bars within [from, to],
// at most maxCount, truncating the oldest first. The lower bound is
// aligned up to a bucket boundary so the first candle aggregates its
// full stored minute set.
func (uc *ChartUseCase) GetRange(ctx context.Context, tfRaw string, from, to int64, maxCount int) *models.BarWindow {
	start := time.Now()
	defer uc.observe("get_range", start)

	tf := domrepo.Timeframe(tfRaw)
	if !domrepo.IsValidTimeframe(tf) {
		return failWindow(tfRaw, domrepo.ErrInvalidTimeframe.Error())
	}
	if maxCount <= 0 {
		maxCount = 1000
	}
	if from > to {
		return failWindow(string(tf), "from after to")
	}

	s := uc.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Store.Empty() {
		return failWindow(string(tf), domrepo.ErrNoData.Error())
	}

	// last 1-minute bar inside the bounds
	endIdx, _ := s.Store.IndexAtOrAfter(to + 1)
	anchorIdx := endIdx - 1
	if anchorIdx < 0 {
		return failWindow(string(tf), domrepo.ErrNoData.Error())
	}
	anchor := s.Store.At(anchorIdx).OpenTime
	if anchor < from {
		return failWindow(string(tf), domrepo.ErrNoData.Error())
	}

	// align the lower bound up to the next bucket boundary, then count
	// whole buckets between it and the anchor bucket
	w := tf.BucketSeconds()
	fromAligned := tf.BucketStart(from)
	if fromAligned < from {
		fromAligned += w
	}
	if fromAligned > anchor {
		return failWindow(string(tf), domrepo.ErrNoData.Error())
	}
	count := int((tf.BucketStart(anchor)-fromAligned)/w) + 1
	if count > maxCount {
		count = maxCount
	}

	win := uc.window(tf, anchorIdx, count)
	return uc.validateWindow("get_range", tf, win)
}

// GoToDate repositions the virtual clock to the start of the given day
// and returns the trailing window of visibleCount bars ending there.
func (uc *ChartUseCase) GoToDate(ctx context.Context, day time.Time, visibleCount int) *models.BarWindow {
	start := time.Now()
	defer uc.observe("go_to_date", start)

	if visibleCount <= 0 {
		visibleCount = 200
	}

	s := uc.session
	s.mu.Lock()
	tf := s.Replay.ActiveTimeframe()
	if err := s.Replay.GoToDate(day); err != nil {
		s.mu.Unlock()
		return failWindow(string(tf), err.Error())
	}
	virtual := s.Replay.VirtualTime()

	// window ends at the last bar strictly before the new virtual time
	endIdx, _ := s.Store.IndexAtOrAfter(virtual)
	anchorIdx := endIdx - 1

	var win *models.BarWindow
	if anchorIdx < 0 {
		win = failWindow(string(tf), domrepo.ErrNoData.Error())
	} else {
		win = uc.window(tf, anchorIdx, visibleCount)
	}
	s.mu.Unlock()

	win = uc.validateWindow("go_to_date", tf, win)
	uc.metricsReplayPosition(virtual)
	s.publish(ctx, &models.PushEvent{
		Type:        models.EventPositioned,
		Timeframe:   string(tf),
		Bars:        win.Bars,
		VirtualTime: virtual,
	})
	return win
}

// anchorIndex picks the window anchor: the last consumed bar during an
// active replay, the series end otherwise. Caller holds the session
// lock.
func (uc *ChartUseCase) anchorIndex() (int, bool) {
	s := uc.session
	if s.Store.Empty() {
		return 0, false
	}
	if s.Replay.Positioned() {
		endIdx, _ := s.Store.IndexAtOrAfter(s.Replay.VirtualTime())
		if endIdx == 0 {
			return 0, false
		}
		return endIdx - 1, true
	}
	return s.Store.Len() - 1, true
}

// window computes (or fetches) the trailing window of up to count tf
// bars whose last candle ends at the anchor bar. The minute range
// starts on a bucket boundary, so every emitted candle aggregates all
// stored minutes of its bucket; gaps simply yield fewer candles.
// Caller holds the session lock.
func (uc *ChartUseCase) window(tf domrepo.Timeframe, anchorIdx, count int) *models.BarWindow {
	s := uc.session
	anchor := s.Store.At(anchorIdx).OpenTime
	w := tf.BucketSeconds()

	key := rescache.Key{TF: tf, Anchor: anchor, Count: count}
	bars := s.Cache.GetOrCompute(key, func() []models.Bar {
		startBoundary := tf.BucketStart(anchor) - int64(count-1)*w
		fromIdx, ok := s.Store.IndexAtOrAfter(startBoundary)
		if !ok {
			return nil
		}
		src := s.Store.Slice(fromIdx, anchorIdx+1, false)
		return aggregate.Range(src, tf)
	})

	if len(bars) == 0 {
		return failWindow(string(tf), domrepo.ErrNoData.Error())
	}
	return &models.BarWindow{
		Bars:       bars,
		Timeframe:  string(tf),
		RangeStart: bars[0].OpenTime,
		RangeEnd:   bars[len(bars)-1].OpenTime + w,
		Success:    true,
	}
}

// validateWindow drops malformed bars instead of failing the request;
// the drop count is surfaced in the envelope and metrics.
func (uc *ChartUseCase) validateWindow(op string, tf domrepo.Timeframe, win *models.BarWindow) *models.BarWindow {
	if win == nil || !win.Success {
		return win
	}
	dropped := 0
	for _, b := range win.Bars {
		if !b.Valid() {
			dropped++
		}
	}
	if dropped > 0 {
		// filter into a fresh slice, never mutate the cached one in place
		clean := make([]models.Bar, 0, len(win.Bars)-dropped)
		for _, b := range win.Bars {
			if b.Valid() {
				clean = append(clean, b)
			}
		}
		win.Bars = clean
		win.Dropped = dropped
		if uc.metrics != nil {
			uc.metrics.RecordDroppedBars(op, dropped)
		}
		if uc.logger != nil {
			uc.logger.Warn("malformed bars dropped",
				applogger.String("op", op),
				applogger.String("tf", string(tf)),
				applogger.Int("dropped", dropped),
			)
		}
	}
	return win
}

func (uc *ChartUseCase) observe(op string, start time.Time) {
	if uc.metrics != nil {
		uc.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}

func (uc *ChartUseCase) metricsReplayPosition(ts int64) {
	if uc.metrics != nil {
		uc.metrics.RecordReplayPosition(ts)
	}
}

func failWindow(tf, reason string) *models.BarWindow {
	return &models.BarWindow{Timeframe: tf, Success: false, Reason: reason}
}
