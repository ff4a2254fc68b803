package usecase

import (
	"context"
	"errors"
	"testing"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
	"ChartReplay/internal/service/push"
	"ChartReplay/internal/service/rescache"
)

type captureSink struct {
	events []models.PushEvent
}

func (c *captureSink) Deliver(_ context.Context, ev *models.PushEvent) error {
	c.events = append(c.events, *ev)
	return nil
}

func (c *captureSink) Close() error { return nil }

func newTestUseCase(t *testing.T) (*ChartUseCase, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	disp := push.NewDispatcher(push.NewClientView(), nil, nil, sink)
	sess := NewSession("AAPL", rescache.New(), disp, nil, nil)

	bars := tradingDay(nil, dec13, 390)
	bars = tradingDay(bars, dec17, 390)
	sess.Store.Load(bars)

	return NewChartUseCase(sess, nil, nil), sink
}

func TestLoadInitialTrailingWindow(t *testing.T) {
	uc, sink := newTestUseCase(t)

	win := uc.LoadInitial(context.Background(), "5m", 10)
	if !win.Success {
		t.Fatalf("load failed: %s", win.Reason)
	}
	if len(win.Bars) != 10 {
		t.Fatalf("expected 10 candles, got %d", len(win.Bars))
	}

	// the last candle's bucket contains the last stored minute
	lastMinute := dec17.Unix() + 9*3600 + 389*60
	wantBucket := domrepo.TF5m.BucketStart(lastMinute)
	if got := win.Bars[len(win.Bars)-1].OpenTime; got != wantBucket {
		t.Fatalf("last candle bucket %d, want %d", got, wantBucket)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected one push event, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Type != models.EventWindowLoaded || ev.Timeframe != "5m" || ev.Seq != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestLoadInitialInvalidTimeframe(t *testing.T) {
	uc, sink := newTestUseCase(t)

	win := uc.LoadInitial(context.Background(), "7m", 10)
	if win.Success {
		t.Fatalf("expected failure for unknown timeframe")
	}
	if len(sink.events) != 0 {
		t.Fatalf("failed request must not push")
	}
}

func TestLoadInitialCountExceedsData(t *testing.T) {
	uc, _ := newTestUseCase(t)

	win := uc.LoadInitial(context.Background(), "1h", 10000)
	if !win.Success {
		t.Fatalf("load failed: %s", win.Reason)
	}
	// two trading days of 6.5h each, hour buckets 09..15 per day
	if len(win.Bars) != 14 {
		t.Fatalf("expected 14 hourly candles, got %d", len(win.Bars))
	}
}

func TestLoadInitialRepeatHitsCache(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	uc.LoadInitial(ctx, "5m", 50)
	uc.LoadInitial(ctx, "5m", 50)

	hits, misses := uc.Session().Cache.Counters()
	if hits != 1 || misses != 1 {
		t.Fatalf("unexpected cache counters hits=%d misses=%d", hits, misses)
	}
}

func TestGetRangeBounds(t *testing.T) {
	uc, sink := newTestUseCase(t)

	from := dec13.Unix() + 9*3600
	to := dec13.Unix() + 10*3600 - 1
	win := uc.GetRange(context.Background(), "15m", from, to, 1000)
	if !win.Success {
		t.Fatalf("range failed: %s", win.Reason)
	}
	if len(win.Bars) != 4 {
		t.Fatalf("expected 4 quarter-hour candles, got %d", len(win.Bars))
	}
	if win.Bars[0].OpenTime != from {
		t.Fatalf("unexpected first bucket %d", win.Bars[0].OpenTime)
	}
	if len(sink.events) != 0 {
		t.Fatalf("range requests must not push")
	}
}

func TestGetRangeTruncatesOldest(t *testing.T) {
	uc, _ := newTestUseCase(t)

	from := dec13.Unix() + 9*3600
	to := dec13.Unix() + 12*3600 - 1
	win := uc.GetRange(context.Background(), "15m", from, to, 3)
	if !win.Success {
		t.Fatalf("range failed: %s", win.Reason)
	}
	if len(win.Bars) != 3 {
		t.Fatalf("expected 3 candles after truncation, got %d", len(win.Bars))
	}
	// truncation keeps the most recent buckets
	wantLast := domrepo.TF15m.BucketStart(to)
	if got := win.Bars[len(win.Bars)-1].OpenTime; got != wantLast {
		t.Fatalf("last bucket %d, want %d", got, wantLast)
	}
}

func TestGetRangeInvertedBounds(t *testing.T) {
	uc, _ := newTestUseCase(t)
	win := uc.GetRange(context.Background(), "5m", 100, 50, 10)
	if win.Success {
		t.Fatalf("expected failure for inverted bounds")
	}
}

func TestGoToDatePushesPosition(t *testing.T) {
	uc, sink := newTestUseCase(t)

	win := uc.GoToDate(context.Background(), dec17, 20)
	if !win.Success {
		t.Fatalf("go to date failed: %s", win.Reason)
	}
	// every returned candle lies strictly before the new virtual time
	for _, b := range win.Bars {
		if b.OpenTime >= dec17.Unix() {
			t.Fatalf("candle %d at or after virtual time", b.OpenTime)
		}
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected one push event, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Type != models.EventPositioned || ev.VirtualTime != dec17.Unix() {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestSkipForwardPushesCandles(t *testing.T) {
	uc, sink := newTestUseCase(t)
	ctx := context.Background()

	if win := uc.GoToDate(ctx, dec13, 10); !win.Success {
		t.Fatalf("go to date failed: %s", win.Reason)
	}

	var lastSeq uint64
	for i := 0; i < 5; i++ {
		res, err := uc.SkipForward(ctx, "5m")
		if err != nil {
			t.Fatalf("skip %d: %v", i, err)
		}
		wantKind := models.BarIncomplete
		if i == 4 {
			wantKind = models.BarComplete
		}
		if res.Kind != wantKind {
			t.Fatalf("skip %d: kind %v", i, res.Kind)
		}

		ev := sink.events[len(sink.events)-1]
		if ev.Seq <= lastSeq {
			t.Fatalf("sequence not increasing: %d after %d", ev.Seq, lastSeq)
		}
		lastSeq = ev.Seq
		if i == 4 && ev.Type != models.EventCandleComplete {
			t.Fatalf("unexpected final event type %s", ev.Type)
		}
	}
}

func TestSkipForwardGapPushesClosedCandle(t *testing.T) {
	sink := &captureSink{}
	disp := push.NewDispatcher(push.NewClientView(), nil, nil, sink)
	sess := NewSession("AAPL", rescache.New(), disp, nil, nil)

	base := dec13.Unix() + 9*3600
	bars := []models.Bar{}
	for _, off := range []int64{0, 60, 9 * 60} {
		bars = append(bars, models.Bar{
			OpenTime: base + off, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10,
		})
	}
	sess.Store.Load(bars)
	uc := NewChartUseCase(sess, nil, nil)
	ctx := context.Background()

	uc.GoToDate(ctx, dec13, 10)
	for i := 0; i < 2; i++ {
		if _, err := uc.SkipForward(ctx, "5m"); err != nil {
			t.Fatalf("skip %d: %v", i, err)
		}
	}

	res, err := uc.SkipForward(ctx, "5m")
	if err != nil {
		t.Fatalf("gap skip: %v", err)
	}
	if res.Closed == nil || res.Closed.OpenTime != base {
		t.Fatalf("step result missing gap-closed candle: %+v", res)
	}

	// the gap-closed bucket is pushed first, then the completed one
	if len(sink.events) < 2 {
		t.Fatalf("expected two candle events, got %d", len(sink.events))
	}
	closedEv := sink.events[len(sink.events)-2]
	currentEv := sink.events[len(sink.events)-1]
	if closedEv.Type != models.EventCandleComplete || closedEv.Candle.OpenTime != base {
		t.Fatalf("unexpected closed-bucket event %+v", closedEv)
	}
	if currentEv.Type != models.EventCandleComplete || currentEv.Candle.OpenTime != base+5*60 {
		t.Fatalf("unexpected current-bucket event %+v", currentEv)
	}
	if closedEv.Seq >= currentEv.Seq {
		t.Fatalf("closed bucket must be sequenced before the current one")
	}
}

func TestSkipForwardEndOfData(t *testing.T) {
	uc, sink := newTestUseCase(t)
	ctx := context.Background()

	if win := uc.GoToDate(ctx, dec17, 10); !win.Success {
		t.Fatalf("go to date failed: %s", win.Reason)
	}
	s := uc.Session()
	s.Replay.virtualTime = dec17.Unix() + 9*3600 + 390*60

	_, err := uc.SkipForward(ctx, "1m")
	if !errors.Is(err, domrepo.ErrEndOfReplay) {
		t.Fatalf("expected ErrEndOfReplay, got %v", err)
	}
	ev := sink.events[len(sink.events)-1]
	if ev.Type != models.EventEndOfData {
		t.Fatalf("expected end-of-data event, got %s", ev.Type)
	}
}

func TestGoToEarlierDateDropsLaterState(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	// walk into the 17th, then jump back to the 13th
	if win := uc.GoToDate(ctx, dec17, 10); !win.Success {
		t.Fatalf("go to 17th failed: %s", win.Reason)
	}
	for i := 0; i < 3; i++ {
		if _, err := uc.SkipForward(ctx, "5m"); err != nil {
			t.Fatalf("skip %d: %v", i, err)
		}
	}

	win := uc.GoToDate(ctx, dec13, 10)
	for _, b := range win.Bars {
		if b.OpenTime >= dec17.Unix() {
			t.Fatalf("candle %d from the 17th survived the jump back", b.OpenTime)
		}
	}
	for _, tf := range domrepo.AllTimeframes {
		if _, ok := uc.Session().Replay.IncompleteCandle(tf); ok {
			t.Fatalf("partial for %s survived the jump back", tf)
		}
	}
	if got := uc.State().VirtualTime; got != dec13.Unix() {
		t.Fatalf("virtual time %d, want %d", got, dec13.Unix())
	}

	// the next step consumes the 13th's first bar, not the 17th's
	res, err := uc.SkipForward(ctx, "5m")
	if err != nil {
		t.Fatalf("skip after jump back: %v", err)
	}
	if want := dec13.Unix() + 9*3600; res.Candle.OpenTime != want {
		t.Fatalf("candle bucket %d, want %d", res.Candle.OpenTime, want)
	}
}

func TestValidateWindowDropsMalformed(t *testing.T) {
	uc, _ := newTestUseCase(t)

	win := &models.BarWindow{
		Bars: []models.Bar{
			{OpenTime: 0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1},
			{OpenTime: 60, Open: 1, High: 0.5, Low: 2, Close: 1, Volume: 1}, // inverted
			{OpenTime: 120, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1},
		},
		Timeframe: "1m",
		Success:   true,
	}
	got := uc.validateWindow("test", domrepo.TF1m, win)
	if got.Dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", got.Dropped)
	}
	if len(got.Bars) != 2 {
		t.Fatalf("expected 2 surviving bars, got %d", len(got.Bars))
	}
}

func TestSessionState(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	uc.GoToDate(ctx, dec13, 10)
	if err := uc.SetSpeed(2); err != nil {
		t.Fatalf("set speed: %v", err)
	}
	if err := uc.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}

	st := uc.State()
	if !st.Playing || st.Speed != 2 {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.VirtualTime != dec13.Unix() {
		t.Fatalf("unexpected virtual time %d", st.VirtualTime)
	}

	uc.Pause()
	if uc.State().Playing {
		t.Fatalf("still playing after pause")
	}
}
