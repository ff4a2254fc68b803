package push

import (
	"context"
	"errors"
	"testing"

	"ChartReplay/internal/domain/models"
)

type recordingSink struct {
	seqs []uint64
	fail bool
}

func (r *recordingSink) Deliver(_ context.Context, ev *models.PushEvent) error {
	if r.fail {
		return errors.New("sink down")
	}
	r.seqs = append(r.seqs, ev.Seq)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func TestPublishAssignsIncreasingSeq(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(NewClientView(), nil, nil, sink)

	for i := 0; i < 5; i++ {
		d.Publish(context.Background(), &models.PushEvent{Type: models.EventCandleComplete})
	}
	if len(sink.seqs) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(sink.seqs))
	}
	for i, s := range sink.seqs {
		if s != uint64(i+1) {
			t.Fatalf("seq %d at position %d", s, i)
		}
	}
}

func TestPublishSurvivesSinkFailure(t *testing.T) {
	bad := &recordingSink{fail: true}
	good := &recordingSink{}
	view := NewClientView()
	d := NewDispatcher(view, nil, nil, bad, good)

	d.Publish(context.Background(), &models.PushEvent{Type: models.EventPositioned, VirtualTime: 42})

	if len(good.seqs) != 1 {
		t.Fatalf("healthy sink skipped after failing sink")
	}
	if view.VirtualTime() != 42 {
		t.Fatalf("view not updated despite sink failure")
	}
}

func TestClientViewDiscardsStale(t *testing.T) {
	v := NewClientView()

	if !v.Apply(&models.PushEvent{Seq: 2, Timeframe: "15m", VirtualTime: 100}) {
		t.Fatalf("fresh event rejected")
	}
	// an older event arriving late must not roll the view back
	if v.Apply(&models.PushEvent{Seq: 1, Timeframe: "1m", VirtualTime: 50}) {
		t.Fatalf("stale event applied")
	}
	if v.ActiveTimeframe() != "15m" || v.VirtualTime() != 100 {
		t.Fatalf("view rolled back: tf=%s vt=%d", v.ActiveTimeframe(), v.VirtualTime())
	}
	// replays of the same sequence are also ignored
	if v.Apply(&models.PushEvent{Seq: 2, Timeframe: "1m"}) {
		t.Fatalf("duplicate sequence applied")
	}
	if v.LastSeq() != 2 {
		t.Fatalf("unexpected last seq %d", v.LastSeq())
	}
}

func TestClientViewKeepsFieldsOnPartialEvents(t *testing.T) {
	v := NewClientView()
	v.Apply(&models.PushEvent{Seq: 1, Timeframe: "5m", VirtualTime: 300})

	// a candle event without a position leaves the position alone
	v.Apply(&models.PushEvent{Seq: 2, Timeframe: "5m"})
	if v.VirtualTime() != 300 {
		t.Fatalf("position lost on partial event")
	}
}
