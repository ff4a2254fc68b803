package barstore

import (
	"testing"
	"time"

	"ChartReplay/internal/domain/models"
)

func minute(ts int64) models.Bar {
	return models.Bar{OpenTime: ts, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1}
}

func TestLoadSkipsBadBars(t *testing.T) {
	s := New()
	s.Load([]models.Bar{
		minute(0),
		minute(60),
		minute(60), // duplicate open time
		minute(30), // out of order
		minute(90), // not minute-aligned
		{OpenTime: 120, Open: 10, High: 9, Low: 11, Close: 10, Volume: 1}, // inverted extremes
		minute(180),
	})

	if s.Len() != 3 {
		t.Fatalf("expected 3 bars, got %d", s.Len())
	}
	if s.Skipped() != 4 {
		t.Fatalf("expected 4 skipped, got %d", s.Skipped())
	}
	if s.At(2).OpenTime != 180 {
		t.Fatalf("unexpected last bar %d", s.At(2).OpenTime)
	}
}

func TestLoadBumpsGeneration(t *testing.T) {
	s := New()
	g0 := s.Generation()
	s.Load([]models.Bar{minute(0)})
	if s.Generation() == g0 {
		t.Fatalf("generation did not change")
	}
	g1 := s.Generation()
	s.Load(nil)
	if s.Generation() == g1 {
		t.Fatalf("generation did not change on reload")
	}
	if !s.Empty() {
		t.Fatalf("expected empty store after nil load")
	}
}

func TestIndexAtOrAfter(t *testing.T) {
	s := New()
	s.Load([]models.Bar{minute(60), minute(120), minute(300)})

	cases := []struct {
		ts  int64
		idx int
		ok  bool
	}{
		{0, 0, true},
		{60, 0, true},
		{61, 1, true},
		{120, 1, true},
		{150, 2, true},
		{300, 2, true},
		{301, 3, false},
	}
	for _, c := range cases {
		idx, ok := s.IndexAtOrAfter(c.ts)
		if idx != c.idx || ok != c.ok {
			t.Fatalf("ts=%d: got (%d,%v) want (%d,%v)", c.ts, idx, ok, c.idx, c.ok)
		}
	}
}

func TestFirstIndexOfDate(t *testing.T) {
	day1 := time.Date(2024, 12, 13, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 12, 17, 0, 0, 0, 0, time.UTC)

	s := New()
	s.Load([]models.Bar{
		minute(day1.Unix() + 9*3600),
		minute(day1.Unix() + 9*3600 + 60),
		minute(day2.Unix() + 9*3600),
	})

	idx, ok := s.FirstIndexOfDate(day1)
	if !ok || idx != 0 {
		t.Fatalf("day1: got (%d,%v)", idx, ok)
	}
	idx, ok = s.FirstIndexOfDate(day2)
	if !ok || idx != 2 {
		t.Fatalf("day2: got (%d,%v)", idx, ok)
	}

	// a day with no data falls through to the next bar after midnight
	gap := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	idx, ok = s.FirstIndexOfDate(gap)
	if !ok || idx != 2 {
		t.Fatalf("gap day: got (%d,%v)", idx, ok)
	}

	// past the series end
	_, ok = s.FirstIndexOfDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if ok {
		t.Fatalf("expected no index past end of data")
	}
}

func TestSliceCopied(t *testing.T) {
	s := New()
	s.Load([]models.Bar{minute(0), minute(60), minute(120)})

	view := s.Slice(0, 2, false)
	owned := s.Slice(0, 2, true)
	if len(view) != 2 || len(owned) != 2 {
		t.Fatalf("unexpected lengths %d %d", len(view), len(owned))
	}

	owned[0].Close = 99
	if s.At(0).Close == 99 {
		t.Fatalf("copied slice aliases the store")
	}

	if got := s.Slice(2, 1, false); got != nil {
		t.Fatalf("expected nil for inverted range, got %v", got)
	}
	if got := s.Slice(-5, 100, false); len(got) != 3 {
		t.Fatalf("expected clamped full range, got %d", len(got))
	}
}

func TestBoundsAccessors(t *testing.T) {
	s := New()
	if _, ok := s.FirstOpenTime(); ok {
		t.Fatalf("expected no bounds on empty store")
	}
	s.Load([]models.Bar{minute(60), minute(120)})
	first, _ := s.FirstOpenTime()
	last, _ := s.LastOpenTime()
	if first != 60 || last != 120 {
		t.Fatalf("unexpected bounds %d %d", first, last)
	}
}
