package aggregate

import (
	"testing"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
)

// minutes builds n consecutive 1-minute bars starting at start, with a
// deterministic price walk so extremes are distinguishable.
func minutes(start int64, n int) []models.Bar {
	out := make([]models.Bar, 0, n)
	for i := 0; i < n; i++ {
		base := float64(100 + i)
		out = append(out, models.Bar{
			OpenTime: start + int64(i)*60,
			Open:     base,
			High:     base + 2,
			Low:      base - 1,
			Close:    base + 1,
			Volume:   10,
		})
	}
	return out
}

func TestRangeFiveMinuteBucket(t *testing.T) {
	// minutes :10 through :19 form exactly two 5m buckets
	start := int64(600)
	bars := minutes(start, 10)

	got := Range(bars, domrepo.TF5m)
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}

	first := got[0]
	if first.OpenTime != 600 {
		t.Fatalf("unexpected open time %d", first.OpenTime)
	}
	if first.Open != 100 || first.Close != 105 {
		t.Fatalf("unexpected open/close %v/%v", first.Open, first.Close)
	}
	if first.High != 106 || first.Low != 99 {
		t.Fatalf("unexpected high/low %v/%v", first.High, first.Low)
	}
	if first.Volume != 50 {
		t.Fatalf("unexpected volume %d", first.Volume)
	}

	second := got[1]
	if second.OpenTime != 900 {
		t.Fatalf("unexpected second open time %d", second.OpenTime)
	}
	if second.Open != 105 || second.Close != 110 {
		t.Fatalf("unexpected second open/close %v/%v", second.Open, second.Close)
	}
}

func TestRangeUnalignedStart(t *testing.T) {
	// minutes :02 through :06 span two 5m buckets; the first candle
	// covers only the stored minutes of its bucket
	bars := minutes(120, 5)

	got := Range(bars, domrepo.TF5m)
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	if got[0].OpenTime != 0 || got[0].Volume != 30 {
		t.Fatalf("unexpected first candle %+v", got[0])
	}
	if got[1].OpenTime != 300 || got[1].Volume != 20 {
		t.Fatalf("unexpected second candle %+v", got[1])
	}
}

func TestRangeGapSkipsEmptyBuckets(t *testing.T) {
	bars := append(minutes(0, 5), minutes(1800, 5)...)

	got := Range(bars, domrepo.TF5m)
	if len(got) != 2 {
		t.Fatalf("expected 2 candles across gap, got %d", len(got))
	}
	if got[0].OpenTime != 0 || got[1].OpenTime != 1800 {
		t.Fatalf("unexpected bucket times %d %d", got[0].OpenTime, got[1].OpenTime)
	}
}

func TestRangeSplitInvariance(t *testing.T) {
	bars := minutes(0, 120)
	whole := Range(bars, domrepo.TF15m)

	// any split at a bucket boundary must produce the same candles
	split := append(Range(bars[:45], domrepo.TF15m), Range(bars[45:], domrepo.TF15m)...)
	if len(whole) != len(split) {
		t.Fatalf("length mismatch %d vs %d", len(whole), len(split))
	}
	for i := range whole {
		if whole[i] != split[i] {
			t.Fatalf("candle %d mismatch: %+v vs %+v", i, whole[i], split[i])
		}
	}
}

func TestRangeIdentityOnOneMinute(t *testing.T) {
	bars := minutes(0, 7)
	got := Range(bars, domrepo.TF1m)
	if len(got) != len(bars) {
		t.Fatalf("expected %d candles, got %d", len(bars), len(got))
	}
	for i := range bars {
		if got[i] != bars[i] {
			t.Fatalf("candle %d differs from source bar", i)
		}
	}
}

func TestRangeEmpty(t *testing.T) {
	if got := Range(nil, domrepo.TF5m); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestFoldMinuteMatchesRange(t *testing.T) {
	bars := minutes(0, 37)

	var incomplete *models.Bar
	var folded []models.Bar
	for _, m := range bars {
		closed, updated, complete := FoldMinute(incomplete, m, domrepo.TF15m)
		if closed != nil {
			folded = append(folded, *closed)
		}
		if complete {
			folded = append(folded, updated)
			incomplete = nil
			continue
		}
		u := updated
		incomplete = &u
	}
	if incomplete != nil {
		folded = append(folded, *incomplete)
	}

	want := Range(bars, domrepo.TF15m)
	if len(folded) != len(want) {
		t.Fatalf("length mismatch %d vs %d", len(folded), len(want))
	}
	for i := range want {
		if folded[i] != want[i] {
			t.Fatalf("candle %d mismatch: %+v vs %+v", i, folded[i], want[i])
		}
	}
}

func TestFoldMinuteCompletion(t *testing.T) {
	bars := minutes(0, 5)

	var incomplete *models.Bar
	for i, m := range bars {
		closed, updated, complete := FoldMinute(incomplete, m, domrepo.TF5m)
		if closed != nil {
			t.Fatalf("unexpected closed candle at minute %d", i)
		}
		if complete != (i == 4) {
			t.Fatalf("minute %d: complete=%v", i, complete)
		}
		u := updated
		incomplete = &u
	}
	if incomplete.Volume != 50 {
		t.Fatalf("unexpected folded volume %d", incomplete.Volume)
	}
}

func TestFoldMinuteGapRollsOver(t *testing.T) {
	partial := &models.Bar{OpenTime: 0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 7}

	// a minute from a later bucket closes the stale partial as-is
	closed, updated, complete := FoldMinute(partial, models.Bar{
		OpenTime: 900, Open: 3, High: 4, Low: 2, Close: 3.5, Volume: 5,
	}, domrepo.TF5m)
	if closed == nil || *closed != *partial {
		t.Fatalf("expected stale partial returned as closed, got %v", closed)
	}
	if updated.OpenTime != 900 || updated.Volume != 5 {
		t.Fatalf("unexpected fresh candle %+v", updated)
	}
	if complete {
		t.Fatalf("first minute of a bucket must not complete it")
	}
}
