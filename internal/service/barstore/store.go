package barstore

import (
	"sync/atomic"
	"time"

	"ChartReplay/internal/domain/models"
)

// dateLayout keys the exact-date index (UTC calendar days).
const dateLayout = "2006-01-02"

// Store holds the complete ordered 1-minute series for one instrument.
// It is immutable between Load calls, so concurrent reads need no
// synchronization. Indices are built once per Load and stay valid until
// the series reference changes.
type Store struct {
	bars      []models.Bar
	dateIndex map[string]int // date -> first index on that date
	skipped   int            // bars rejected during load
	gen       uint64
}

func New() *Store {
	return &Store{dateIndex: make(map[string]int)}
}

// Load replaces the series. Input must be ordered by open time; bars
// that break strict ordering, minute alignment, or the OHLC invariant
// are skipped and counted. An empty or nil input leaves the store empty
// and dependents report "no data".
func (s *Store) Load(bars []models.Bar) {
	out := make([]models.Bar, 0, len(bars))
	dateIndex := make(map[string]int)
	skipped := 0

	var prev int64 = -1
	for _, b := range bars {
		if b.OpenTime <= prev || b.OpenTime%60 != 0 || !b.Valid() {
			skipped++
			continue
		}
		day := time.Unix(b.OpenTime, 0).UTC().Format(dateLayout)
		if _, ok := dateIndex[day]; !ok {
			dateIndex[day] = len(out)
		}
		out = append(out, b)
		prev = b.OpenTime
	}

	s.bars = out
	s.dateIndex = dateIndex
	s.skipped = skipped
	atomic.AddUint64(&s.gen, 1)
}

// Generation changes every Load; cache owners compare it to detect a
// series identity change and clear.
func (s *Store) Generation() uint64 { return atomic.LoadUint64(&s.gen) }

func (s *Store) Len() int     { return len(s.bars) }
func (s *Store) Empty() bool  { return len(s.bars) == 0 }
func (s *Store) Skipped() int { return s.skipped }

// At returns the bar at index i.
func (s *Store) At(i int) models.Bar { return s.bars[i] }

// Slice returns the bars in [from, to). The view aliases the backing
// array; request ownership with copied=true when the caller will hold
// the slice past the next Load.
func (s *Store) Slice(from, to int, copied bool) []models.Bar {
	if from < 0 {
		from = 0
	}
	if to > len(s.bars) {
		to = len(s.bars)
	}
	if from >= to {
		return nil
	}
	v := s.bars[from:to]
	if !copied {
		return v
	}
	out := make([]models.Bar, len(v))
	copy(out, v)
	return out
}

// IndexAtOrAfter returns the first index whose OpenTime >= ts. The
// second return is false past the end of data.
func (s *Store) IndexAtOrAfter(ts int64) (int, bool) {
	lo, hi := 0, len(s.bars)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.bars[mid].OpenTime < ts {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= len(s.bars) {
		return len(s.bars), false
	}
	return lo, true
}

// FirstIndexOfDate returns the index of the first bar on the given UTC
// calendar day, or the first bar at or after midnight when the exact
// day has no data.
func (s *Store) FirstIndexOfDate(day time.Time) (int, bool) {
	key := day.UTC().Format(dateLayout)
	if i, ok := s.dateIndex[key]; ok {
		return i, true
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Unix()
	return s.IndexAtOrAfter(midnight)
}

// FirstOpenTime returns the open time of the earliest bar.
func (s *Store) FirstOpenTime() (int64, bool) {
	if len(s.bars) == 0 {
		return 0, false
	}
	return s.bars[0].OpenTime, true
}

// LastOpenTime returns the open time of the latest bar.
func (s *Store) LastOpenTime() (int64, bool) {
	if len(s.bars) == 0 {
		return 0, false
	}
	return s.bars[len(s.bars)-1].OpenTime, true
}
