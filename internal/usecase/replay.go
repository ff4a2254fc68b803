package usecase

import (
	"fmt"
	"time"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
	"ChartReplay/internal/service/aggregate"
	"ChartReplay/internal/service/barstore"
)

// ReplayPhase is the controller state machine position.
type ReplayPhase int

const (
	PhaseIdle ReplayPhase = iota
	PhasePositioned
	PhaseStepping
	PhasePlaying
)

const (
	MinSpeed = 0.25
	MaxSpeed = 32.0
)

// Replay owns the session's virtual clock and the in-progress candle of
// every timeframe. It advances by exactly one source bar per step. The
// controller carries no lock of its own: all mutations go through the
// session, which serializes them (single-writer discipline).
type Replay struct {
	store *barstore.Store

	phase       ReplayPhase
	virtualTime int64
	activeTF    domrepo.Timeframe
	playing     bool
	speed       float64

	// incomplete candles per timeframe; an entry is either absent or a
	// bar whose bucket contains virtualTime-1
	incomplete map[domrepo.Timeframe]*models.Bar
}

func NewReplay(store *barstore.Store) *Replay {
	return &Replay{
		store:      store,
		activeTF:   domrepo.DefaultTimeframe(),
		speed:      1.0,
		incomplete: make(map[domrepo.Timeframe]*models.Bar),
	}
}

// GoToDate repositions the virtual clock to the start of the given UTC
// day. Partials computed against the old anchor are invalid once the
// anchor changes, so the incomplete candles of ALL timeframes are
// discarded, not just the active one.
func (r *Replay) GoToDate(day time.Time) error {
	if r.store.Empty() {
		return domrepo.ErrNotLoaded
	}
	r.virtualTime = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Unix()
	r.incomplete = make(map[domrepo.Timeframe]*models.Bar)
	r.phase = PhasePositioned
	r.playing = false
	return nil
}

// Skip advances the virtual clock by one source bar and folds it into
// the active timeframe's in-progress candle. Past the end of data it
// reports ErrEndOfReplay and leaves all state unchanged; a later
// GoToDate recovers the session.
func (r *Replay) Skip() (models.StepResult, error) {
	if r.store.Empty() {
		return models.StepResult{}, domrepo.ErrNotLoaded
	}
	idx, ok := r.store.IndexAtOrAfter(r.virtualTime)
	if !ok {
		return models.StepResult{}, domrepo.ErrEndOfReplay
	}

	minute := r.store.At(idx)
	r.virtualTime = minute.OpenTime + 60
	if r.phase != PhasePlaying {
		r.phase = PhaseStepping
	}

	tf := r.activeTF
	closed, updated, complete := aggregate.FoldMinute(r.incomplete[tf], minute, tf)

	// a gap rolled the bucket over: the previous partial closes as-is
	// and rides along with the current bucket's candle, which may itself
	// be complete when the minute is the last of its bucket
	res := models.StepResult{Timeframe: string(tf), Candle: updated, Closed: closed}
	if complete {
		delete(r.incomplete, tf)
		res.Kind = models.BarComplete
	} else {
		r.incomplete[tf] = &updated
		res.Kind = models.BarIncomplete
	}
	return res, nil
}

// SetTimeframe switches the active timeframe without touching the
// virtual clock. Each timeframe's partial state is independent and
// survives switching.
func (r *Replay) SetTimeframe(tf domrepo.Timeframe) error {
	if !domrepo.IsValidTimeframe(tf) {
		return domrepo.ErrInvalidTimeframe
	}
	r.activeTF = tf
	return nil
}

// SetSpeed sets the auto-play multiplier. The inter-step delay itself
// belongs to the external scheduler.
func (r *Replay) SetSpeed(x float64) error {
	if x < MinSpeed || x > MaxSpeed {
		return fmt.Errorf("speed %.2f out of range [%.2f, %.2f]", x, MinSpeed, MaxSpeed)
	}
	r.speed = x
	return nil
}

// Play enables auto-stepping. Requires a positioned session.
func (r *Replay) Play() error {
	if r.phase == PhaseIdle {
		return fmt.Errorf("replay not positioned")
	}
	r.playing = true
	r.phase = PhasePlaying
	return nil
}

// Pause disables auto-stepping.
func (r *Replay) Pause() {
	r.playing = false
	if r.phase == PhasePlaying {
		r.phase = PhaseStepping
	}
}

func (r *Replay) Phase() ReplayPhase { return r.phase }

func (r *Replay) VirtualTime() int64 { return r.virtualTime }

func (r *Replay) ActiveTimeframe() domrepo.Timeframe { return r.activeTF }

func (r *Replay) Playing() bool { return r.playing }

func (r *Replay) Speed() float64 { return r.speed }

// Positioned reports whether a replay session is active, i.e. the
// virtual clock has been set by a GoToDate.
func (r *Replay) Positioned() bool { return r.phase != PhaseIdle }

// IncompleteCandle returns a copy of the in-progress candle for tf.
func (r *Replay) IncompleteCandle(tf domrepo.Timeframe) (models.Bar, bool) {
	b, ok := r.incomplete[tf]
	if !ok {
		return models.Bar{}, false
	}
	return *b, true
}
