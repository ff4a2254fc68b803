package usecase

import (
	"context"
	"errors"
	"time"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
	applogger "ChartReplay/pkg/logger"
)

// SkipForward advances the replay by exactly one source bar for the
// given timeframe and reports the resulting candle, plus the previous
// bucket's closing candle when a data gap closed it. Past the end of
// data it returns ErrEndOfReplay; the controller state is untouched and
// a later GoToDate recovers the session.
func (uc *ChartUseCase) SkipForward(ctx context.Context, tfRaw string) (*models.StepResult, error) {
	start := time.Now()
	defer uc.observe("skip_forward", start)

	tf := domrepo.Timeframe(tfRaw)
	if !domrepo.IsValidTimeframe(tf) {
		return nil, domrepo.ErrInvalidTimeframe
	}

	s := uc.session
	s.mu.Lock()
	if err := s.Replay.SetTimeframe(tf); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	res, err := s.Replay.Skip()
	virtual := s.Replay.VirtualTime()
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, domrepo.ErrEndOfReplay) {
			s.publish(ctx, &models.PushEvent{
				Type:        models.EventEndOfData,
				Timeframe:   string(tf),
				VirtualTime: virtual,
			})
		}
		return nil, err
	}

	if res.Closed != nil {
		// the gap-closed bucket is announced before the current one so
		// clients apply candles in chart order
		closed := *res.Closed
		s.publish(ctx, &models.PushEvent{
			Type:        models.EventCandleComplete,
			Timeframe:   string(tf),
			Candle:      &closed,
			VirtualTime: virtual,
		})
	}

	evType := models.EventCandleIncomplete
	if res.Kind == models.BarComplete {
		evType = models.EventCandleComplete
	}
	candle := res.Candle
	s.publish(ctx, &models.PushEvent{
		Type:        evType,
		Timeframe:   string(tf),
		Candle:      &candle,
		VirtualTime: virtual,
	})
	uc.metricsReplayPosition(virtual)
	return &res, nil
}

// SetSpeed updates the auto-play multiplier.
func (uc *ChartUseCase) SetSpeed(speed float64) error {
	s := uc.session
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Replay.SetSpeed(speed)
}

// Play starts auto-stepping; the runner drives the actual cadence.
func (uc *ChartUseCase) Play() error {
	s := uc.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Replay.Play(); err != nil {
		return err
	}
	if uc.logger != nil {
		uc.logger.Info("replay playing",
			applogger.String("symbol", s.Symbol),
			applogger.Int64("virtual_time", s.Replay.VirtualTime()),
		)
	}
	return nil
}

// Pause stops auto-stepping.
func (uc *ChartUseCase) Pause() {
	s := uc.session
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Replay.Pause()
}

// State returns the session snapshot for the UI.
func (uc *ChartUseCase) State() models.SessionState {
	return uc.session.State()
}
