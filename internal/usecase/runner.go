package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	domrepo "ChartReplay/internal/domain/repository"
	applogger "ChartReplay/pkg/logger"
)

// Runner is the external scheduler for auto-play: while the session is
// playing it triggers one skip per tick, with the inter-step delay
// scaled by the session speed multiplier.
type Runner struct {
	uc     *ChartUseCase
	base   time.Duration
	logger *applogger.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewRunner creates a runner with the given base step delay (the delay
// at 1x speed).
func NewRunner(uc *ChartUseCase, base time.Duration, logger *applogger.Logger) *Runner {
	if base <= 0 {
		base = time.Second
	}
	return &Runner{uc: uc, base: base, logger: logger, stopCh: make(chan struct{})}
}

// Start launches the stepping loop.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop terminates the stepping loop and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.mu.Unlock()
	close(r.stopCh)
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	for {
		state := r.uc.State()
		delay := r.base
		if state.Speed > 0 {
			delay = time.Duration(float64(r.base) / state.Speed)
		}

		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-time.After(delay):
		}

		state = r.uc.State()
		if !state.Playing {
			continue
		}
		if _, err := r.uc.SkipForward(ctx, state.ActiveTimeframe); err != nil {
			if errors.Is(err, domrepo.ErrEndOfReplay) {
				r.uc.Pause()
				if r.logger != nil {
					r.logger.Info("auto-play reached end of data")
				}
				continue
			}
			if r.logger != nil {
				r.logger.Warn("auto-play step failed", applogger.Error(err))
			}
		}
	}
}
