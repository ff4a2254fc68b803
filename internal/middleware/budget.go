// Package middleware guards the request/response path against racing
// the push path. A request that outlives its budget is abandoned by the
// caller, but the underlying operation always runs to completion and
// announces its outcome through the push dispatcher, so a timeout can
// only ever produce a transient warning, never a state change.
package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	domrepo "ChartReplay/internal/domain/repository"
	applogger "ChartReplay/pkg/logger"
)

// ErrBudgetExceeded is returned when the request budget elapses before
// the operation finishes. The completed result still arrives on the
// push channel.
var ErrBudgetExceeded = errors.New("request budget exceeded; result will arrive on the push channel")

// BudgetGuard applies adaptive request budgets: operations shortly
// after a history jump get a longer budget, since large re-walks may be
// needed; stationary-session operations get the shorter one.
type BudgetGuard struct {
	stationary time.Duration
	postJump   time.Duration
	jumpGrace  time.Duration
	metrics    domrepo.Metrics
	logger     *applogger.Logger

	mu       sync.Mutex
	lastJump time.Time
}

// GuardOption configures a BudgetGuard.
type GuardOption func(*BudgetGuard)

// WithBudgets sets the stationary and post-jump budgets.
func WithBudgets(stationary, postJump time.Duration) GuardOption {
	return func(g *BudgetGuard) {
		if stationary > 0 {
			g.stationary = stationary
		}
		if postJump > 0 {
			g.postJump = postJump
		}
	}
}

// WithJumpGrace sets how long after a jump the longer budget applies.
func WithJumpGrace(d time.Duration) GuardOption {
	return func(g *BudgetGuard) {
		if d > 0 {
			g.jumpGrace = d
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m domrepo.Metrics) GuardOption {
	return func(g *BudgetGuard) { g.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(l *applogger.Logger) GuardOption {
	return func(g *BudgetGuard) { g.logger = l }
}

func NewBudgetGuard(opts ...GuardOption) *BudgetGuard {
	g := &BudgetGuard{
		stationary: 8 * time.Second,
		postJump:   15 * time.Second,
		jumpGrace:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MarkJump records a history jump; budgets within the grace window use
// the post-jump value.
func (g *BudgetGuard) MarkJump() {
	g.mu.Lock()
	g.lastJump = time.Now()
	g.mu.Unlock()
}

// Budget returns the budget currently in effect.
func (g *BudgetGuard) Budget() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.lastJump.IsZero() && time.Since(g.lastJump) < g.jumpGrace {
		return g.postJump
	}
	return g.stationary
}

// Guarded runs fn with the guard's current budget. fn is detached from
// the caller's cancellation: an abandoned request must not cancel the
// work whose completion the push path will announce. On timeout the
// zero value and ErrBudgetExceeded are returned; no client-visible
// state is touched here.
func Guarded[T any](ctx context.Context, g *BudgetGuard, op string, fn func(context.Context) T) (T, error) {
	budget := g.Budget()
	done := make(chan T, 1)

	go func() {
		done <- fn(context.WithoutCancel(ctx))
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case v := <-done:
		return v, nil
	case <-timer.C:
		if g.metrics != nil {
			g.metrics.RecordError("race_abort")
		}
		if g.logger != nil {
			g.logger.Warn("request budget exceeded",
				applogger.String("op", op),
				applogger.Duration("budget_ms", budget),
			)
		}
		var zero T
		return zero, ErrBudgetExceeded
	}
}
