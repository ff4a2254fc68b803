package middleware

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuardedReturnsResult(t *testing.T) {
	g := NewBudgetGuard(WithBudgets(time.Second, 2*time.Second))

	got, err := Guarded(context.Background(), g, "test", func(context.Context) int {
		return 7
	})
	if err != nil {
		t.Fatalf("guarded: %v", err)
	}
	if got != 7 {
		t.Fatalf("unexpected result %d", got)
	}
}

func TestGuardedTimeoutDoesNotCancelWork(t *testing.T) {
	g := NewBudgetGuard(WithBudgets(10*time.Millisecond, time.Second))

	finished := make(chan struct{})
	_, err := Guarded(context.Background(), g, "slow", func(ctx context.Context) int {
		defer close(finished)
		select {
		case <-ctx.Done():
			t.Error("work cancelled by caller timeout")
		case <-time.After(50 * time.Millisecond):
		}
		return 1
	})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}

	// the operation still runs to completion after the caller gave up
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("abandoned operation never finished")
	}
}

func TestGuardedDetachedFromCallerContext(t *testing.T) {
	g := NewBudgetGuard(WithBudgets(time.Second, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Guarded(ctx, g, "detached", func(ctx context.Context) bool {
		return ctx.Err() == nil
	})
	if err != nil {
		t.Fatalf("guarded: %v", err)
	}
	if !got {
		t.Fatalf("operation saw the caller's cancellation")
	}
}

func TestAdaptiveBudget(t *testing.T) {
	g := NewBudgetGuard(WithBudgets(8*time.Second, 15*time.Second), WithJumpGrace(time.Hour))

	if got := g.Budget(); got != 8*time.Second {
		t.Fatalf("stationary budget %v", got)
	}
	g.MarkJump()
	if got := g.Budget(); got != 15*time.Second {
		t.Fatalf("post-jump budget %v", got)
	}
}

func TestJumpGraceExpires(t *testing.T) {
	g := NewBudgetGuard(WithBudgets(8*time.Second, 15*time.Second), WithJumpGrace(time.Millisecond))

	g.MarkJump()
	time.Sleep(5 * time.Millisecond)
	if got := g.Budget(); got != 8*time.Second {
		t.Fatalf("grace window did not expire: %v", got)
	}
}
