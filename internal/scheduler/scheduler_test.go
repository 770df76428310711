package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunTicksUntilCancelled(t *testing.T) {
	sched := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var cycles atomic.Int64

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(ctx context.Context, cycleAt time.Time) error {
			if cycles.Add(1) >= 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	if got := cycles.Load(); got < 3 {
		t.Fatalf("expected at least 3 cycles, got %d", got)
	}
}

func TestRunContinuesAfterCycleError(t *testing.T) {
	sched := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var cycles atomic.Int64

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(ctx context.Context, cycleAt time.Time) error {
			if cycles.Add(1) >= 2 {
				cancel()
			}
			return errors.New("cycle blew up")
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	if got := cycles.Load(); got < 2 {
		t.Fatalf("failing cycles must not stop the loop, got %d cycles", got)
	}
}

func TestRunCancelledBeforeFirstCycle(t *testing.T) {
	sched := New(Options{Interval: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	err := sched.Run(ctx, func(ctx context.Context, cycleAt time.Time) error {
		ran.Store(true)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if ran.Load() {
		t.Fatal("no cycle should run after cancellation")
	}
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("zero interval must panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}
