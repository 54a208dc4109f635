package loop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vango-dev/routefilter/pkg/deferred"
	"github.com/vango-dev/routefilter/pkg/filter"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	return startLoopSize(t, 0)
}

func startLoopSize(t *testing.T, buffer int) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(buffer)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)
	return l, cancel
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		l.Execute(func() { order = append(order, i) })
	}
	// Do is queued behind the tasks above, so they have all run when it returns.
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
	if len(order) != 5 {
		t.Errorf("ran %d tasks, want 5", len(order))
	}
}

func TestLoopSurvivesPanic(t *testing.T) {
	l, _ := startLoop(t)

	l.Execute(func() { panic("boom") })

	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !ran {
		t.Error("task after a panic did not run")
	}
}

func TestLoopDoAfterStop(t *testing.T) {
	l, cancel := startLoop(t)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Do after stop = %v, want ErrStopped", err)
	}
}

func TestLoopDoHonoursContext(t *testing.T) {
	// Never started, so queued tasks never finish.
	l := New(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do = %v, want deadline exceeded", err)
	}
}

func doWithin(t *testing.T, l *Loop, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Do(ctx, fn); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestLoopExecuteFromTaskDoesNotBlock(t *testing.T) {
	l, _ := startLoopSize(t, 1)

	ran := 0
	doWithin(t, l, func() {
		for i := 0; i < 10; i++ {
			l.Execute(func() { ran++ })
		}
	})
	doWithin(t, l, func() {})

	if ran != 10 {
		t.Errorf("ran %d queued tasks, want 10", ran)
	}
}

func TestLoopSettledPromiseContinuation(t *testing.T) {
	l, _ := startLoopSize(t, 1)
	ic := filter.New(
		filter.WithExecutor(l),
		filter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	handled := false
	handler := func(context.Context, filter.Params) error {
		handled = true
		return nil
	}
	hooks := filter.Hooks{Before: filter.Single(filter.HookFunc(
		func(context.Context, string, filter.Params) (filter.Outcome, error) {
			l.Execute(func() {})
			l.Execute(func() {})
			return filter.Pending(deferred.Resolved()), nil
		}))}

	var d *filter.Dispatch
	doWithin(t, l, func() {
		d, _ = ic.Intercept(context.Background(), "r", nil, handler, hooks)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if d.Status() != filter.StatusCompleted || !handled {
		t.Errorf("status = %v, handled = %v", d.Status(), handled)
	}
}
