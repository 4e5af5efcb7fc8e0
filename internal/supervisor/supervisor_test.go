package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		Initial:    time.Millisecond,
		Max:        4 * time.Millisecond,
		Multiplier: 2,
	}
}

func TestRunRestartsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	task := func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 5 {
			cancel()
		}
		return errors.New("exited")
	}

	var restarts int
	p := fastPolicy()
	p.OnRestart = func(name string, err error) {
		if name != "sampler" {
			t.Errorf("name = %q", name)
		}
		restarts++
	}

	err := Run(ctx, "sampler", task, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	if restarts != 4 {
		t.Errorf("restarts = %d, want 4", restarts)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []error
	calls := 0
	task := func(ctx context.Context) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		cancel()
		return nil
	}
	p := fastPolicy()
	p.OnRestart = func(_ string, err error) { got = append(got, err) }

	if err := Run(ctx, "sampler", task, p); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v", err)
	}
	if len(got) != 1 || got[0] == nil || !strings.Contains(got[0].Error(), "boom") {
		t.Errorf("restart errors = %v, want one panic error", got)
	}
}

func TestRunTreatsNilReturnAsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	task := func(ctx context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil
	}
	_ = Run(ctx, "sampler", task, fastPolicy())
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRunStopsDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Initial: time.Hour, Multiplier: 2}
	p.OnRestart = func(string, error) { cancel() }

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "sampler", func(context.Context) error { return errors.New("x") }, p)
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run blocked in backoff after cancel")
	}
}

func TestRunDoesNotRestartCancelledTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	restarted := false
	p := fastPolicy()
	p.OnRestart = func(string, error) { restarted = true }

	err := Run(ctx, "sampler", func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}, p)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if restarted {
		t.Error("task restarted after cancellation")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Initial != time.Second || p.Max != time.Minute || p.Multiplier != 2 {
		t.Errorf("DefaultPolicy = %+v", p)
	}
}

func TestRunZeroInitialBackoffStillWaits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	var mu sync.Mutex
	restarts := 0
	p := Policy{
		Initial:    0,
		Max:        time.Minute,
		Multiplier: 2,
		OnRestart: func(string, error) {
			mu.Lock()
			restarts++
			mu.Unlock()
		},
	}
	err := Run(ctx, "sampler", func(context.Context) error { return errors.New("exited") }, p)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run err = %v, want context.DeadlineExceeded", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// Waits of 100ms then 200ms fit at most two restarts before the deadline.
	if restarts < 1 || restarts > 3 {
		t.Errorf("restarts = %d in 250ms, want 1..3", restarts)
	}
}
