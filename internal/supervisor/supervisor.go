// Package supervisor keeps a long-running task alive, restarting it with
// exponential backoff whenever it returns.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// MinBackoff replaces a zero or negative Policy.Initial.
const MinBackoff = 100 * time.Millisecond

// Task is a long-running function. Returning for any reason other than
// ctx cancellation counts as a failure.
type Task func(ctx context.Context) error

// Policy configures restart backoff.
type Policy struct {
	// Initial is the wait before the first restart. Values <= 0 mean MinBackoff.
	Initial time.Duration
	// Max caps the backoff.
	Max time.Duration
	// Multiplier grows the wait after each quick failure.
	Multiplier float64
	// ResetAfter is how long a run must last for the backoff to reset.
	ResetAfter time.Duration
	// OnRestart, if set, is called before every restart.
	OnRestart func(name string, err error)
	// Logger for restart events. Nil is safe (a discard logger is used).
	Logger *slog.Logger
}

// DefaultPolicy returns the production restart policy.
func DefaultPolicy() Policy {
	return Policy{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2.0,
		ResetAfter: time.Minute,
	}
}

// Run invokes task until ctx is cancelled, restarting it after every return
// or panic. It returns ctx.Err().
func Run(ctx context.Context, name string, task Task, p Policy) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Initial <= 0 {
		p.Initial = MinBackoff
	}
	wait := p.Initial

	for {
		runID := uuid.NewString()
		start := time.Now()
		logger.Debug("task starting", "task", name, "run_id", runID)

		err := invoke(ctx, task)
		if ctx.Err() != nil {
			logger.Info("task stopped", "task", name, "run_id", runID)
			return ctx.Err()
		}

		ran := time.Since(start)
		if p.ResetAfter > 0 && ran >= p.ResetAfter {
			wait = p.Initial
		}
		logger.Warn("task exited unexpectedly, restarting",
			"task", name,
			"run_id", runID,
			"ran", ran,
			"error", err,
			"backoff", wait,
		)
		if p.OnRestart != nil {
			p.OnRestart(name, err)
		}

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		wait = time.Duration(float64(wait) * p.Multiplier)
		if p.Max > 0 && wait > p.Max {
			wait = p.Max
		}
	}
}

// invoke runs task, converting a panic into an error.
func invoke(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}
