package fixer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout matches every TimeoutError.
var ErrTimeout = errors.New("static analysis timed out")

// TimeoutError reports an analyzer run that exceeded the pool timeout. It
// is a retryable validation failure.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("static analysis timed out after %s", e.After)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Pool bounds concurrent analyzer runs and applies a per-run timeout.
type Pool struct {
	analyzer Analyzer
	sem      *semaphore.Weighted
	timeout  time.Duration
}

// NewPool wraps analyzer so at most workers runs are in flight. A
// non-positive timeout disables the deadline.
func NewPool(analyzer Analyzer, workers int, timeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		analyzer: analyzer,
		sem:      semaphore.NewWeighted(int64(workers)),
		timeout:  timeout,
	}
}

// Analyze runs the wrapped analyzer once a worker slot is free.
func (p *Pool) Analyze(ctx context.Context, src string) ([]Diagnostic, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for analyzer: %w", err)
	}
	defer p.sem.Release(1)

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	diags, err := p.analyzer.Analyze(runCtx, src)
	if err != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{After: p.timeout}
		}
		return nil, err
	}
	return diags, nil
}
