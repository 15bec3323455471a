package api

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy controls how a step is retried when its runner returns an
// error. MaxAttempts includes the first attempt. For example:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// The delay before retry n (1-based) is InitialBackoff * BackoffMultiplier^(n-1),
// capped at MaxBackoff when MaxBackoff > 0. A zero InitialBackoff retries
// immediately.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Delay returns how long to wait before the given retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if p.InitialBackoff <= 0 || retry <= 0 {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(p.InitialBackoff)
	for i := 1; i < retry; i++ {
		d *= mult
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

// RetryRunner wraps inner so that failed invocations are retried according
// to policy. Context cancellation is never retried, and a cancelled context
// interrupts the wait between attempts.
func RetryRunner(inner StepRunner, policy RetryPolicy) StepRunner {
	if policy.MaxAttempts <= 1 {
		return inner
	}
	return RunnerFunc(func(ctx context.Context, action Action) (StepOutput, error) {
		var lastErr error
		for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
			if attempt > 1 {
				if err := sleepCtx(ctx, policy.Delay(attempt-1)); err != nil {
					return Null(), err
				}
			}
			out, err := inner.Invoke(ctx, action)
			if err == nil {
				return out, nil
			}
			lastErr = err
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
		}
		return Null(), fmt.Errorf("after %d attempts: %w", policy.MaxAttempts, lastErr)
	})
}

// TimeoutRunner bounds every invocation of inner to d. The runner must
// honour ctx for the bound to take effect.
func TimeoutRunner(inner StepRunner, d time.Duration) StepRunner {
	if d <= 0 {
		return inner
	}
	return RunnerFunc(func(ctx context.Context, action Action) (StepOutput, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return inner.Invoke(ctx, action)
	})
}

// ResourceRouter dispatches each action to the runner registered for its
// resource id, falling back to Fallback. A missing route with no fallback
// is a runner error.
type ResourceRouter struct {
	Routes   map[string]StepRunner
	Fallback StepRunner
}

func (r ResourceRouter) Invoke(ctx context.Context, action Action) (StepOutput, error) {
	if runner, ok := r.Routes[action.Resource]; ok {
		return runner.Invoke(ctx, action)
	}
	if r.Fallback != nil {
		return r.Fallback.Invoke(ctx, action)
	}
	return Null(), fmt.Errorf("no runner for resource %q", action.Resource)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
