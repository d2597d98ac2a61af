package resilience

import (
	"context"
	"fmt"
	"time"
)

type outcome[T any] struct {
	val T
	err error
}

// CallWithTimeout runs fn with a derived context that is cancelled after the
// given timeout and returns its result. If fn has not returned by then, the
// call is abandoned and context.DeadlineExceeded is returned; fn keeps
// running until it observes its context.
func CallWithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome[T]{val: v, err: err}
	}()
	select {
	case o := <-done:
		return o.val, o.err
	case <-timeoutCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}
