// Package deadline wraps fallible operations with a hard timeout.
// Expiry cancels the operation's context, which tears down any
// in-flight HTTP transport instead of leaving it to burn upstream
// rate-limit quota in the background.
package deadline

import (
	"context"
	"errors"
	"time"

	"github.com/legadoives/transcritor/internal/fault"
)

type result[T any] struct {
	value T
	err   error
}

// Run executes op under a child context that expires after d. If the
// deadline fires first, the child context is cancelled and a Timeout
// fault is returned; the operation must honor its context for the
// cancellation to propagate to the wire.
func Run[T any](ctx context.Context, d time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- result[T]{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fault.New(fault.KindTimeout, op, "no result within %s", d)
		}
		return zero, ctx.Err()
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			var zero T
			return zero, fault.Wrap(fault.KindTimeout, op, r.err)
		}
		return r.value, r.err
	}
}
