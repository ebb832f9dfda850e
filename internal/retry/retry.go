// Package retry re-invokes fallible pipeline stages a bounded number
// of times with a fixed delay between attempts.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/legadoives/transcritor/internal/fault"
)

// Policy bounds a retry loop. The default delay is comfortably longer
// than typical third-party rate-limit reset windows without materially
// lengthening total batch time.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Default is the stage policy used for uploads, transcription and
// refinement.
var Default = Policy{MaxAttempts: 3, Delay: 5 * time.Second}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// Do runs op until it succeeds, the attempts are exhausted, the error
// is not worth retrying, or the context is cancelled. It returns the
// result, the number of attempts actually made, and the last error
// tagged with that count.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	p = p.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return zero, attempt - 1, ctx.Err()
			case <-time.After(p.Delay):
			}
			slog.Debug("retrying stage", "op", op, "attempt", attempt)
		}

		v, err := fn(ctx, attempt)
		if err == nil {
			return v, attempt, nil
		}
		lastErr = err

		if !fault.Retryable(err) {
			return zero, attempt, fmt.Errorf("%s failed on attempt %d: %w", op, attempt, err)
		}
		slog.Warn("stage attempt failed", "op", op, "attempt", attempt, "error", err)
	}
	return zero, p.MaxAttempts, fmt.Errorf("%s failed after %d attempts: %w", op, p.MaxAttempts, lastErr)
}
