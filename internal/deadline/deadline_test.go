package deadline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legadoives/transcritor/internal/fault"
)

func TestRunCompletesInTime(t *testing.T) {
	got, err := Run(context.Background(), time.Second, "fast op", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestRunPropagatesOperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), time.Second, "failing op", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestRunTimesOutAndCancels(t *testing.T) {
	cancelled := make(chan struct{})

	start := time.Now()
	_, err := Run(context.Background(), 20*time.Millisecond, "slow op", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(cancelled)
		return "", ctx.Err()
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindTimeout, fault.KindOf(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation context was never cancelled")
	}
}

func TestRunParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, time.Second, "op", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunMapsDeadlineErrorFromOperation(t *testing.T) {
	// An operation can observe the expiry itself and return before the
	// select does; it must still surface as a Timeout fault.
	_, err := Run(context.Background(), 10*time.Millisecond, "op", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindTimeout, fault.KindOf(err))
}
