package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legadoives/transcritor/internal/fault"
)

type fakeCandidate struct {
	name  string
	info  *StreamInfo
	err   error
	calls int
	delay time.Duration
}

func (f *fakeCandidate) Name() string { return f.name }

func (f *fakeCandidate) Streams(ctx context.Context, ref Reference) (*StreamInfo, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.info, f.err
}

func streamInfo(urls ...string) *StreamInfo {
	info := &StreamInfo{}
	for _, u := range urls {
		info.Streams = append(info.Streams, StreamDescriptor{URL: u})
	}
	return info
}

func TestResolveStopsAtFirstSuccess(t *testing.T) {
	a := &fakeCandidate{name: "a", err: errors.New("down")}
	b := &fakeCandidate{name: "b", info: streamInfo("http://b/stream")}
	c := &fakeCandidate{name: "c", info: streamInfo("http://c/stream")}

	r := NewResolver(time.Second, a, b, c)
	res, err := r.Resolve(context.Background(), Reference{MediaID: "vid"})
	require.NoError(t, err)

	assert.Equal(t, "http://b/stream", res.MediaURL)
	assert.Equal(t, "b", res.Provider)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls, "no candidate may be contacted after a success")
}

func TestResolveExhaustsAllCandidates(t *testing.T) {
	a := &fakeCandidate{name: "mirror-a", err: errors.New("HTTP 503")}
	b := &fakeCandidate{name: "mirror-b", info: streamInfo()} // empty list is a failure too
	c := &fakeCandidate{name: "mirror-c", err: errors.New("connection refused")}

	r := NewResolver(time.Second, a, b, c)
	_, err := r.Resolve(context.Background(), Reference{MediaID: "vid"})
	require.Error(t, err)

	assert.Equal(t, fault.KindProviderExhausted, fault.KindOf(err))
	// The aggregate diagnostic carries every per-candidate failure.
	assert.Contains(t, err.Error(), "mirror-a: HTTP 503")
	assert.Contains(t, err.Error(), "mirror-b: empty descriptor list")
	assert.Contains(t, err.Error(), "mirror-c: connection refused")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestResolveTimesOutSlowCandidate(t *testing.T) {
	slow := &fakeCandidate{name: "slow", delay: time.Second, info: streamInfo("http://slow")}
	fast := &fakeCandidate{name: "fast", info: streamInfo("http://fast")}

	r := NewResolver(20*time.Millisecond, slow, fast)
	res, err := r.Resolve(context.Background(), Reference{MediaID: "vid"})
	require.NoError(t, err)
	assert.Equal(t, "http://fast", res.MediaURL)
}

func TestResolveNoCandidates(t *testing.T) {
	r := NewResolver(time.Second)
	_, err := r.Resolve(context.Background(), Reference{MediaID: "vid"})
	require.Error(t, err)
	assert.Equal(t, fault.KindProviderExhausted, fault.KindOf(err))
}

func TestResolveCarriesReferer(t *testing.T) {
	c := &fakeCandidate{name: "c", info: streamInfo("http://c/stream")}
	r := NewResolver(time.Second, c)

	res, err := r.Resolve(context.Background(), Reference{MediaID: "vid", Referer: "https://host/page"})
	require.NoError(t, err)
	assert.Equal(t, "https://host/page", res.Referer)
}
