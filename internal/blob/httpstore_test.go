package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legadoives/transcritor/internal/fault"
	"github.com/legadoives/transcritor/internal/retry"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *HTTPStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewHTTPStore(srv.URL, "secret", "media")
	s.client = srv.Client()
	return s
}

func TestCreateUploadsAndReturnsLocator(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	payload := "some media bytes"
	var reports []int64
	locator, err := s.Create(context.Background(), "interview.mp4",
		strings.NewReader(payload), int64(len(payload)),
		func(transferred, total int64) {
			reports = append(reports, transferred)
			assert.Equal(t, int64(len(payload)), total)
		})
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/media/interview.mp4", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, payload, string(gotBody))
	assert.True(t, strings.HasSuffix(locator, "/storage/v1/object/public/media/interview.mp4"))

	require.NotEmpty(t, reports)
	assert.Equal(t, int64(len(payload)), reports[len(reports)-1])
}

func TestCreateUnknownSizeReportsIncrementally(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
	})

	var lastTotal int64 = 0
	var lastCount int64
	_, err := s.Create(context.Background(), "stream.mp3",
		strings.NewReader(strings.Repeat("x", 1<<16)), -1,
		func(transferred, total int64) {
			lastCount = transferred
			lastTotal = total
		})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), lastTotal)
	assert.Equal(t, int64(1<<16), lastCount)
}

func TestCreateServerError(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket quota exceeded", http.StatusInternalServerError)
	})

	_, err := s.Create(context.Background(), "big.mp4", strings.NewReader("x"), 1, nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindUpstreamTransient, fault.KindOf(err))
}

func TestCreateAuthError(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := s.Create(context.Background(), "a.mp4", strings.NewReader("x"), 1, nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindUpstreamAuth, fault.KindOf(err))
}

func TestCreateConnectionRefusedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	s := NewHTTPStore(srv.URL, "secret", "media")

	calls := 0
	_, attempts, err := retry.Do(context.Background(),
		retry.Policy{MaxAttempts: 3, Delay: time.Millisecond}, "upload",
		func(ctx context.Context, _ int) (string, error) {
			calls++
			return s.Create(ctx, "a.mp4", strings.NewReader("x"), 1, nil)
		})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, fault.KindUpstreamTransient, fault.KindOf(err))
	assert.True(t, fault.Retryable(err))
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		gotMethod = r.Method
		gotPath = r.URL.Path
	})

	locator, err := s.Create(context.Background(), "gone.mp4", strings.NewReader("x"), 1, nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), locator))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/storage/v1/object/media/gone.mp4", gotPath)
}

func TestDeleteForeignLocator(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {})
	err := s.Delete(context.Background(), "https://elsewhere.example.com/object/public/media/x.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong")
}
