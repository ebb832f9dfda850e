package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legadoives/transcritor/internal/fault"
)

const deepgramFixture = `{
	"metadata": {"duration": 42.5},
	"results": {
		"channels": [{
			"alternatives": [{
				"transcript": "bom dia e bem-vindos",
				"words": [
					{"word": "bom", "start": 0.1, "end": 0.4},
					{"word": "dia", "start": 0.45, "end": 0.8}
				]
			}]
		}]
	}
}`

func newDeepgramTest(t *testing.T, media http.HandlerFunc, listen http.HandlerFunc) (*Deepgram, string) {
	t.Helper()
	mediaSrv := httptest.NewServer(media)
	t.Cleanup(mediaSrv.Close)
	apiSrv := httptest.NewServer(listen)
	t.Cleanup(apiSrv.Close)

	d := NewDeepgram(DeepgramConfig{APIKey: "dg-key", BaseURL: apiSrv.URL})
	return d, mediaSrv.URL + "/interview.mp4"
}

func TestDeepgramTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotLanguage string
	d, mediaURL := newDeepgramTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("media bytes"))
		},
		func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotModel = r.URL.Query().Get("model")
			gotLanguage = r.URL.Query().Get("language")
			_, _ = w.Write([]byte(deepgramFixture))
		})

	res, err := d.Transcribe(context.Background(), Request{MediaURL: mediaURL})
	require.NoError(t, err)

	assert.Equal(t, "Token dg-key", gotAuth)
	assert.Equal(t, "nova-2", gotModel)
	assert.Equal(t, "pt-BR", gotLanguage)

	assert.Equal(t, "bom dia e bem-vindos", res.Transcript)
	assert.Equal(t, 42.5, res.Duration)
	require.Len(t, res.Words, 2)
	assert.Equal(t, "bom", res.Words[0].Word)
	assert.Equal(t, 0.45, res.Words[1].Start)
}

func TestDeepgramRateLimited(t *testing.T) {
	d, mediaURL := newDeepgramTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("media"))
		},
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		})

	_, err := d.Transcribe(context.Background(), Request{MediaURL: mediaURL})
	require.Error(t, err)
	assert.Equal(t, fault.KindUpstreamRateLimited, fault.KindOf(err))
	assert.True(t, fault.Retryable(err))
}

func TestDeepgramAuthError(t *testing.T) {
	d, mediaURL := newDeepgramTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("media"))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

	_, err := d.Transcribe(context.Background(), Request{MediaURL: mediaURL})
	require.Error(t, err)
	assert.Equal(t, fault.KindUpstreamAuth, fault.KindOf(err))
	assert.False(t, fault.Retryable(err))
}

func TestDeepgramEmptyResult(t *testing.T) {
	d, mediaURL := newDeepgramTest(t,
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("media"))
		},
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":{"channels":[]}}`))
		})

	_, err := d.Transcribe(context.Background(), Request{MediaURL: mediaURL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty result")
}

func TestDownloadMediaTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(1000))
		_, _ = w.Write([]byte("only a little"))
	}))
	defer srv.Close()

	_, err := downloadMedia(context.Background(), srv.Client(), Request{MediaURL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, fault.KindUpstreamTransient, fault.KindOf(err))
}

func TestDownloadMediaForwardsReferer(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := downloadMedia(context.Background(), srv.Client(), Request{
		MediaURL: srv.URL,
		Referer:  "https://legado.example.com/entrevista/1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://legado.example.com/entrevista/1", gotReferer)
}
