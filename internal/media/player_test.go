package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playerConfigBody = `{
	"request": {
		"files": {
			"progressive": [
				{"url": "http://cdn/720", "quality": "720p", "width": 1280, "height": 720, "mime": "video/mp4"},
				{"url": "http://cdn/360", "quality": "360p", "width": 640, "height": 360, "mime": "video/mp4"}
			]
		}
	},
	"video": {"title": "Entrevista", "duration": 1800}
}`

func TestPlayerConfigStreams(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/42/config", r.URL.Path)
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write([]byte(playerConfigBody))
	}))
	t.Cleanup(srv.Close)

	c := NewPlayerConfigAPI(srv.Client(), srv.URL)
	info, err := c.Streams(context.Background(), Reference{MediaID: "42", Referer: "https://host/page"})
	require.NoError(t, err)

	assert.Equal(t, "https://host/page", gotReferer)
	assert.Equal(t, "Entrevista", info.Title)
	assert.Equal(t, 30*time.Minute, info.Duration)
	require.Len(t, info.Streams, 2)
	// Lowest resolution first: audio quality is what matters downstream.
	assert.Equal(t, "http://cdn/360", info.Streams[0].URL)
	assert.Equal(t, "360p", info.Streams[0].Label)
}

func TestPlayerConfigHLSFallback(t *testing.T) {
	body := `{"request":{"files":{"hls":{"cdns":{"akfire":{"url":"http://cdn/master.m3u8"}}}}},"video":{"duration":60}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewPlayerConfigAPI(srv.Client(), srv.URL)
	info, err := c.Streams(context.Background(), Reference{MediaID: "9"})
	require.NoError(t, err)
	require.Len(t, info.Streams, 1)
	assert.Equal(t, "http://cdn/master.m3u8", info.Streams[0].URL)
}

func TestPlayerPageScrapeEmbeddedConfig(t *testing.T) {
	page := `<html><script>window.playerConfig = ` + playerConfigBody + `;</script></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/42", r.URL.Path)
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	c := NewPlayerPageScrape(srv.Client(), srv.URL)
	info, err := c.Streams(context.Background(), Reference{MediaID: "42"})
	require.NoError(t, err)
	require.NotEmpty(t, info.Streams)
	assert.Equal(t, "http://cdn/360", info.Streams[0].URL)
}

func TestPlayerPageScrapeDirectMediaURL(t *testing.T) {
	page := `<html><video src="https://cdn.example.com/clip/video.mp4?sig=abc"></video></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	c := NewPlayerPageScrape(srv.Client(), srv.URL)
	info, err := c.Streams(context.Background(), Reference{MediaID: "42"})
	require.NoError(t, err)
	require.Len(t, info.Streams, 1)
	assert.Equal(t, "https://cdn.example.com/clip/video.mp4?sig=abc", info.Streams[0].URL)
}

func TestPlayerChainFallsBackToPageScrape(t *testing.T) {
	// Config endpoint rejects, page scrape succeeds: the ordered chain
	// recovers without caller involvement.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/video/42/config" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`<html><video src="https://cdn.example.com/direct.mp4"></video></html>`))
	}))
	t.Cleanup(srv.Close)

	r := NewResolver(time.Second,
		NewPlayerConfigAPI(srv.Client(), srv.URL),
		NewPlayerPageScrape(srv.Client(), srv.URL),
	)
	res, err := r.Resolve(context.Background(), Reference{MediaID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/direct.mp4", res.MediaURL)
	assert.Equal(t, "player-page", res.Provider)
}
