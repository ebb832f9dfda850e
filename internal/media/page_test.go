package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legadoives/transcritor/internal/fault"
)

func pageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractFindsEmbeddedID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "iframe embed",
			body: `<html><iframe src="https://player.vimeo.com/video/123456"></iframe></html>`,
			want: "123456",
		},
		{
			name: "data attribute",
			body: `<html><div data-vimeo-id="987654"></div></html>`,
			want: "987654",
		},
		{
			name: "json config",
			body: `<html><script>{"vimeo_video_id": "555"}</script></html>`,
			want: "555",
		},
		{
			name: "most specific rule wins over plain link",
			body: `<html><a href="https://vimeo.com/111">x</a><iframe src="https://player.vimeo.com/video/222"></iframe></html>`,
			want: "222",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := pageServer(t, tt.body)
			e := NewPageExtractor(srv.Client(), time.Second, nil, "")
			info, err := e.Extract(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.MediaID)
		})
	}
}

func TestExtractLocatorNotFound(t *testing.T) {
	srv := pageServer(t, `<html><body>just an article, no embedded player</body></html>`)
	e := NewPageExtractor(srv.Client(), time.Second, nil, "")

	_, err := e.Extract(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, fault.KindLocatorNotFound, fault.KindOf(err))
}

func TestExtractMetadata(t *testing.T) {
	body := `<html><head>
		<title>Entrevista sobre direito tribut&aacute;rio 12-03-2024 | Gandra Martins Advogados</title>
	</head><body>
		<p>Convidado: <strong>Ives Gandra</strong></p>
		<iframe src="https://player.vimeo.com/video/42"></iframe>
	</body></html>`
	srv := pageServer(t, body)

	e := NewPageExtractor(srv.Client(), time.Second, nil, `\s*[|\-–—]\s*Gandra Martins.*$`)
	info, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "42", info.MediaID)
	assert.Equal(t, "Entrevista sobre direito tributário 12-03-2024", info.Meta.Title)
	assert.Equal(t, "12/03/2024", info.Meta.Date)
	assert.Equal(t, "Ives Gandra", info.Meta.Guest)
}

func TestExtractMetadataDegradesToDefaults(t *testing.T) {
	// No title, no date, no guest: still resolves with defaults.
	srv := pageServer(t, `<html><body><iframe src="https://player.vimeo.com/video/7"></iframe></body></html>`)
	e := NewPageExtractor(srv.Client(), time.Second, nil, "")

	info, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "7", info.MediaID)
	assert.Equal(t, defaultTitle, info.Meta.Title)
	assert.Empty(t, info.Meta.Date)
	assert.Empty(t, info.Meta.Guest)
}

func TestExtractCustomRuleOrder(t *testing.T) {
	body := `<html><a href="https://vimeo.com/111"></a><div data-vimeo-id="222"></div></html>`
	srv := pageServer(t, body)

	rules := []LocatorRule{
		{Name: "data attribute first", Pattern: DefaultLocatorRules()[3].Pattern},
		{Name: "plain link", Pattern: DefaultLocatorRules()[2].Pattern},
	}
	e := NewPageExtractor(srv.Client(), time.Second, rules, "")
	info, err := e.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "222", info.MediaID)
}

func TestExtractTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	e := NewPageExtractor(srv.Client(), 30*time.Millisecond, nil, "")
	_, err := e.Extract(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, fault.KindTimeout, fault.KindOf(err))
}
