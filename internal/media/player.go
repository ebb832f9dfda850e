package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/legadoives/transcritor/internal/fault"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var playerIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vimeo\.com/(\d+)`),
	regexp.MustCompile(`player\.vimeo\.com/video/(\d+)`),
}

// IsPlayerURL reports whether the reference is a direct video-platform
// URL rather than a page that embeds one.
func IsPlayerURL(rawURL string) bool {
	return ExtractPlayerID(rawURL) != ""
}

// ExtractPlayerID pulls the numeric video id out of a direct URL.
func ExtractPlayerID(rawURL string) string {
	for _, p := range playerIDPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// PlayerConfigAPI asks the platform's player config endpoint for the
// stream list. Some videos only answer when the embedding page is
// presented as the referer.
type PlayerConfigAPI struct {
	baseURL string
	client  *http.Client
}

func NewPlayerConfigAPI(client *http.Client, baseURL string) *PlayerConfigAPI {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = "https://player.vimeo.com"
	}
	return &PlayerConfigAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *PlayerConfigAPI) Name() string { return "player-config" }

type playerConfig struct {
	Request struct {
		Files struct {
			Progressive []progressiveFile `json:"progressive"`
			HLS         struct {
				CDNs map[string]struct {
					URL string `json:"url"`
				} `json:"cdns"`
			} `json:"hls"`
		} `json:"files"`
	} `json:"request"`
	Video struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
	} `json:"video"`
}

type progressiveFile struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	MIME    string `json:"mime"`
}

func (p *PlayerConfigAPI) Streams(ctx context.Context, ref Reference) (*StreamInfo, error) {
	op := p.Name()
	if ref.MediaID == "" {
		return nil, fmt.Errorf("%s: missing media id", op)
	}

	url := fmt.Sprintf("%s/video/%s/config", p.baseURL, ref.MediaID)
	body, err := p.get(ctx, url, ref.Referer, "application/json, text/javascript, */*; q=0.01")
	if err != nil {
		return nil, err
	}

	var cfg playerConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("%s: malformed config: %w", op, err)
	}
	return configStreams(&cfg), nil
}

func (p *PlayerConfigAPI) get(ctx context.Context, url, referer, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", p.Name(), err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Origin", p.baseURL)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", p.Name(), err)
	}
	if err := fault.FromStatus(p.Name(), resp.StatusCode, ""); err != nil {
		return nil, err
	}
	return body, nil
}

// configStreams maps a parsed player config to descriptors. Progressive
// renditions are ordered lowest resolution first: audio quality is what
// matters downstream and the smaller file saves shared bandwidth.
func configStreams(cfg *playerConfig) *StreamInfo {
	info := &StreamInfo{
		Title:    cfg.Video.Title,
		Duration: time.Duration(cfg.Video.Duration * float64(time.Second)),
	}

	progressive := append([]progressiveFile(nil), cfg.Request.Files.Progressive...)
	sort.SliceStable(progressive, func(i, j int) bool {
		return progressive[i].Height < progressive[j].Height
	})
	for _, f := range progressive {
		if f.URL == "" {
			continue
		}
		info.Streams = append(info.Streams, StreamDescriptor{
			URL:      f.URL,
			MimeType: f.MIME,
			Label:    f.Quality,
		})
	}
	if len(info.Streams) > 0 {
		return info
	}

	for cdn, entry := range cfg.Request.Files.HLS.CDNs {
		if entry.URL != "" {
			info.Streams = append(info.Streams, StreamDescriptor{
				URL:   entry.URL,
				Label: "hls " + cdn,
			})
			break
		}
	}
	return info
}

// PlayerPageScrape is the fallback candidate when the config endpoint
// refuses: it loads the player page itself and digs the config (or a
// bare media URL) out of the HTML.
type PlayerPageScrape struct {
	baseURL string
	client  *http.Client
}

func NewPlayerPageScrape(client *http.Client, baseURL string) *PlayerPageScrape {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = "https://player.vimeo.com"
	}
	return &PlayerPageScrape{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *PlayerPageScrape) Name() string { return "player-page" }

var (
	embeddedConfigPatterns = []*regexp.Regexp{
		regexp.MustCompile(`window\.playerConfig\s*=\s*(\{[\s\S]+?\});`),
		regexp.MustCompile(`var\s+config\s*=\s*(\{[\s\S]+?\});`),
	}
	directMediaPattern = regexp.MustCompile(`https?://[^"'\s]+\.mp4[^"'\s]*`)
)

func (p *PlayerPageScrape) Streams(ctx context.Context, ref Reference) (*StreamInfo, error) {
	op := p.Name()
	if ref.MediaID == "" {
		return nil, fmt.Errorf("%s: missing media id", op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/video/%s", p.baseURL, ref.MediaID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if ref.Referer != "" {
		req.Header.Set("Referer", ref.Referer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if err := fault.FromStatus(op, resp.StatusCode, ""); err != nil {
		return nil, err
	}

	html := string(body)
	for _, pattern := range embeddedConfigPatterns {
		m := pattern.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		var cfg playerConfig
		if err := json.Unmarshal([]byte(m[1]), &cfg); err != nil {
			continue
		}
		if info := configStreams(&cfg); len(info.Streams) > 0 {
			return info, nil
		}
	}

	if m := directMediaPattern.FindString(html); m != "" {
		return &StreamInfo{Streams: []StreamDescriptor{{URL: m, Label: "direct"}}}, nil
	}

	return &StreamInfo{}, nil
}
