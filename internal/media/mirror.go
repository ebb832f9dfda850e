package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/legadoives/transcritor/internal/fault"
)

// youtubeIDPatterns accept watch, short-link and shorts URLs.
var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`),
}

// IsYouTubeURL reports whether the reference points at a YouTube video.
func IsYouTubeURL(rawURL string) bool {
	return ExtractYouTubeID(rawURL) != ""
}

// ExtractYouTubeID pulls the 11-character video id out of a URL, or
// returns "" when none is present.
func ExtractYouTubeID(rawURL string) string {
	for _, p := range youtubeIDPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// MirrorAPI resolves a video through one public mirror instance of the
// unofficial gateway API. One MirrorAPI per instance forms the fallback
// chain, so a dead mirror costs a single labeled diagnostic.
type MirrorAPI struct {
	instance string
	client   *http.Client
}

// NewMirrorCandidates builds one candidate per configured instance,
// preserving order.
func NewMirrorCandidates(client *http.Client, instances []string) []Candidate {
	if client == nil {
		client = http.DefaultClient
	}
	out := make([]Candidate, 0, len(instances))
	for _, inst := range instances {
		out = append(out, &MirrorAPI{instance: strings.TrimRight(inst, "/"), client: client})
	}
	return out
}

func (m *MirrorAPI) Name() string { return "mirror " + m.instance }

// Responses are arbitrary JSON from unofficial services; only the
// fields the pipeline depends on are modeled, and they are validated
// here so nothing untyped leaks past the resolver.
type mirrorVideo struct {
	Title           string         `json:"title"`
	LengthSeconds   int            `json:"lengthSeconds"`
	AdaptiveFormats []mirrorFormat `json:"adaptiveFormats"`
}

type mirrorFormat struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	Container    string `json:"container"`
	Bitrate      string `json:"bitrate"`
	Clen         string `json:"clen"`
	AudioBitrate int    `json:"audioBitrate"`
}

func (m *MirrorAPI) Streams(ctx context.Context, ref Reference) (*StreamInfo, error) {
	op := m.Name()
	if ref.MediaID == "" {
		return nil, fmt.Errorf("%s: missing media id", op)
	}

	url := fmt.Sprintf("%s/api/v1/videos/%s", m.instance, ref.MediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if err := fault.FromStatus(op, resp.StatusCode, string(body)); err != nil {
		return nil, err
	}

	var video mirrorVideo
	if err := json.Unmarshal(body, &video); err != nil {
		return nil, fmt.Errorf("%s: malformed body: %w", op, err)
	}

	streams := make([]StreamDescriptor, 0, len(video.AdaptiveFormats))
	for _, f := range video.AdaptiveFormats {
		if f.URL == "" || !strings.HasPrefix(f.Type, "audio/") {
			continue
		}
		streams = append(streams, StreamDescriptor{
			URL:      f.URL,
			MimeType: f.Type,
			Label:    f.Container,
			Bitrate:  f.bitrateBPS(),
			Size:     f.sizeBytes(),
		})
	}

	return &StreamInfo{
		Title:    video.Title,
		Duration: time.Duration(video.LengthSeconds) * time.Second,
		Streams:  streams,
	}, nil
}

// bitrateBPS prefers the exact bitrate field the gateway declares in
// bits per second; audioBitrate is a kbps fallback.
func (f mirrorFormat) bitrateBPS() int {
	if n, err := strconv.Atoi(f.Bitrate); err == nil && n > 0 {
		return n
	}
	return f.AudioBitrate * 1000
}

func (f mirrorFormat) sizeBytes() int64 {
	n, err := strconv.ParseInt(f.Clen, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
