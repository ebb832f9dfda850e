package stt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/legadoives/transcritor/internal/fault"
)

const mediaUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// downloadMedia fetches the media bytes behind a locator. Transcription
// services choke on truncated input, so a transfer that falls short of
// the declared length fails as transient rather than producing a
// silently partial transcript.
func downloadMedia(ctx context.Context, client *http.Client, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.MediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create media request: %w", err)
	}
	httpReq.Header.Set("User-Agent", mediaUserAgent)
	httpReq.Header.Set("Accept", "audio/*,video/*,*/*")
	httpReq.Header.Set("Accept-Encoding", "identity")
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if err := fault.FromStatus("download media", resp.StatusCode, ""); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstreamTransient, "download media", err)
	}

	if expected := resp.ContentLength; expected > 0 && int64(len(data)) < expected*95/100 {
		return nil, fault.New(fault.KindUpstreamTransient, "download media",
			"truncated transfer: %d of %d bytes", len(data), expected)
	}

	slog.Debug("media downloaded", "bytes", len(data), "url", req.MediaURL)
	return data, nil
}
