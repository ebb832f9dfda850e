package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/legadoives/transcritor/internal/fault"
)

// DeepgramConfig holds configuration for the Deepgram backend.
type DeepgramConfig struct {
	APIKey   string
	BaseURL  string // default: "https://api.deepgram.com"
	Model    string // default: "nova-2"
	Language string // default: "pt-BR"
}

// Deepgram transcribes prerecorded media through Deepgram's listen API.
// The media is downloaded first: locators from scraped players are
// often request-signed and unreachable from the transcription service's
// own fetcher.
type Deepgram struct {
	cfg        DeepgramConfig
	httpClient *http.Client
}

// NewDeepgram creates a Deepgram backend with sensible defaults applied.
func NewDeepgram(cfg DeepgramConfig) *Deepgram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepgram.com"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Language == "" {
		cfg.Language = "pt-BR"
	}
	return &Deepgram{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

func (d *Deepgram) Name() string { return "deepgram" }

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Words      []Word `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
}

func (d *Deepgram) Transcribe(ctx context.Context, req Request) (*Result, error) {
	media, err := downloadMedia(ctx, d.httpClient, req)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("model", d.cfg.Model)
	q.Set("language", d.cfg.Language)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	q.Set("paragraphs", "true")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.cfg.BaseURL+"/v1/listen?"+q.Encode(), bytes.NewReader(media))
	if err != nil {
		return nil, fmt.Errorf("create transcription request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+d.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fault.Wrap(fault.KindUpstreamTransient, "transcribe deepgram", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcription response: %w", err)
	}
	if err := fault.FromStatus("transcribe deepgram", resp.StatusCode, string(body)); err != nil {
		return nil, err
	}

	var apiResp deepgramResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse transcription response: %w", err)
	}
	if len(apiResp.Results.Channels) == 0 || len(apiResp.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("transcribe deepgram: empty result")
	}

	alt := apiResp.Results.Channels[0].Alternatives[0]
	return &Result{
		Transcript: alt.Transcript,
		Words:      alt.Words,
		Duration:   apiResp.Metadata.Duration,
	}, nil
}
