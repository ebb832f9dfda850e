package stt

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/legadoives/transcritor/internal/fault"
)

// OpenAIConfig holds configuration for the Whisper backend.
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string // optional, for compatible endpoints
	Model    string // default: whisper-1
	Language string // default: "pt"
}

// OpenAI transcribes media through the Whisper API (or a compatible
// endpoint), requesting word-level timestamps for the subtitle
// formatter.
type OpenAI struct {
	cfg        OpenAIConfig
	client     *openai.Client
	httpClient *http.Client
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Language == "" {
		cfg.Language = "pt"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		cfg:        cfg,
		client:     openai.NewClientWithConfig(clientCfg),
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
}

func (o *OpenAI) Name() string { return "openai-whisper" }

func (o *OpenAI) Transcribe(ctx context.Context, req Request) (*Result, error) {
	media, err := downloadMedia(ctx, o.httpClient, req)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.cfg.Model,
		Reader:   bytes.NewReader(media),
		FilePath: "media.mp4",
		Language: o.cfg.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	words := make([]Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, Word{Word: w.Word, Start: w.Start, End: w.End})
	}

	return &Result{
		Transcript: resp.Text,
		Words:      words,
		Duration:   resp.Duration,
	}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if classified := fault.FromStatus("transcribe whisper", apiErr.HTTPStatusCode, apiErr.Message); classified != nil {
			return classified
		}
	}
	return fault.Wrap(fault.KindUpstreamTransient, "transcribe whisper", err)
}
