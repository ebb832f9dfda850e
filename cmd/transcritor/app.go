package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"

	"github.com/legadoives/transcritor/internal/blob"
	"github.com/legadoives/transcritor/internal/config"
	"github.com/legadoives/transcritor/internal/media"
	"github.com/legadoives/transcritor/internal/pipeline"
	"github.com/legadoives/transcritor/internal/refine"
	"github.com/legadoives/transcritor/internal/retry"
	"github.com/legadoives/transcritor/internal/stt"
)

// app holds the wired dependencies shared by the CLI commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *http.Client
	rdb    *redis.Client
}

// newApp loads .env and the environment config and sets up logging.
// jsonLogs switches from the colorized terminal handler to structured
// JSON, used by the server.
func newApp(verbose, jsonLogs bool) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if jsonLogs {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	a := &app{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: 60 * time.Second},
	}
	if cfg.Redis.Addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return a, nil
}

func (a *app) mediaService() *media.Service {
	rc := a.cfg.Resolver
	mirrors := media.NewResolver(rc.ConfigTimeout,
		media.NewMirrorCandidates(a.client, rc.MirrorInstances)...)
	player := media.NewResolver(rc.ConfigTimeout,
		media.NewPlayerConfigAPI(a.client, rc.PlayerBaseURL),
		media.NewPlayerPageScrape(a.client, rc.PlayerBaseURL))
	pages := media.NewPageExtractor(a.client, rc.PageTimeout, media.DefaultLocatorRules(), rc.TitleSuffix)
	cache := media.NewCache(a.rdb, rc.CacheTTL)
	return media.NewService(mirrors, player, pages, cache)
}

func (a *app) transcriber() (stt.Transcriber, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	switch a.cfg.STT.Backend {
	case "deepgram":
		return stt.NewDeepgram(stt.DeepgramConfig{
			APIKey:   a.cfg.STT.DeepgramKey,
			Model:    a.cfg.STT.DeepgramModel,
			Language: a.cfg.STT.Language,
		}), nil
	case "openai":
		return stt.NewOpenAI(stt.OpenAIConfig{
			APIKey:   a.cfg.STT.OpenAIKey,
			BaseURL:  a.cfg.STT.OpenAIBaseURL,
			Model:    a.cfg.STT.OpenAIModel,
			Language: a.cfg.STT.Language,
		}), nil
	default:
		return nil, fmt.Errorf("unknown STT backend %q", a.cfg.STT.Backend)
	}
}

// refiner returns nil when no Anthropic key is configured; the
// pipeline then keeps raw transcripts.
func (a *app) refiner() pipeline.Refiner {
	if a.cfg.Refine.AnthropicKey == "" {
		a.logger.Warn("ANTHROPIC_API_KEY not set, transcripts will not be refined")
		return nil
	}
	return refine.New(refine.Config{
		APIKey: a.cfg.Refine.AnthropicKey,
		Model:  a.cfg.Refine.Model,
	})
}

// store returns nil when no durable storage is configured. Remote
// batches work without one; local files need it.
func (a *app) store() blob.Store {
	if a.cfg.Storage.BaseURL == "" {
		return nil
	}
	return blob.NewHTTPStore(a.cfg.Storage.BaseURL, a.cfg.Storage.ServiceKey, a.cfg.Storage.Bucket)
}

func (a *app) pipelineConfig() pipeline.Config {
	b := a.cfg.Batch
	return pipeline.Config{
		FanOut:         b.FanOut,
		LargeThreshold: b.LargeThresholdMiB << 20,
		RetryPolicy: retry.Policy{
			MaxAttempts: b.MaxAttempts,
			Delay:       b.RetryDelay,
		},
		UploadTimeout:     b.UploadTimeout,
		TranscribeTimeout: b.TranscribeTimeout,
		RefineTimeout:     b.RefineTimeout,
	}
}

func (a *app) newOrchestrator() (*pipeline.Orchestrator, error) {
	transcriber, err := a.transcriber()
	if err != nil {
		return nil, err
	}
	return pipeline.NewOrchestrator(
		a.pipelineConfig(),
		a.mediaService(),
		a.store(),
		transcriber,
		a.refiner(),
		a.logger,
	), nil
}
