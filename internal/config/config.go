package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Resolver ResolverConfig
	Redis    RedisConfig
	Storage  StorageConfig
	STT      STTConfig
	Refine   RefineConfig
	Batch    BatchConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type ResolverConfig struct {
	MirrorInstances []string
	PlayerBaseURL   string
	TitleSuffix     string
	PageTimeout     time.Duration
	ConfigTimeout   time.Duration
	CacheTTL        time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
}

type STTConfig struct {
	Backend       string // "deepgram" or "openai"
	DeepgramKey   string
	DeepgramModel string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	Language      string
}

type RefineConfig struct {
	AnthropicKey string
	Model        string
}

type BatchConfig struct {
	FanOut            int
	LargeThresholdMiB int64
	MaxAttempts       int
	RetryDelay        time.Duration
	UploadTimeout     time.Duration
	TranscribeTimeout time.Duration
	RefineTimeout     time.Duration
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// defaultMirrorInstances is the fallback chain of public mirror
// gateways, ordered by observed reliability.
var defaultMirrorInstances = []string{
	"https://inv.nadeko.net",
	"https://invidious.nerdvpn.de",
	"https://yewtu.be",
	"https://invidious.f5.si",
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	fanOut, err := getEnvInt("BATCH_FAN_OUT", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_FAN_OUT: %w", err)
	}

	largeMiB, err := getEnvInt("BATCH_LARGE_THRESHOLD_MIB", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_LARGE_THRESHOLD_MIB: %w", err)
	}

	maxAttempts, err := getEnvInt("BATCH_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_MAX_ATTEMPTS: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Resolver: ResolverConfig{
			MirrorInstances: getEnvList("MIRROR_INSTANCES", defaultMirrorInstances),
			PlayerBaseURL:   getEnv("PLAYER_BASE_URL", "https://player.vimeo.com"),
			TitleSuffix:     getEnv("PAGE_TITLE_SUFFIX", ""),
			PageTimeout:     getEnvDuration("RESOLVER_PAGE_TIMEOUT", 15*time.Second),
			ConfigTimeout:   getEnvDuration("RESOLVER_CONFIG_TIMEOUT", 30*time.Second),
			CacheTTL:        getEnvDuration("RESOLVER_CACHE_TTL", 10*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Storage: StorageConfig{
			BaseURL:    getEnv("STORAGE_URL", ""),
			ServiceKey: getEnv("STORAGE_SERVICE_KEY", ""),
			Bucket:     getEnv("STORAGE_BUCKET", "media"),
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "deepgram"),
			DeepgramKey:   getEnv("DEEPGRAM_API_KEY", ""),
			DeepgramModel: getEnv("DEEPGRAM_MODEL", "nova-2"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", ""),
			Language:      getEnv("STT_LANGUAGE", "pt-BR"),
		},
		Refine: RefineConfig{
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:        getEnv("REFINE_MODEL", "claude-sonnet-4-20250514"),
		},
		Batch: BatchConfig{
			FanOut:            fanOut,
			LargeThresholdMiB: int64(largeMiB),
			MaxAttempts:       maxAttempts,
			RetryDelay:        getEnvDuration("BATCH_RETRY_DELAY", 5*time.Second),
			UploadTimeout:     getEnvDuration("UPLOAD_TIMEOUT", 10*time.Minute),
			TranscribeTimeout: getEnvDuration("TRANSCRIBE_TIMEOUT", 5*time.Minute),
			RefineTimeout:     getEnvDuration("REFINE_TIMEOUT", 2*time.Minute),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks the settings the pipeline cannot run without.
// Storage and database stay optional: remote-only batches never
// upload, and archiving is opt-in.
func (c *Config) Validate() error {
	var missing []string
	switch c.STT.Backend {
	case "deepgram":
		if c.STT.DeepgramKey == "" {
			missing = append(missing, "DEEPGRAM_API_KEY")
		}
	case "openai":
		if c.STT.OpenAIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown STT_BACKEND %q", c.STT.Backend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
