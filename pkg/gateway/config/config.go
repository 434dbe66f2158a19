package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Addr string

	// Model backend.
	LLMProvider  string // "openai" or "gemini"
	Model        string
	Streaming    bool
	OpenAIAPIKey string
	GeminiAPIKey string
	Temperature  float64
	MaxTokens    int

	// Turn loop.
	MaxModelCallsPerTurn int
	TurnTimeout          time.Duration
	ToolTimeout          time.Duration

	// Session lifecycle.
	GracePeriod    time.Duration
	SnapshotExpiry time.Duration
	IdleTimeout    time.Duration

	// WebSocket.
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	MaxMessageBytes int64

	// Caller-facing behavior.
	WelcomeGreeting  string
	SystemPromptFile string
	LanguagesFile    string
	DTMFSwitchDigit  string

	// External stores (all optional; in-process fallbacks apply).
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	StripeAPIKey  string

	// Knowledge base.
	EmbeddingModel string
	KnowledgeFile  string

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                 envOr("VOICERELAY_ADDR", ":8080"),
		LLMProvider:          strings.ToLower(envOr("VOICERELAY_LLM_PROVIDER", "openai")),
		Model:                envOr("VOICERELAY_LLM_MODEL", ""),
		Streaming:            envBoolOr("VOICERELAY_LLM_STREAMING", true),
		OpenAIAPIKey:         strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		GeminiAPIKey:         strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Temperature:          envFloat64Or("VOICERELAY_LLM_TEMPERATURE", 0.7),
		MaxTokens:            envIntOr("VOICERELAY_LLM_MAX_TOKENS", 0),
		MaxModelCallsPerTurn: envIntOr("VOICERELAY_MAX_MODEL_CALLS_PER_TURN", 8),
		TurnTimeout:          envDurationOr("VOICERELAY_TURN_TIMEOUT", 60*time.Second),
		ToolTimeout:          envDurationOr("VOICERELAY_TOOL_TIMEOUT", 10*time.Second),
		GracePeriod:          envDurationOr("VOICERELAY_GRACE_PERIOD", 5*time.Minute),
		SnapshotExpiry:       envDurationOr("VOICERELAY_SNAPSHOT_EXPIRY", 30*time.Minute),
		IdleTimeout:          envDurationOr("VOICERELAY_IDLE_TIMEOUT", 10*time.Second),
		PingInterval:         envDurationOr("VOICERELAY_WS_PING_INTERVAL", 20*time.Second),
		WriteTimeout:         envDurationOr("VOICERELAY_WS_WRITE_TIMEOUT", 5*time.Second),
		ReadTimeout:          envDurationOr("VOICERELAY_WS_READ_TIMEOUT", 0),
		MaxMessageBytes:      envInt64Or("VOICERELAY_WS_MAX_MESSAGE_BYTES", 64*1024),
		WelcomeGreeting: envOr("VOICERELAY_WELCOME_GREETING",
			"Hello! Thank you for calling ABC Health System. To continue in Spanish, press one. How can I help you today?"),
		SystemPromptFile:     envOr("VOICERELAY_SYSTEM_PROMPT_FILE", ""),
		LanguagesFile:        envOr("VOICERELAY_LANGUAGES_FILE", ""),
		DTMFSwitchDigit:      envOr("VOICERELAY_DTMF_SWITCH_DIGIT", "1"),
		DatabaseURL:          envOr("VOICERELAY_DATABASE_URL", ""),
		RedisAddr:            envOr("VOICERELAY_REDIS_ADDR", ""),
		RedisPassword:        os.Getenv("VOICERELAY_REDIS_PASSWORD"),
		StripeAPIKey:         strings.TrimSpace(os.Getenv("STRIPE_API_KEY")),
		EmbeddingModel:       envOr("VOICERELAY_EMBEDDING_MODEL", "text-embedding-3-small"),
		KnowledgeFile:        envOr("VOICERELAY_KNOWLEDGE_FILE", ""),
		ReadHeaderTimeout:    envDurationOr("VOICERELAY_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod:  envDurationOr("VOICERELAY_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	switch cfg.LLMProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY must be set when VOICERELAY_LLM_PROVIDER=openai")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("GEMINI_API_KEY must be set when VOICERELAY_LLM_PROVIDER=gemini")
		}
	default:
		return Config{}, fmt.Errorf("VOICERELAY_LLM_PROVIDER must be one of openai|gemini")
	}

	if cfg.MaxModelCallsPerTurn <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_MAX_MODEL_CALLS_PER_TURN must be > 0")
	}
	if cfg.TurnTimeout < 0 {
		return Config{}, fmt.Errorf("VOICERELAY_TURN_TIMEOUT must be >= 0")
	}
	if cfg.ToolTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_TOOL_TIMEOUT must be > 0")
	}
	if cfg.GracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_GRACE_PERIOD must be > 0")
	}
	if cfg.SnapshotExpiry <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_SNAPSHOT_EXPIRY must be > 0")
	}
	if cfg.IdleTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_IDLE_TIMEOUT must be > 0")
	}
	if cfg.PingInterval <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_WS_PING_INTERVAL must be > 0")
	}
	if cfg.WriteTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout < 0 {
		return Config{}, fmt.Errorf("VOICERELAY_WS_READ_TIMEOUT must be >= 0")
	}
	if cfg.MaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_WS_MAX_MESSAGE_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DTMFSwitchDigit) == "" {
		return Config{}, fmt.Errorf("VOICERELAY_DTMF_SWITCH_DIGIT must not be empty")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOICERELAY_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
