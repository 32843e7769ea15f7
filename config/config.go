package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultSessionSecret is the development cookie secret used when none is configured.
const DefaultSessionSecret = "dev-secret-key"

// Config holds every setting the chat service reads at startup.
type Config struct {
	Port     string `validate:"required,numeric"`
	AppEnv   string `validate:"oneof=development production test"`
	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	// Language model
	LLMProvider string `validate:"oneof=huggingface openai ollama gemini anthropic"`
	HFProvider  string
	ModelID     string
	APIToken    string
	LLMBaseURL  string `validate:"omitempty,url"`
	MaxTokens   int    `validate:"gt=0"`

	// Retrieval
	VectorStore      string `validate:"oneof=local chroma"`
	IndexPath        string
	ChromaURL        string `validate:"omitempty,url"`
	ChromaCollection string
	Embedder         string `validate:"oneof=ollama openai gemini"`
	EmbeddingModel   string `validate:"required"`
	EmbeddingToken   string
	EmbeddingBaseURL string `validate:"omitempty,url"`
	OllamaURL        string `validate:"required,url"`
	RetrievalK       int    `validate:"gte=1"`

	// Read for the offline ingestion job; the chat service never chunks documents.
	DataPath     string
	ChunkSize    int `validate:"gt=0"`
	ChunkOverlap int `validate:"gte=0,ltfield=ChunkSize"`

	// Web layer
	CORSOrigins     []string
	SessionSecret   string        `validate:"required"`
	SessionBackend  string        `validate:"oneof=memory redis"`
	RedisURL        string        `validate:"required_if=SessionBackend redis"`
	SessionTTL      time.Duration `validate:"gt=0"`
	StreamChunkSize int           `validate:"gte=1"`
	StreamDelay     time.Duration `validate:"gte=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	MetricsNamespace string `validate:"required"`
}

// UsesDefaultSecret reports whether the cookie secret was left at its development default.
func (c Config) UsesDefaultSecret() bool {
	return c.SessionSecret == DefaultSessionSecret
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads .env (when present) and the process environment into a validated Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:     envOrDefault("PORT", "5001"),
		AppEnv:   envOrDefault("APP_ENV", "development"),
		LogLevel: strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		LogFile:  envOrDefault("LOG_FILE", "logs/ragchat.log"),

		LLMProvider: strings.ToLower(envOrDefault("LLM_PROVIDER", "huggingface")),
		HFProvider:  envOrDefault("HF_PROVIDER", "together"),
		ModelID:     firstEnv("Qwen/Qwen2.5-7B-Instruct", "LLM_MODEL_ID", "HF_MODEL_ID"),
		APIToken:    firstEnv("", "LLM_API_TOKEN", "HF_TOKEN"),
		LLMBaseURL:  stringsTrimSpace("LLM_BASE_URL"),
		MaxTokens:   512,

		VectorStore:      strings.ToLower(envOrDefault("VECTOR_STORE", "local")),
		IndexPath:        firstEnv("vectorstore/db_badger", "VECTOR_INDEX_PATH", "DB_FAISS_PATH"),
		ChromaURL:        envOrDefault("CHROMA_URL", "http://localhost:8000"),
		ChromaCollection: envOrDefault("CHROMA_COLLECTION", "medical-documents"),
		Embedder:         strings.ToLower(envOrDefault("EMBEDDER", "ollama")),
		EmbeddingModel:   envOrDefault("EMBEDDING_MODEL", "nomic-embed-text:v1.5"),
		EmbeddingBaseURL: stringsTrimSpace("EMBEDDING_BASE_URL"),
		OllamaURL:        envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		RetrievalK:       1,

		DataPath:     envOrDefault("DATA_PATH", "data/"),
		ChunkSize:    500,
		ChunkOverlap: 50,

		CORSOrigins:     splitList(envOrDefault("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		SessionSecret:   firstEnv(DefaultSessionSecret, "SESSION_SECRET", "FLASK_SECRET_KEY"),
		SessionBackend:  strings.ToLower(envOrDefault("SESSION_BACKEND", "memory")),
		RedisURL:        envOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:      time.Hour,
		StreamChunkSize: 28,
		StreamDelay:     20 * time.Millisecond,
		ShutdownTimeout: 15 * time.Second,

		MetricsNamespace: envOrDefault("METRICS_NAMESPACE", "ragchat"),
	}

	// The LLM token is only reused for embeddings when both talk to the same provider.
	cfg.EmbeddingToken = stringsTrimSpace("EMBEDDING_API_TOKEN")
	if cfg.EmbeddingToken == "" && cfg.Embedder == cfg.LLMProvider {
		cfg.EmbeddingToken = cfg.APIToken
	}

	var err error
	if cfg.MaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.MaxTokens); err != nil {
		return Config{}, err
	}
	if cfg.RetrievalK, err = intFromEnv("RETRIEVAL_K", cfg.RetrievalK); err != nil {
		return Config{}, err
	}
	if cfg.ChunkSize, err = intFromEnv("CHUNK_SIZE", cfg.ChunkSize); err != nil {
		return Config{}, err
	}
	if cfg.ChunkOverlap, err = intFromEnv("CHUNK_OVERLAP", cfg.ChunkOverlap); err != nil {
		return Config{}, err
	}
	if cfg.StreamChunkSize, err = intFromEnv("STREAM_CHUNK_SIZE", cfg.StreamChunkSize); err != nil {
		return Config{}, err
	}
	if cfg.StreamDelay, err = durationFromEnv("STREAM_DELAY", cfg.StreamDelay); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationFromEnv("SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationFromEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

// firstEnv returns the first non-empty variable among keys, in order.
func firstEnv(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := stringsTrimSpace(key); v != "" {
			return v
		}
	}
	return fallback
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
