package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM provider for generative operations
	LLMProvider     string
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Worker
	WorkerPollInterval time.Duration
	StaleJobThreshold  time.Duration // 0 disables the reconciliation sweep

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "reweave"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "engine"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     getEnv("REWEAVE_LLM_PROVIDER", ProviderOllama),
		LLMModel:        getEnv("REWEAVE_LLM_MODEL", "llama3.2"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		WorkerPollInterval: getDuration("REWEAVE_POLL_INTERVAL", 2*time.Second),
		StaleJobThreshold:  getDuration("REWEAVE_STALE_THRESHOLD", 0),

		LogFile:  getEnv("REWEAVE_LOG_FILE", "/tmp/reweave.log"),
		LogLevel: parseLogLevel(getEnv("REWEAVE_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// Bare numbers are seconds
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
