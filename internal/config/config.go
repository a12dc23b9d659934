// Package config provides environment configuration for the relay, the chat client and the backend.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds configuration for all embedchat binaries.
type Config struct {
	Log     LogConfig
	Relay   RelayConfig
	Client  ClientConfig
	Backend BackendConfig

	v *viper.Viper
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// RelayConfig holds settings for the forwarding relay.
// The destination URL is deliberately absent: it is resolved on every call.
type RelayConfig struct {
	Port            int
	UpstreamTimeout time.Duration
}

// ClientConfig holds settings for the chat client.
type ClientConfig struct {
	RelayURL  string
	WSURL     string
	Transport string
	LogFile   string
}

// BackendConfig holds settings for the chat backend.
type BackendConfig struct {
	Port int

	Provider       string
	APIKey         string
	BaseURL        string
	APIVersion     string
	ChatModel      string
	EmbeddingModel string
	SystemPrompt   string

	HistoryStore       string
	HistoryMaxMessages int
	HistoryTTL         time.Duration
	SQLiteDSN          string
	RedisURL           string

	MaxMessageChars int
}

// DefaultSystemPrompt seeds every backend conversation unless SYSTEM_PROMPT is set.
const DefaultSystemPrompt = "You are a helpful assistant. Answer directly and concisely, " +
	"use markdown lists and bold text to structure longer answers."

// Load loads configuration from environment variables and an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("RELAY_PORT", 3000)
	v.SetDefault("RELAY_UPSTREAM_TIMEOUT_MS", 0)

	v.SetDefault("CHAT_RELAY_URL", "http://localhost:3000/api/chat")
	v.SetDefault("CHAT_WS_URL", "ws://localhost:3000/ws")
	v.SetDefault("CHAT_TRANSPORT", "http")

	v.SetDefault("BACKEND_PORT", 8000)
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("AZURE_OPENAI_API_VERSION", "2024-08-01-preview")
	v.SetDefault("HISTORY_STORE", "memory")
	v.SetDefault("HISTORY_MAX_MESSAGES", 10)
	v.SetDefault("HISTORY_TTL_SECONDS", 3600)
	v.SetDefault("SQLITE_DSN", "file:embedchat.db?cache=shared&mode=rwc")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("MAX_MESSAGE_CHARS", 4000)

	return &Config{
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Relay: RelayConfig{
			Port:            v.GetInt("RELAY_PORT"),
			UpstreamTimeout: time.Duration(v.GetInt("RELAY_UPSTREAM_TIMEOUT_MS")) * time.Millisecond,
		},
		Client: ClientConfig{
			RelayURL:  v.GetString("CHAT_RELAY_URL"),
			WSURL:     v.GetString("CHAT_WS_URL"),
			Transport: v.GetString("CHAT_TRANSPORT"),
			LogFile:   v.GetString("CHAT_LOG_FILE"),
		},
		Backend: BackendConfig{
			Port:               v.GetInt("BACKEND_PORT"),
			Provider:           v.GetString("LLM_PROVIDER"),
			APIKey:             first(v, "LLM_API_KEY", "AZURE_OPENAI_API_KEY"),
			BaseURL:            first(v, "LLM_BASE_URL", "AZURE_OPENAI_ENDPOINT"),
			APIVersion:         v.GetString("AZURE_OPENAI_API_VERSION"),
			ChatModel:          firstOr(v, "gpt-4o-mini", "CHAT_MODEL", "AZURE_OPENAI_DEPLOYMENT_NAME"),
			EmbeddingModel:     firstOr(v, "text-embedding-3-large", "EMBEDDING_MODEL", "AZURE_OPENAI_EMBEDDING_DEPLOYMENT"),
			SystemPrompt:       firstOr(v, DefaultSystemPrompt, "SYSTEM_PROMPT"),
			HistoryStore:       v.GetString("HISTORY_STORE"),
			HistoryMaxMessages: v.GetInt("HISTORY_MAX_MESSAGES"),
			HistoryTTL:         time.Duration(v.GetInt("HISTORY_TTL_SECONDS")) * time.Second,
			SQLiteDSN:          v.GetString("SQLITE_DSN"),
			RedisURL:           v.GetString("REDIS_URL"),
			MaxMessageChars:    v.GetInt("MAX_MESSAGE_CHARS"),
		},
		v: v,
	}
}

// BackendURL returns the relay destination: BACKEND_URL, then NEXT_PUBLIC_API_URL.
// It reads the environment on every call and returns "" when neither is set.
func (c *Config) BackendURL() string {
	return first(c.v, "BACKEND_URL", "NEXT_PUBLIC_API_URL")
}

func first(v *viper.Viper, keys ...string) string {
	return firstOr(v, "", keys...)
}

func firstOr(v *viper.Viper, defaultVal string, keys ...string) string {
	for _, key := range keys {
		if val := v.GetString(key); val != "" {
			return val
		}
	}
	return defaultVal
}
