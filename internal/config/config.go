// Package config provides the configuration schema and loader for the
// FlowScribe transcript service.
package config

import "time"

// LogLevel controls log verbosity for the FlowScribe server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for FlowScribe.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Storage    StorageConfig    `yaml:"storage"`
	Confidence ConfidenceConfig `yaml:"confidence"`
	Rewrite    RewriteConfig    `yaml:"rewrite"`
}

// ServerConfig holds network and logging settings for the FlowScribe server.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which AI provider implementation to use per
// concern. LLM drives the rewrite engine; Embeddings feeds the semantic
// segment index. Either may be left unset, disabling the dependent feature.
type ProvidersConfig struct {
	LLM        ProviderEntry `yaml:"llm"`
	Embeddings ProviderEntry `yaml:"embeddings"`

	// LLMFallbacks are tried in order when the primary LLM fails or its
	// circuit breaker is open.
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds. The Name field selects the implementation: "openai" uses the
// native OpenAI SDK, every other name is routed through the any-llm
// backend of that name.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "anthropic",
	// "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// Temperature is the sampling temperature passed on every request.
	Temperature float64 `yaml:"temperature"`

	// TimeoutSeconds is the per-request timeout in seconds. Zero means the
	// provider default.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Dimensions truncates embedding vectors to the given width. Only
	// meaningful for embedding providers that support it; zero keeps the
	// model's native width.
	Dimensions int `yaml:"dimensions"`
}

// Timeout returns TimeoutSeconds as a [time.Duration].
func (e ProviderEntry) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// StorageConfig selects where transcripts and the correction dictionary
// are persisted. Configure exactly one backend: PostgresDSN for the
// multi-user server deployment, SQLitePath for local single-user use.
type StorageConfig struct {
	// PostgresDSN is the connection string for the PostgreSQL backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// SQLitePath is the path of the local SQLite database file.
	SQLitePath string `yaml:"sqlite_path"`
}

// ConfidenceConfig tunes the automatic low-confidence threshold.
type ConfidenceConfig struct {
	// Percentile is the fraction of word scores that should fall below the
	// auto threshold, in [0, 1]. Zero means the built-in default (0.1).
	Percentile float64 `yaml:"percentile"`

	// MaxThreshold caps the computed threshold from above.
	// Zero means the built-in default (0.4).
	MaxThreshold float64 `yaml:"max_threshold"`
}

// RewriteConfig tunes the scoped AI rewrite engine.
type RewriteConfig struct {
	// Concurrency is the maximum number of segments rewritten in parallel.
	// Zero means the built-in default (4).
	Concurrency int `yaml:"concurrency"`

	// ContextSegments is how many semantically similar segments are pulled
	// into each rewrite prompt as context. Zero disables context retrieval.
	ContextSegments int `yaml:"context_segments"`
}
