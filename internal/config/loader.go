package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviderNames lists the provider names the rewrite engine knows
// how to construct. "openai" is served by the native SDK; the rest go
// through the any-llm backend.
var ValidLLMProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if name := cfg.Providers.LLM.Name; name != "" && !knownLLMProvider(name) {
		errs = append(errs, fmt.Errorf("providers.llm.name %q is unknown; valid values: %v", name, ValidLLMProviderNames))
	}
	if cfg.Providers.LLM.Name != "" && cfg.Providers.LLM.Model == "" {
		errs = append(errs, errors.New("providers.llm.model is required when providers.llm.name is set"))
	}
	if t := cfg.Providers.LLM.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("providers.llm.temperature %.2f is out of range [0, 2]", t))
	}
	if cfg.Providers.LLM.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("providers.llm.timeout_seconds %d must not be negative", cfg.Providers.LLM.TimeoutSeconds))
	}
	for i, fb := range cfg.Providers.LLMFallbacks {
		if fb.Name == "" || !knownLLMProvider(fb.Name) {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name %q is unknown; valid values: %v", i, fb.Name, ValidLLMProviderNames))
		}
		if fb.Model == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].model is required", i))
		}
	}
	if len(cfg.Providers.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallbacks requires a primary providers.llm"))
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Providers.Embeddings.Name != "openai" {
		errs = append(errs, fmt.Errorf("providers.embeddings.name %q is unknown; only \"openai\" is supported", cfg.Providers.Embeddings.Name))
	}

	if cfg.Storage.PostgresDSN != "" && cfg.Storage.SQLitePath != "" {
		errs = append(errs, errors.New("storage.postgres_dsn and storage.sqlite_path are mutually exclusive"))
	}

	if p := cfg.Confidence.Percentile; p < 0 || p > 1 {
		errs = append(errs, fmt.Errorf("confidence.percentile %.2f is out of range [0, 1]", p))
	}
	if m := cfg.Confidence.MaxThreshold; m < 0 || m > 1 {
		errs = append(errs, fmt.Errorf("confidence.max_threshold %.2f is out of range [0, 1]", m))
	}

	if cfg.Rewrite.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("rewrite.concurrency %d must not be negative", cfg.Rewrite.Concurrency))
	}
	if cfg.Rewrite.ContextSegments < 0 {
		errs = append(errs, fmt.Errorf("rewrite.context_segments %d must not be negative", cfg.Rewrite.ContextSegments))
	}
	if cfg.Rewrite.ContextSegments > 0 && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("rewrite.context_segments requires providers.embeddings to be configured"))
	}

	return errors.Join(errs...)
}

func knownLLMProvider(name string) bool {
	for _, valid := range ValidLLMProviderNames {
		if name == valid {
			return true
		}
	}
	return false
}
