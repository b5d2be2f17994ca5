package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind. Used by
// [Validate] to reject unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "mistral", "llamacpp"},
	"stt":        {"deepgram"},
	"embeddings": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	errs = appendProviderErr(errs, "providers.llm", "llm", cfg.Providers.LLM.Name)
	for i, fb := range cfg.Providers.LLM.Fallbacks {
		errs = appendProviderErr(errs, fmt.Sprintf("providers.llm.fallbacks[%d]", i), "llm", fb.Name)
	}
	errs = appendProviderErr(errs, "providers.stt", "stt", cfg.Providers.STT.Name)
	for i, fb := range cfg.Providers.STT.Fallbacks {
		errs = appendProviderErr(errs, fmt.Sprintf("providers.stt.fallbacks[%d]", i), "stt", fb.Name)
	}
	errs = appendProviderErr(errs, "providers.embeddings", "embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; pattern extraction will fall back to neutral defaults")
	}
	if cfg.Storage.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("storage.embedding_dimensions must not be negative, got %d", cfg.Storage.EmbeddingDimensions))
	}
	if cfg.Storage.EmbeddingDimensions == 0 {
		if cfg.Providers.Embeddings.Name != "" {
			slog.Warn("providers.embeddings is configured but storage.embedding_dimensions is not set; defaulting", "dimensions", DefaultEmbeddingDimensions)
		}
		cfg.Storage.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; profiles will be held in memory only")
	}

	a := cfg.Analysis
	if a.SampleMinLength < 0 {
		errs = append(errs, fmt.Errorf("analysis.sample_min_length must not be negative, got %d", a.SampleMinLength))
	}
	if a.SampleMaxLength < 0 {
		errs = append(errs, fmt.Errorf("analysis.sample_max_length must not be negative, got %d", a.SampleMaxLength))
	}
	if a.SampleMinLength > 0 && a.SampleMaxLength > 0 && a.SampleMinLength > a.SampleMaxLength {
		errs = append(errs, fmt.Errorf("analysis.sample_min_length %d exceeds sample_max_length %d", a.SampleMinLength, a.SampleMaxLength))
	}
	if a.DuplicateThreshold < 0 || a.DuplicateThreshold > 1 {
		errs = append(errs, fmt.Errorf("analysis.duplicate_threshold must be in [0, 1], got %g", a.DuplicateThreshold))
	}
	if a.ExtractionTemperature < 0 || a.ExtractionTemperature > 2 {
		errs = append(errs, fmt.Errorf("analysis.extraction_temperature must be in [0, 2], got %g", a.ExtractionTemperature))
	}

	if cfg.Resilience.FailureThreshold < 0 {
		errs = append(errs, fmt.Errorf("resilience.failure_threshold must not be negative, got %d", cfg.Resilience.FailureThreshold))
	}
	if cfg.Resilience.CooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("resilience.cooldown_seconds must not be negative, got %d", cfg.Resilience.CooldownSeconds))
	}

	return errors.Join(errs...)
}

func appendProviderErr(errs []error, field, kind, name string) []error {
	if name == "" || slices.Contains(ValidProviderNames[kind], name) {
		return errs
	}
	return append(errs, fmt.Errorf("%s.name %q is not a known %s provider (valid: %v)", field, name, kind, ValidProviderNames[kind]))
}
