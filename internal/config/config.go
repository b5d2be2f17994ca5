// Package config provides the configuration schema, loader, and file
// watcher for the voxprint service.
package config

// LogLevel controls log verbosity for the voxprint server.
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

// Config is the root configuration structure for voxprint. It is typically
// loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Storage    StorageConfig    `yaml:"storage"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Resilience ResilienceConfig `yaml:"resilience"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares the external collaborators: LLM extraction,
// batch transcription, and text embeddings.
type ProvidersConfig struct {
	LLM        ProviderChain `yaml:"llm"`
	STT        ProviderChain `yaml:"stt"`
	Embeddings ProviderEntry `yaml:"embeddings"`
}

// ProviderChain is a primary backend plus optional failover backends,
// tried in order when the primary is unhealthy.
type ProviderChain struct {
	ProviderEntry `yaml:",inline"`

	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider
// types.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o",
	// "nova-2", "text-embedding-3-small").
	Model string `yaml:"model"`
}

// DefaultEmbeddingDimensions is the vector column width used when the
// configuration does not specify one. It matches text-embedding-3-small.
const DefaultEmbeddingDimensions = 1536

// StorageConfig selects the persistence backend. An empty PostgresDSN runs
// the service on the in-memory store.
type StorageConfig struct {
	// PostgresDSN is the connection string for the profile database.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions must match the embedding model's output size.
	// [Validate] fills in [DefaultEmbeddingDimensions] when unset.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// AnalysisConfig tunes sample ingestion and pattern extraction.
type AnalysisConfig struct {
	// SampleMinLength is the minimum accepted writing-sample length in
	// runes. Zero keeps the built-in default.
	SampleMinLength int `yaml:"sample_min_length"`

	// SampleMaxLength is the maximum accepted writing-sample length in
	// runes. Zero keeps the built-in default.
	SampleMaxLength int `yaml:"sample_max_length"`

	// DuplicateThreshold is the similarity above which a new sample is
	// rejected as a resubmission, in (0, 1]. Zero keeps the built-in
	// default.
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`

	// ExtractionTemperature is the LLM sampling temperature for pattern
	// extraction. Zero keeps the built-in default.
	ExtractionTemperature float64 `yaml:"extraction_temperature"`
}

// ResilienceConfig tunes the per-provider circuit breakers.
type ResilienceConfig struct {
	// FailureThreshold is how many consecutive failures open a breaker.
	FailureThreshold int `yaml:"failure_threshold"`

	// CooldownSeconds is how long a breaker stays open before probing.
	CooldownSeconds int `yaml:"cooldown_seconds"`
}
