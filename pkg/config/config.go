// Package config provides unified configuration for the ollabridge gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults (providers and a starter model list)
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (provider keys, port, OLLABRIDGE_ prefix)
//  4. Models file (models_file), replacing the model list
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"time"

	"github.com/rhuss/ollabridge/pkg/registry"
)

// Config holds all configuration for the ollabridge gateway.
type Config struct {
	Server        ServerConfig           `yaml:"server"`
	Engine        EngineConfig           `yaml:"engine"`
	Providers     ProvidersConfig        `yaml:"providers"`
	Models        []registry.ModelConfig `yaml:"models"`
	ModelsFile    string                 `yaml:"models_file"`
	Auth          AuthConfig             `yaml:"auth"`
	Logging       LoggingConfig          `yaml:"logging"`
	Observability ObservabilityConfig    `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 11434
	Host            string        `yaml:"host"`             // default: all interfaces
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	AllowedOrigins  []string      `yaml:"allowed_origins"`  // default: any
}

// EngineConfig holds request engine settings.
type EngineConfig struct {
	// EmbedConcurrency bounds the upstream calls issued in parallel for one
	// embedding batch. 1 issues them strictly in order.
	EmbedConcurrency int `yaml:"embed_concurrency"`
}

// ProvidersConfig holds one block per supported upstream. A provider is
// available only when its API key resolves to a non-empty value.
type ProvidersConfig struct {
	Gemini    ProviderConfig `yaml:"gemini"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Qwen      ProviderConfig `yaml:"qwen"`
	Anthropic ProviderConfig `yaml:"anthropic"`
}

// ProviderConfig describes how to reach one upstream.
type ProviderConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // non-streaming calls, default: 120s
	MaxRetries int           `yaml:"max_retries"`  // default: 0
	MaxTokens  int           `yaml:"max_tokens"`   // anthropic only
}

// Configured reports whether the provider has credentials.
func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

// AuthConfig holds inbound authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string   `yaml:"key" json:"key"`
	KeyFile string   `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject string   `yaml:"subject" json:"subject"`
	Scopes  []string `yaml:"scopes" json:"scopes"`
}

// JWTConfig holds bearer token validation settings for type=jwt.
// ChatScope and EmbeddingsScope name the token scopes that unlock each
// operation; a token without the scopes claim may call both.
type JWTConfig struct {
	Issuer          string        `yaml:"issuer"`
	Audience        string        `yaml:"audience"`
	JWKSURL         string        `yaml:"jwks_url"`
	UserClaim       string        `yaml:"user_claim"`
	ScopesClaim     string        `yaml:"scopes_claim"`
	ChatScope       string        `yaml:"chat_scope"`       // default: "chat"
	EmbeddingsScope string        `yaml:"embeddings_scope"` // default: "embeddings"
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	Leeway          time.Duration `yaml:"leeway"`
}

// LoggingConfig controls the process logger. OLLABRIDGE_LOG_LEVEL and
// OLLABRIDGE_DEBUG take precedence over these values.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// Provider names models refer to.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderQwen      = "qwen"
	ProviderAnthropic = "anthropic"
)

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            11434,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			EmbedConcurrency: 1,
		},
		Providers: ProvidersConfig{
			Gemini:    ProviderConfig{BaseURL: "https://generativelanguage.googleapis.com/v1beta"},
			OpenAI:    ProviderConfig{BaseURL: "https://api.openai.com/v1"},
			Qwen:      ProviderConfig{BaseURL: "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"},
			Anthropic: ProviderConfig{BaseURL: "https://api.anthropic.com"},
		},
		Models: DefaultModels(),
		Auth: AuthConfig{
			Type: "none",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true},
		},
	}
}

// DefaultModels is the model list served when neither models nor
// models_file is configured. Entries for providers without credentials are
// dropped when the registry loads.
func DefaultModels() []registry.ModelConfig {
	chat := func(name, provider, upstream string) registry.ModelConfig {
		return registry.ModelConfig{Name: name, Provider: provider, UpstreamModel: upstream, Kind: registry.KindChat}
	}
	embedding := func(name, provider, upstream string) registry.ModelConfig {
		return registry.ModelConfig{Name: name, Provider: provider, UpstreamModel: upstream, Kind: registry.KindEmbedding}
	}
	return []registry.ModelConfig{
		chat("gemini-2.0-flash", ProviderGemini, "gemini-2.0-flash"),
		chat("gemini-2.5-flash", ProviderGemini, "gemini-2.5-flash"),
		chat("gemini-2.5-pro", ProviderGemini, "gemini-2.5-pro"),
		chat("gpt-4o", ProviderOpenAI, "gpt-4o"),
		chat("gpt-4o-mini", ProviderOpenAI, "gpt-4o-mini"),
		chat("qwen-plus", ProviderQwen, "qwen-plus"),
		chat("qwen-max", ProviderQwen, "qwen-max"),
		chat("claude-sonnet-4", ProviderAnthropic, "claude-sonnet-4-20250514"),
		chat("claude-3-5-haiku", ProviderAnthropic, "claude-3-5-haiku-latest"),
		embedding("text-embedding-004", ProviderGemini, "text-embedding-004"),
		embedding("text-embedding-3-small", ProviderOpenAI, "text-embedding-3-small"),
		embedding("qwen-embedding", ProviderQwen, "text-embedding-v3"),
	}
}
