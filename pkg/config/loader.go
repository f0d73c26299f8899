package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/ollabridge/pkg/registry"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, OLLABRIDGE_CONFIG env, ./config.yaml, /etc/ollabridge/config.yaml)
//  3. Environment variable overrides
//  4. Models file (models_file), replacing the model list
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.ModelsFile != "" {
		models, err := LoadModelsFile(cfg.ModelsFile)
		if err != nil {
			return nil, fmt.Errorf("loading models file %s: %w", cfg.ModelsFile, err)
		}
		cfg.Models = models
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. OLLABRIDGE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/ollabridge/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("OLLABRIDGE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/ollabridge/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// LoadModelsFile reads a model list. The file holds either a bare YAML (or
// JSON) sequence of entries or a mapping with a "models" key.
func LoadModelsFile(path string) ([]registry.ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("empty models file")
	}

	var models []registry.ModelConfig
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		err = root.Decode(&models)
	case yaml.MappingNode:
		var wrapped struct {
			Models []registry.ModelConfig `yaml:"models"`
		}
		err = root.Decode(&wrapped)
		models = wrapped.Models
	default:
		err = fmt.Errorf("models file must contain a list or a mapping with a models key")
	}
	if err != nil {
		return nil, err
	}
	return models, nil
}

// applyEnvOverrides maps environment variables to config fields. Provider
// credentials use the upstream vendors' conventional variable names.
func applyEnvOverrides(cfg *Config) {
	// PORT is honored for platforms that inject it; OLLABRIDGE_PORT wins.
	for _, name := range []string{"PORT", "OLLABRIDGE_PORT"} {
		if v := os.Getenv(name); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				cfg.Server.Port = port
			}
		}
	}
	if v := os.Getenv("OLLABRIDGE_HOST"); v != "" {
		cfg.Server.Host = v
	}

	providers := []struct {
		cfg     *ProviderConfig
		keyEnv  string
		baseEnv string
	}{
		{&cfg.Providers.Gemini, "GEMINI_API_KEY", "GEMINI_BASE_URL"},
		{&cfg.Providers.OpenAI, "OPENAI_API_KEY", "OPENAI_BASE_URL"},
		{&cfg.Providers.Qwen, "DASHSCOPE_API_KEY", "DASHSCOPE_BASE_URL"},
		{&cfg.Providers.Anthropic, "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL"},
	}
	for _, p := range providers {
		if v := os.Getenv(p.keyEnv); v != "" {
			p.cfg.APIKey = v
		}
		if v := os.Getenv(p.baseEnv); v != "" {
			p.cfg.BaseURL = v
		}
	}

	if v := os.Getenv("OLLABRIDGE_MODELS_FILE"); v != "" {
		cfg.ModelsFile = v
	}
	if v := os.Getenv("OLLABRIDGE_EMBED_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.EmbedConcurrency = n
		}
	}
	if v := os.Getenv("OLLABRIDGE_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("OLLABRIDGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("OLLABRIDGE_CORS_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	// OLLABRIDGE_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("OLLABRIDGE_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	providers := []struct {
		name string
		cfg  *ProviderConfig
	}{
		{ProviderGemini, &cfg.Providers.Gemini},
		{ProviderOpenAI, &cfg.Providers.OpenAI},
		{ProviderQwen, &cfg.Providers.Qwen},
		{ProviderAnthropic, &cfg.Providers.Anthropic},
	}
	for _, p := range providers {
		if p.cfg.APIKeyFile != "" && p.cfg.APIKey == "" {
			val, err := readSecretFile(p.cfg.APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers.%s.api_key_file: %w", p.name, err)
			}
			p.cfg.APIKey = val
		}
	}

	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
