package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
//
// Model entries are not checked here; the registry skips invalid entries
// with a warning instead of refusing to start.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be > 0, got %v", c.Server.ShutdownTimeout))
	}

	if c.Engine.EmbedConcurrency < 1 {
		errs = append(errs, fmt.Errorf("engine.embed_concurrency must be >= 1, got %d", c.Engine.EmbedConcurrency))
	}

	providers := map[string]ProviderConfig{
		ProviderGemini:    c.Providers.Gemini,
		ProviderOpenAI:    c.Providers.OpenAI,
		ProviderQwen:      c.Providers.Qwen,
		ProviderAnthropic: c.Providers.Anthropic,
	}
	for _, name := range []string{ProviderGemini, ProviderOpenAI, ProviderQwen, ProviderAnthropic} {
		p := providers[name]
		if p.Configured() && p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers.%s.base_url is required when an api key is set", name))
		}
		if p.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("providers.%s.max_retries must be >= 0, got %d", name, p.MaxRetries))
		}
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" && k.KeyFile == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key or key_file is required", i))
			}
		}
	case "jwt":
		if c.Auth.JWT.JWKSURL == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
