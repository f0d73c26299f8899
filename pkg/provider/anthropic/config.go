package anthropic

import "github.com/rhuss/ollabridge/pkg/provider"

const (
	// DefaultBaseURL is the public Anthropic API root.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultVersion is sent in the anthropic-version header.
	DefaultVersion = "2023-06-01"

	// DefaultMaxTokens is used when the request sets no limit; the Messages
	// API requires max_tokens.
	DefaultMaxTokens = 4096
)

// Config holds configuration for the Anthropic adapter.
type Config struct {
	// Name is the provider name models refer to. Defaults to "anthropic".
	Name string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// APIKey is sent in the x-api-key header.
	APIKey string

	// MaxTokens overrides DefaultMaxTokens.
	MaxTokens int

	// HTTP configures timeouts and retries.
	HTTP provider.HTTPConfig
}
