package openaicompat

import "github.com/rhuss/ollabridge/pkg/provider"

// Config holds configuration for an OpenAI-compatible upstream.
type Config struct {
	// Name is the provider name models refer to (e.g., "openai", "qwen").
	Name string

	// BaseURL is the API root including the version segment
	// (e.g., "https://api.openai.com/v1").
	BaseURL string

	// APIKey is sent as a bearer token.
	APIKey string

	// DisableEmbeddings marks upstreams without an /embeddings endpoint.
	DisableEmbeddings bool

	// HTTP configures timeouts and retries.
	HTTP provider.HTTPConfig
}
