package gemini

import "github.com/rhuss/ollabridge/pkg/provider"

// DefaultBaseURL is the public Gemini API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config holds configuration for the Gemini adapter.
type Config struct {
	// Name is the provider name models refer to. Defaults to "gemini".
	Name string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// APIKey is sent in the x-goog-api-key header.
	APIKey string

	// HTTP configures timeouts and retries.
	HTTP provider.HTTPConfig
}
