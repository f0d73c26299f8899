package provider

import (
	"context"
)

// Provider abstracts a credentialed upstream service. A provider that lacks
// a capability must still implement the method and fail fast with an
// api.CodeNotSupported error.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the configured provider name (e.g., "gemini", "qwen").
	Name() string

	// Capabilities returns what this provider supports.
	Capabilities() Capabilities

	// Generate performs non-streaming text generation.
	Generate(ctx context.Context, req *Request) (*Result, error)

	// GenerateStream performs streaming text generation. Connection-time
	// failures are returned directly. The returned channel receives Event
	// values and is closed by the provider when the stream completes,
	// errors, or ctx is cancelled.
	GenerateStream(ctx context.Context, req *Request) (<-chan Event, error)

	// Embed produces one vector for one input text.
	Embed(ctx context.Context, req *EmbedRequest) (*Embedding, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
