package provider

import "github.com/rhuss/ollabridge/pkg/api"

// Capability names one operation of the Provider interface.
type Capability string

const (
	CapabilityChat       Capability = "chat"
	CapabilityStreaming  Capability = "streaming"
	CapabilityEmbeddings Capability = "embeddings"
)

// Capabilities declares what the upstream supports. Used by the engine to
// reject requests before any network call.
type Capabilities struct {
	Chat       bool
	Streaming  bool
	Embeddings bool
}

// Has reports whether c includes the given capability.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapabilityChat:
		return c.Chat
	case CapabilityStreaming:
		return c.Streaming
	case CapabilityEmbeddings:
		return c.Embeddings
	}
	return false
}

// RequireCapability returns a not_supported error naming the provider and
// capability when p lacks it.
func RequireCapability(p Provider, capability Capability) error {
	if p.Capabilities().Has(capability) {
		return nil
	}
	return api.NewNotSupportedError(p.Name(), string(capability))
}
