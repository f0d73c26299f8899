// Package anthropic implements provider.Provider for the Anthropic Messages
// API with SSE streaming. Thinking blocks are surfaced as reasoning. The
// Messages API has no embeddings endpoint, so Embed always fails with a
// not_supported error.
package anthropic
