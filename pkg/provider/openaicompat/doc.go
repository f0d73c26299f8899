// Package openaicompat implements provider.Provider for any OpenAI-compatible
// upstream: the OpenAI API itself and compatible endpoints such as Qwen
// DashScope's compatible mode. It handles Chat Completions request
// serialization, response parsing, SSE chunk streaming (including
// reasoning_content deltas), the embeddings endpoint and error mapping.
package openaicompat
