// Package api defines the wire protocol types served by ollabridge.
//
// The types mirror the Ollama HTTP API (/api/chat, /api/generate,
// /api/embeddings, /api/tags, /api/version) so that existing Ollama clients
// can talk to the gateway unchanged. The package also owns the canonical
// internal request forms produced by validation and the error taxonomy used
// throughout the gateway.
//
// Core types:
//   - [ChatRequest]: canonical chat/generate request after validation
//   - [EmbeddingRequest]: canonical embedding request after validation
//   - [ChatEnvelope], [StreamChunk]: non-streaming and NDJSON response shapes
//   - [EmbeddingResponse], [BatchEmbeddingResponse]: embedding envelopes
//   - [APIError]: structured error with a semantic [ErrorKind]
//
// The package performs no network I/O.
package api
