// Package engine implements the request orchestration of the gateway. The
// Engine implements transport.Handler: it validates the request body for the
// calling endpoint, resolves the wire model name through the registry,
// dispatches to the provider that serves it and shapes the provider output
// into Ollama envelopes, either as one JSON document or as an NDJSON stream.
//
// Nothing is cached: every request reaches the upstream.
package engine
