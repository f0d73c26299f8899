// Package transport defines the handler interface and middleware chain
// between the HTTP server and the gateway engine.
//
// The HTTP adapter decodes a request body into a Request, runs it through
// the middleware chain and hands the engine a ResponseWriter that renders
// either a single JSON document or an NDJSON stream. Errors returned by the
// handler are classified by kind into an HTTP status and a client-safe
// message with Classify.
//
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID) and structured logging via log/slog.
package transport
