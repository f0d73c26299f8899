// Package provider defines the interface for upstream text and embedding
// services. Each adapter (openaicompat, gemini, anthropic) handles its own
// upstream protocol internally and exposes the gateway's own types
// (Request, Result, Event, Embedding), keeping wire details invisible to the
// engine.
//
// Adapters assign an api.ErrorKind to every failure at the point where it is
// understood, usually from the upstream HTTP status via MapStatus.
package provider
