package transport

import (
	"context"
	"encoding/json"

	"github.com/rhuss/ollabridge/pkg/api"
)

// Request is a decoded but unvalidated call to one of the generation
// endpoints. Validation belongs to the handler so that the endpoint-specific
// rules and messages live in one place.
type Request struct {
	Endpoint api.Endpoint
	Body     api.RawBody
}

// Model returns the "model" field of the body if it is a string. It is used
// for logging only.
func (r *Request) Model() string {
	var model string
	if raw, ok := r.Body["model"]; ok {
		_ = json.Unmarshal(raw, &model)
	}
	return model
}

// Handler processes a generation request and writes the result (a single
// JSON document or a sequence of NDJSON chunks) to the ResponseWriter.
//
// Returning an error before anything has been written lets the transport
// render a JSON error response with the matching status code. Once a stream
// has started, the handler must report failures in-band and return nil.
type Handler interface {
	Handle(ctx context.Context, req *Request, w ResponseWriter) error
}

// HandlerFunc is an adapter that allows using an ordinary function as a
// Handler.
type HandlerFunc func(ctx context.Context, req *Request, w ResponseWriter) error

// Handle calls f(ctx, req, w).
func (f HandlerFunc) Handle(ctx context.Context, req *Request, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ResponseWriter abstracts streaming and non-streaming output for the handler.
//
// WriteResponse and WriteChunk are mutually exclusive on a single writer
// instance. Calling one after the other returns an error, as does calling
// WriteChunk after a chunk with done set to true.
type ResponseWriter interface {
	// WriteResponse sends a complete, already-serialized JSON document.
	WriteResponse(ctx context.Context, data []byte) error

	// WriteChunk sends one NDJSON line. The first call commits the
	// response status and headers.
	WriteChunk(ctx context.Context, chunk *api.StreamChunk) error
}
