package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/debug"
	"github.com/rhuss/ollabridge/pkg/transport"
)

// LivenessMessage is the plain-text body of GET /. Ollama clients request it
// to detect a running server.
const LivenessMessage = "Ollama is running"

// Catalog serves the read-only metadata endpoints.
type Catalog interface {
	Tags() *api.TagsResponse
	Version() *api.VersionResponse
}

// Adapter serves the Ollama API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	handler transport.Handler
	catalog Catalog
	mux     *http.ServeMux
	config  Config
	logger  *slog.Logger
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Logger      *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter for the given handler and catalog.
// Middleware is applied to the handler in the given order.
func NewAdapter(handler transport.Handler, catalog Catalog, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapter{
		handler: handler,
		catalog: catalog,
		mux:     http.NewServeMux(),
		config:  cfg,
		logger:  logger,
	}

	a.mux.HandleFunc("GET /{$}", a.handleLiveness)
	a.mux.HandleFunc("GET /api/version", a.handleVersion)
	a.mux.HandleFunc("GET /api/tags", a.handleTags)
	a.mux.HandleFunc("POST /api/chat", a.generation(api.EndpointChat))
	a.mux.HandleFunc("POST /api/generate", a.generation(api.EndpointGenerate))
	a.mux.HandleFunc("POST /api/embeddings", a.generation(api.EndpointEmbeddings))
	a.mux.HandleFunc("POST /api/embed", a.generation(api.EndpointEmbed))
	a.mux.HandleFunc("GET /healthz", a.handleHealth)
	a.mux.HandleFunc("OPTIONS /", handleOptions)
	a.mux.HandleFunc("/", handleNotFound)

	return a
}

// Mount registers an additional handler, such as the metrics endpoint.
func (a *Adapter) Mount(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Mux returns the underlying ServeMux. Middleware that reads the matched
// route pattern must wrap it directly.
func (a *Adapter) Mux() *http.ServeMux {
	return a.mux
}

// httpRequestIDMiddleware takes the X-Request-ID header from the request,
// or generates one, stores it in the context and echoes it on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// generation returns the handler for a POST endpoint that carries a JSON
// body to the engine.
func (a *Adapter) generation(endpoint api.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

		data, err := io.ReadAll(r.Body)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				transport.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("Request body too large (max %d bytes)", a.config.MaxBodySize))
				return
			}
			transport.WriteError(w, api.NewValidationError(api.CodeInvalidBody, "", "Failed to read request body"))
			return
		}

		body, err := api.DecodeBody(bytes.NewReader(data))
		if err != nil {
			a.logger.Warn("rejected request body",
				"request_id", transport.RequestIDFromContext(r.Context()),
				"endpoint", string(endpoint),
				"error", err,
			)
			transport.WriteError(w, err)
			return
		}

		debug.Trace("transport", "request body", "endpoint", string(endpoint), "body", debug.Truncate(string(data), 2000))

		rw := newNDJSONResponseWriter(w)
		req := &transport.Request{Endpoint: endpoint, Body: body}
		if err := a.handler.Handle(r.Context(), req, rw); err != nil {
			a.writeHandlerError(w, rw, err)
		}
	}
}

// writeHandlerError writes a JSON error response unless the response has
// already been committed, in which case the client is gone or the stream
// ended and nothing more can be sent.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *ndjsonResponseWriter, err error) {
	if rw.committed() {
		a.logger.Debug("handler error after response was committed", "error", err)
		return
	}
	transport.WriteError(w, err)
}

func (a *Adapter) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, LivenessMessage)
}

func (a *Adapter) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.catalog.Version())
}

func (a *Adapter) handleTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.catalog.Tags())
}

func (a *Adapter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	transport.WriteErrorResponse(w, http.StatusNotFound, "Not found")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	json.NewEncoder(w).Encode(v)
}
