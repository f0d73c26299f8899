package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/debug"
	"github.com/rhuss/ollabridge/pkg/observability"
	"github.com/rhuss/ollabridge/pkg/provider"
	"github.com/rhuss/ollabridge/pkg/transport"
)

// stream relays provider events as NDJSON chunks.
//
// The upstream stream is opened before anything is written, so a
// connection-time failure is returned and rendered as a plain JSON error.
// Once the first chunk is out, failures are reported in-band with a
// terminal error chunk and stream returns nil.
func (e *Engine) stream(ctx context.Context, p provider.Provider, req *api.ChatRequest, preq *provider.Request, w transport.ResponseWriter) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debug.Log("streaming", "open", "provider", p.Name(), "model", preq.Model)

	start := time.Now()
	events, err := p.GenerateStream(ctx, preq)
	if err != nil {
		observability.ObserveProvider(p.Name(), req.Model, "stream", start, err)
		return err
	}

	requestID := transport.RequestIDFromContext(ctx)
	token := e.inflight.Register(cancel)
	defer e.inflight.Remove(token)
	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	var (
		reasoning strings.Builder
		written   int
	)
	for ev := range events {
		switch ev.Type {
		case provider.EventTextDelta:
			if ev.Delta == "" {
				continue
			}
			if err := w.WriteChunk(ctx, deltaChunk(req, e.timestamp(), ev.Delta)); err != nil {
				cancel()
				debug.Log("streaming", "client write failed", "request_id", requestID, "chunks", written, "error", err)
				return err
			}
			written++

		case provider.EventReasoningDelta:
			reasoning.WriteString(ev.Delta)

		case provider.EventDone:
			observability.ObserveProvider(p.Name(), req.Model, "stream", start, nil)
			final := ev.Reasoning
			if final == "" {
				final = reasoning.String()
			}
			return w.WriteChunk(ctx, terminalChunk(req, e.timestamp(), ev.FinishReason, final))

		case provider.EventError:
			observability.ObserveProvider(p.Name(), req.Model, "stream", start, ev.Err)
			if written == 0 {
				return ev.Err
			}
			return e.writeErrorChunk(ctx, w, req, requestID, ev.Err)
		}
	}

	// The provider closed the channel without a terminal event.
	if ctx.Err() != nil {
		if parent.Err() != nil || written == 0 {
			return ctx.Err()
		}
		// Cancelled from the in-flight registry during shutdown.
		err := api.NewUnavailableError(api.CodeUpstreamUnavailable, "stream cancelled by server shutdown", ctx.Err())
		return e.writeErrorChunk(parent, w, req, requestID, err)
	}
	observability.ObserveProvider(p.Name(), req.Model, "stream", start, nil)
	return w.WriteChunk(ctx, terminalChunk(req, e.timestamp(), "", reasoning.String()))
}

// writeErrorChunk ends a started stream with a redacted error line.
func (e *Engine) writeErrorChunk(ctx context.Context, w transport.ResponseWriter, req *api.ChatRequest, requestID string, cause error) error {
	_, message := transport.Report(cause)
	apiErr := api.AsAPIError(cause)
	e.logger.LogAttrs(ctx, slog.LevelError, "stream failed",
		slog.String("request_id", requestID),
		slog.String("model", req.Model),
		slog.String("kind", string(apiErr.Kind)),
		slog.String("error", cause.Error()),
	)

	return w.WriteChunk(ctx, &api.StreamChunk{
		Model:     req.Model,
		CreatedAt: e.timestamp(),
		Done:      true,
		Error:     message,
	})
}

func deltaChunk(req *api.ChatRequest, createdAt, delta string) *api.StreamChunk {
	chunk := &api.StreamChunk{Model: req.Model, CreatedAt: createdAt}
	setContent(chunk, req.Endpoint, delta)
	return chunk
}

func terminalChunk(req *api.ChatRequest, createdAt, reason, reasoning string) *api.StreamChunk {
	if reason == "" {
		reason = doneReasonStop
	}
	chunk := &api.StreamChunk{
		Model:      req.Model,
		CreatedAt:  createdAt,
		Done:       true,
		DoneReason: reason,
		Reasoning:  reasoning,
	}
	setContent(chunk, req.Endpoint, "")
	return chunk
}

// setContent places text under the endpoint's discriminator: a message
// object for chat, a plain string for generate.
func setContent(chunk *api.StreamChunk, endpoint api.Endpoint, text string) {
	if endpoint == api.EndpointGenerate {
		chunk.Response = &text
		return
	}
	chunk.Message = &api.ReplyMessage{Role: api.RoleAssistant, Content: text}
}
