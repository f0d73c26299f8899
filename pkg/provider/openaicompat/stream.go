package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/ollabridge/pkg/provider"
)

// parseSSEStream reads Chat Completions SSE chunks from body and sends the
// resulting events on ch. The channel is NOT closed by this function.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//
// Reasoning deltas are forwarded and also accumulated so the final
// EventDone carries the complete reasoning. Malformed chunks are logged
// and skipped. A stream that ends without [DONE] still terminates with
// EventDone unless reading failed.
func parseSSEStream(ctx context.Context, name string, body io.Reader, ch chan<- provider.Event) {
	var (
		reasoning    strings.Builder
		finishReason string
		failed       bool
	)

	err := provider.ReadSSE(ctx, body, func(payload string) bool {
		if payload == "[DONE]" {
			return false
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"provider", name,
				"error", err.Error(),
				"data", provider.Truncate(payload, 200),
			)
			return true
		}

		if chunk.Error != nil {
			failed = true
			provider.Send(ctx, ch, provider.Event{
				Type: provider.EventError,
				Err:  provider.MapStreamError(name, errorStatus(chunk.Error), chunk.Error.Message),
			})
			return false
		}

		if len(chunk.Choices) == 0 {
			// Usage-only chunk (stream_options.include_usage).
			return true
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != nil {
			finishReason = *choice.FinishReason
		}

		if rc := choice.Delta.ReasoningContent; rc != nil && *rc != "" {
			reasoning.WriteString(*rc)
			if !provider.Send(ctx, ch, provider.Event{Type: provider.EventReasoningDelta, Delta: *rc}) {
				return false
			}
		}
		if c := choice.Delta.Content; c != nil && *c != "" {
			if !provider.Send(ctx, ch, provider.Event{Type: provider.EventTextDelta, Delta: *c}) {
				return false
			}
		}
		return true
	})

	if failed || ctx.Err() != nil {
		return
	}
	if err != nil {
		provider.Send(ctx, ch, provider.Event{
			Type: provider.EventError,
			Err:  provider.MapNetworkError(name, fmt.Errorf("SSE stream read error: %w", err)),
		})
		return
	}

	provider.Send(ctx, ch, provider.Event{
		Type:         provider.EventDone,
		Reasoning:    reasoning.String(),
		FinishReason: finishReason,
	})
}
