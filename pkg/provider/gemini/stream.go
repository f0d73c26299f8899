package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/provider"
)

// parseSSEStream reads streamGenerateContent?alt=sse output. Each data line
// is a full generateResponse holding only the new parts. Gemini has no
// terminal sentinel; the stream ends when the body does.
func parseSSEStream(ctx context.Context, name string, body io.Reader, ch chan<- provider.Event) {
	var (
		reasoning    strings.Builder
		finishReason string
		failed       bool
	)

	err := provider.ReadSSE(ctx, body, func(payload string) bool {
		var chunk generateResponse
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
				Err: provider.MapStatus(name, chunk.Error.Code,
					chunk.Error.Message),
			})
			return false
		}
		if len(chunk.Candidates) == 0 {
			return true
		}

		c := chunk.Candidates[0]
		if c.FinishReason != "" {
			finishReason = mapFinishReason(c.FinishReason)
		}
		for _, p := range c.Content.Parts {
			if p.Text == "" {
				continue
			}
			ev := provider.Event{Type: provider.EventTextDelta, Delta: p.Text}
			if p.Thought {
				reasoning.WriteString(p.Text)
				ev.Type = provider.EventReasoningDelta
			}
			if !provider.Send(ctx, ch, ev) {
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
			Err: api.NewUnavailableError(api.CodeUpstreamUnavailable,
				fmt.Sprintf("Provider '%s' stream was interrupted", name), err),
		})
		return
	}

	provider.Send(ctx, ch, provider.Event{
		Type:         provider.EventDone,
		Reasoning:    reasoning.String(),
		FinishReason: finishReason,
	})
}
