package anthropic

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

// parseSSEStream reads Messages API stream events. Only data lines are
// needed since every payload repeats its event type.
func parseSSEStream(ctx context.Context, name string, body io.Reader, ch chan<- provider.Event) {
	var (
		reasoning  strings.Builder
		stopReason string
		failed     bool
	)

	err := provider.ReadSSE(ctx, body, func(payload string) bool {
		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			slog.Warn("skipping malformed SSE event",
				"provider", name,
				"error", err.Error(),
				"data", provider.Truncate(payload, 200),
			)
			return true
		}

		switch ev.Type {
		case "content_block_delta":
			switch ev.Delta.Type {
			case "text_delta":
				if ev.Delta.Text != "" {
					return provider.Send(ctx, ch, provider.Event{Type: provider.EventTextDelta, Delta: ev.Delta.Text})
				}
			case "thinking_delta":
				reasoning.WriteString(ev.Delta.Thinking)
				return provider.Send(ctx, ch, provider.Event{Type: provider.EventReasoningDelta, Delta: ev.Delta.Thinking})
			}
		case "message_delta":
			if ev.Delta.StopReason != "" {
				stopReason = mapStopReason(ev.Delta.StopReason)
			}
		case "message_stop":
			return false
		case "error":
			failed = true
			status, detail := 0, "stream error"
			if ev.Error != nil {
				status, detail = errorStatus(ev.Error.Type), ev.Error.Type+": "+ev.Error.Message
			}
			provider.Send(ctx, ch, provider.Event{
				Type: provider.EventError,
				Err:  provider.MapStreamError(name, status, detail),
			})
			return false
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
		FinishReason: stopReason,
	})
}
