package anthropic

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rhuss/ollabridge/pkg/provider"
)

// translateRequest builds a Messages API request. System messages are
// joined into the top-level system field.
func translateRequest(req *provider.Request, defaultMaxTokens int, stream bool) messagesRequest {
	out := messagesRequest{
		Model:         req.Model,
		MaxTokens:     defaultMaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        stream,
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		out.Messages = append(out.Messages, message{Role: m.Role, Content: m.Content})
	}
	out.System = strings.Join(system, "\n\n")
	return out
}

// translateResponse collects text and thinking blocks. The assistant turn
// is also returned as a one-entry transcript carrying its reasoning.
func translateResponse(resp *messagesResponse) *provider.Result {
	var text, thinking strings.Builder
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
		case "thinking":
			thinking.WriteString(b.Thinking)
		}
	}

	res := &provider.Result{
		Text:      text.String(),
		Reasoning: thinking.String(),
		Model:     resp.Model,
		Messages: []provider.Message{{
			Role:      "assistant",
			Content:   text.String(),
			Reasoning: thinking.String(),
		}},
	}
	if resp.Usage != nil {
		res.Usage = provider.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	}
	return res
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

func extractErrorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return ""
}

// errorStatus maps a Messages API error type to the HTTP status the API
// uses for it. Unknown types map to 0.
func errorStatus(errType string) int {
	switch errType {
	case "invalid_request_error", "not_found_error", "request_too_large":
		return http.StatusBadRequest
	case "authentication_error":
		return http.StatusUnauthorized
	case "permission_error":
		return http.StatusForbidden
	case "rate_limit_error":
		return http.StatusTooManyRequests
	case "api_error", "timeout_error":
		return http.StatusServiceUnavailable
	case "overloaded_error":
		return 529
	}
	return 0
}
