package openaicompat

import (
	"github.com/rhuss/ollabridge/pkg/provider"
)

// translateToChat converts a provider.Request into a chatCompletionRequest.
func translateToChat(req *provider.Request, stream bool) chatCompletionRequest {
	cr := chatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		N:           1,
		Stream:      stream,
	}

	// When streaming, enable usage reporting in the stream.
	if stream {
		cr.StreamOptions = &chatStreamOptions{IncludeUsage: true}
	}

	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, chatMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return cr
}

// translateResponse converts a chatCompletionResponse into a provider.Result.
// Only choices[0] is used.
func translateResponse(resp *chatCompletionResponse) *provider.Result {
	res := &provider.Result{Model: resp.Model}
	if resp.Usage != nil {
		res.Usage = provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	if len(resp.Choices) == 0 {
		return res
	}

	msg := resp.Choices[0].Message
	res.Text = extractContentString(msg.Content)
	if msg.ReasoningContent != nil {
		res.Reasoning = *msg.ReasoningContent
	}
	return res
}

// extractContentString gets a plain string from message content. Content
// can be a string, null, or an array of typed parts.
func extractContentString(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var text string
		for _, part := range v {
			if m, ok := part.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					text += s
				}
			}
		}
		return text
	default:
		return ""
	}
}
