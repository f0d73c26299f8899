package gemini

import (
	"encoding/json"
	"strings"

	"github.com/rhuss/ollabridge/pkg/provider"
)

// translateRequest maps provider messages to Gemini contents. System
// messages are merged into systemInstruction and the assistant role becomes
// "model".
func translateRequest(req *provider.Request) generateRequest {
	var out generateRequest
	var system []string

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			out.Contents = append(out.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			out.Contents = append(out.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		out.SystemInstruction = &content{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}

	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil || len(req.Stop) > 0 {
		out.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}
	return out
}

// splitParts separates answer text from thought text in a candidate.
func splitParts(c candidate) (text, thought string) {
	var tb, rb strings.Builder
	for _, p := range c.Content.Parts {
		if p.Thought {
			rb.WriteString(p.Text)
		} else {
			tb.WriteString(p.Text)
		}
	}
	return tb.String(), rb.String()
}

// mapFinishReason converts Gemini's enum to the lower-case form used on the
// wire.
func mapFinishReason(reason string) string {
	switch reason {
	case "":
		return ""
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	default:
		return strings.ToLower(reason)
	}
}

func extractErrorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return ""
}
