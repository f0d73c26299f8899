package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/debug"
	"github.com/rhuss/ollabridge/pkg/observability"
	"github.com/rhuss/ollabridge/pkg/provider"
	"github.com/rhuss/ollabridge/pkg/transport"
)

const doneReasonStop = "stop"

// respond performs a single-shot generation and writes one envelope.
func (e *Engine) respond(ctx context.Context, p provider.Provider, req *api.ChatRequest, preq *provider.Request, w transport.ResponseWriter) error {
	debug.Log("engine", "generate", "provider", p.Name(), "model", preq.Model, "messages", len(preq.Messages))

	start := time.Now()
	res, err := p.Generate(ctx, preq)
	observability.ObserveProvider(p.Name(), req.Model, "generate", start, err)
	if err != nil {
		return err
	}
	observability.ObserveTokens(p.Name(), req.Model, res.Usage.InputTokens, res.Usage.OutputTokens)

	data, err := json.Marshal(buildEnvelope(req, res, e.timestamp()))
	if err != nil {
		return api.NewInternalError("marshal response envelope", err)
	}
	return w.WriteResponse(ctx, data)
}

// buildEnvelope shapes a provider result. When the upstream returned a
// transcript, its last assistant message is the reply and overrides the
// raw text.
func buildEnvelope(req *api.ChatRequest, res *provider.Result, createdAt string) *api.ChatEnvelope {
	text, reasoning := res.Text, res.Reasoning
	if last, ok := lastAssistant(res.Messages); ok {
		text = last.Content
		if last.Reasoning != "" {
			reasoning = last.Reasoning
		}
	}

	env := &api.ChatEnvelope{
		Model:      req.Model,
		CreatedAt:  createdAt,
		Done:       true,
		DoneReason: doneReasonStop,
		Reasoning:  reasoning,
	}
	reply := &api.ReplyMessage{Role: api.RoleAssistant, Content: text}
	if req.Endpoint == api.EndpointGenerate {
		env.Response = reply
	} else {
		env.Message = reply
	}

	for _, m := range res.Messages {
		env.Messages = append(env.Messages, api.Message{
			Role:      api.Role(m.Role),
			Content:   m.Content,
			Reasoning: m.Reasoning,
		})
	}
	return env
}

func lastAssistant(messages []provider.Message) (provider.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == string(api.RoleAssistant) {
			return messages[i], true
		}
	}
	return provider.Message{}, false
}
