package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/provider"
	"github.com/rhuss/ollabridge/pkg/transport"
)

func decodeEnvelope(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("invalid envelope JSON: %v\n%s", err, data)
	}
	return env
}

func TestRespondChat(t *testing.T) {
	p := chatProvider("gemini")
	p.generateFn = func(_ context.Context, req *provider.Request) (*provider.Result, error) {
		return &provider.Result{Text: "Hello there"}, nil
	}
	e := newTestEngine(t, Config{}, p)

	w := &recordingWriter{}
	err := e.Handle(context.Background(), &transport.Request{
		Endpoint: api.EndpointChat,
		Body: body(map[string]string{
			"model":    `"gemini-2.0-flash"`,
			"messages": `[{"role":"system","content":"be brief"},{"role":"user","content":" hi "},{"role":"assistant","content":""}]`,
			"options":  `{"temperature":0.2,"num_predict":64}`,
			"stream":   `false`,
		}),
	}, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := decodeEnvelope(t, w.response)
	if env["model"] != "gemini-2.0-flash" {
		t.Errorf("model = %v, want the wire name", env["model"])
	}
	if env["done"] != true || env["done_reason"] != "stop" {
		t.Errorf("done/done_reason = %v/%v", env["done"], env["done_reason"])
	}
	if env["created_at"] != api.FormatTimestamp(fixedTime) {
		t.Errorf("created_at = %v", env["created_at"])
	}
	if _, ok := env["response"]; ok {
		t.Error("chat envelope must not carry a response key")
	}
	msg, ok := env["message"].(map[string]any)
	if !ok {
		t.Fatalf("message missing: %v", env)
	}
	if msg["role"] != "assistant" || msg["content"] != "Hello there" {
		t.Errorf("message = %v", msg)
	}
	if _, ok := env["messages"]; ok {
		t.Error("messages should be omitted without an upstream transcript")
	}

	// The provider sees the upstream model, trimmed surviving messages and
	// unmodified options.
	req := p.lastReq
	if req.Model != "gemini-2.0-flash-001" {
		t.Errorf("upstream model = %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[1].Content != "hi" {
		t.Errorf("messages = %+v", req.Messages)
	}
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 64 {
		t.Errorf("max tokens = %v", req.MaxTokens)
	}
}

func TestRespondGenerateUsesResponseKey(t *testing.T) {
	p := chatProvider("gemini")
	p.generateFn = func(context.Context, *provider.Request) (*provider.Result, error) {
		return &provider.Result{Text: "42"}, nil
	}
	e := newTestEngine(t, Config{}, p)

	w := &recordingWriter{}
	err := e.Handle(context.Background(), &transport.Request{
		Endpoint: api.EndpointGenerate,
		Body: body(map[string]string{
			"model":  `"gemini-2.0-flash"`,
			"prompt": `"What is six times seven?"`,
			"system": `"Answer with a number."`,
			"stream": `false`,
		}),
	}, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := decodeEnvelope(t, w.response)
	if _, ok := env["message"]; ok {
		t.Error("generate envelope must not carry a message key")
	}
	resp, ok := env["response"].(map[string]any)
	if !ok || resp["content"] != "42" || resp["role"] != "assistant" {
		t.Errorf("response = %v", env["response"])
	}

	msgs := p.lastReq.Messages
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Errorf("provider messages = %+v", msgs)
	}
}

func TestRespondTranscriptOverridesText(t *testing.T) {
	p := chatProvider("gemini")
	p.generateFn = func(context.Context, *provider.Request) (*provider.Result, error) {
		return &provider.Result{
			Text:      "raw text",
			Reasoning: "raw reasoning",
			Messages: []provider.Message{
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "draft"},
				{Role: "assistant", Content: "final", Reasoning: "thought it through"},
				{Role: "user", Content: "trailing"},
			},
		}, nil
	}
	e := newTestEngine(t, Config{}, p)

	w := &recordingWriter{}
	err := e.Handle(context.Background(), &transport.Request{
		Endpoint: api.EndpointChat,
		Body:     body(map[string]string{"model": `"gemini-2.0-flash"`, "messages": `[{"role":"user","content":"hi"}]`, "stream": `false`}),
	}, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := decodeEnvelope(t, w.response)
	if got := env["message"].(map[string]any)["content"]; got != "final" {
		t.Errorf("content = %v, want the last assistant message", got)
	}
	if env["reasoning"] != "thought it through" {
		t.Errorf("reasoning = %v", env["reasoning"])
	}
	if msgs, ok := env["messages"].([]any); !ok || len(msgs) != 4 {
		t.Errorf("messages = %v, want the full transcript", env["messages"])
	}
}

func TestBuildEnvelopeFallsBackToRawFields(t *testing.T) {
	req := &api.ChatRequest{Endpoint: api.EndpointChat, Model: "m"}
	res := &provider.Result{
		Text:      "plain",
		Reasoning: "why",
		Messages:  []provider.Message{{Role: "user", Content: "q"}},
	}
	env := buildEnvelope(req, res, "now")
	if env.Message.Content != "plain" || env.Reasoning != "why" {
		t.Errorf("envelope = %+v", env)
	}
	if env.Response != nil {
		t.Error("chat envelope set Response")
	}
}
