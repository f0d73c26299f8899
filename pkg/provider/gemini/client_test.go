package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, APIKey: "g-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without API key")
	}
	c, err := New(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Name() != "gemini" {
		t.Errorf("Name() = %q, want gemini", c.Name())
	}
}

func TestTranslateRequest(t *testing.T) {
	temp := 0.5
	req := translateRequest(&provider.Request{
		Model:       "gemini-2.0-flash",
		Temperature: &temp,
		Messages: []provider.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "again"},
		},
	})

	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("SystemInstruction = %+v", req.SystemInstruction)
	}
	if len(req.Contents) != 3 {
		t.Fatalf("len(Contents) = %d, want 3", len(req.Contents))
	}
	if req.Contents[1].Role != "model" {
		t.Errorf("assistant role should map to model, got %q", req.Contents[1].Role)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.Temperature != &temp {
		t.Error("temperature should pass through unmodified")
	}
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("missing API key header")
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"plan","thought":true},{"text":"Hi "},{"text":"there"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2},"modelVersion":"gemini-2.0-flash-001"}`)
	})

	res, err := c.Generate(context.Background(), &provider.Request{
		Model:    "gemini-2.0-flash",
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "Hi there" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Reasoning != "plan" {
		t.Errorf("Reasoning = %q", res.Reasoning)
	}
	if res.Usage.InputTokens != 4 {
		t.Errorf("Usage = %+v", res.Usage)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	})
	_, err := c.Generate(context.Background(), &provider.Request{Model: "m"})
	if api.AsAPIError(err).Kind != api.KindRateLimit {
		t.Errorf("expected rate_limit, got %v", err)
	}
}

func TestGenerateStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/m:streamGenerateContent" || r.URL.Query().Get("alt") != "sse" {
			t.Errorf("unexpected URL %s", r.URL.String())
		}
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"hmm\",\"thought\":true}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"He\"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"llo\"}]},\"finishReason\":\"STOP\"}]}\n\n")
	})

	ch, err := c.GenerateStream(context.Background(), &provider.Request{Model: "m"})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	var deltas []string
	var done provider.Event
	for ev := range ch {
		switch ev.Type {
		case provider.EventTextDelta:
			deltas = append(deltas, ev.Delta)
		case provider.EventDone:
			done = ev
		case provider.EventError:
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
	}
	if len(deltas) != 2 || deltas[0] != "He" || deltas[1] != "llo" {
		t.Errorf("deltas = %q", deltas)
	}
	if done.Reasoning != "hmm" || done.FinishReason != "stop" {
		t.Errorf("done = %+v", done)
	}
}

func TestEmbed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/text-embedding-004:embedContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "models/text-embedding-004" || req.Content.Parts[0].Text != "Hello world" {
			t.Errorf("unexpected request: %+v", req)
		}
		fmt.Fprint(w, `{"embedding":{"values":[0.5,-0.25]}}`)
	})

	emb, err := c.Embed(context.Background(), &provider.EmbedRequest{Model: "text-embedding-004", Text: "Hello world"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb.Vector) != 2 || emb.Vector[1] != -0.25 {
		t.Errorf("Vector = %v", emb.Vector)
	}
}

func TestEmbedEmptyValues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"embedding":{}}`)
	})
	emb, err := c.Embed(context.Background(), &provider.EmbedRequest{Model: "e", Text: "x"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb.Vector) != 0 {
		t.Errorf("Vector = %v, want empty", emb.Vector)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := map[string]string{"STOP": "stop", "MAX_TOKENS": "length", "SAFETY": "safety", "": ""}
	for in, want := range tests {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
