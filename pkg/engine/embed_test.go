package engine

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/provider"
	"github.com/rhuss/ollabridge/pkg/transport"
)

func embedBody(model, field, value string) api.RawBody {
	return body(map[string]string{"model": `"` + model + `"`, field: value})
}

// lengthVectors returns a vector whose only element is the input length,
// so tests can tell which input produced which vector.
func lengthVectors(_ context.Context, req *provider.EmbedRequest) (*provider.Embedding, error) {
	return &provider.Embedding{Vector: []float64{float64(len(req.Text))}}, nil
}

func TestEmbedSinglePrompt(t *testing.T) {
	p := embedProvider("gemini")
	e := newTestEngine(t, Config{}, p)

	w := &recordingWriter{}
	err := e.Handle(context.Background(), &transport.Request{
		Endpoint: api.EndpointEmbeddings,
		Body:     embedBody("text-embedding-004", "prompt", `"Hello world"`),
	}, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp api.EmbeddingResponse
	if err := json.Unmarshal(w.response, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Embedding) == 0 {
		t.Error("embedding is empty")
	}
	if resp.Model != "text-embedding-004" || resp.CreatedAt == "" {
		t.Errorf("model/created_at = %q/%q", resp.Model, resp.CreatedAt)
	}
	if strings.Contains(string(w.response), `"embeddings"`) {
		t.Error("single envelope must not contain embeddings")
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		p := embedProvider("qwen")
		p.embedFn = func(ctx context.Context, req *provider.EmbedRequest) (*provider.Embedding, error) {
			// Longer inputs finish first.
			time.Sleep(time.Duration(10-len(req.Text)) * time.Millisecond)
			return lengthVectors(ctx, req)
		}
		e := newTestEngine(t, Config{EmbedConcurrency: concurrency}, p)

		w := &recordingWriter{}
		err := e.Handle(context.Background(), &transport.Request{
			Endpoint: api.EndpointEmbeddings,
			Body:     embedBody("qwen-embedding", "input", `["a","bbb","cc","dddddd"]`),
		}, w)
		if err != nil {
			t.Fatalf("concurrency %d: unexpected error: %v", concurrency, err)
		}

		var resp api.BatchEmbeddingResponse
		if err := json.Unmarshal(w.response, &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := []float64{1, 3, 2, 6}
		if len(resp.Embeddings) != len(want) {
			t.Fatalf("concurrency %d: got %d vectors", concurrency, len(resp.Embeddings))
		}
		for i, item := range resp.Embeddings {
			if item.Embedding[0] != want[i] {
				t.Errorf("concurrency %d: vector %d = %v, want [%v]", concurrency, i, item.Embedding, want[i])
			}
		}
		if got := p.calls(); len(got) != 4 {
			t.Errorf("concurrency %d: %d upstream calls, want 4", concurrency, len(got))
		}
	}
}

func TestEmbedInputStringUsesBatchShape(t *testing.T) {
	e := newTestEngine(t, Config{}, embedProvider("qwen"))

	for _, input := range []string{`"Text 1"`, `["Text 1"]`} {
		w := &recordingWriter{}
		err := e.Handle(context.Background(), &transport.Request{
			Endpoint: api.EndpointEmbeddings,
			Body:     embedBody("qwen-embedding", "input", input),
		}, w)
		if err != nil {
			t.Fatalf("input %s: unexpected error: %v", input, err)
		}
		var env map[string]any
		json.Unmarshal(w.response, &env)
		if _, ok := env["embeddings"]; !ok {
			t.Errorf("input %s: expected batch envelope, got %s", input, w.response)
		}
		if _, ok := env["embedding"]; ok {
			t.Errorf("input %s: batch envelope carries embedding", input)
		}
	}
}

func TestEmbedBatchAbortsOnFailure(t *testing.T) {
	p := embedProvider("qwen")
	p.embedFn = func(ctx context.Context, req *provider.EmbedRequest) (*provider.Embedding, error) {
		if req.Text == "Text 3" {
			return nil, api.NewRateLimitError("quota exhausted", nil)
		}
		return lengthVectors(ctx, req)
	}
	e := newTestEngine(t, Config{}, p)

	w := &recordingWriter{}
	err := e.Handle(context.Background(), &transport.Request{
		Endpoint: api.EndpointEmbeddings,
		Body:     embedBody("qwen-embedding", "input", `["Text 1","Text 2","Text 3"]`),
	}, w)
	if api.AsAPIError(err).Kind != api.KindRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if w.response != nil {
		t.Error("no partial result may be written")
	}
}

func TestEmbedBatchSkipsRemainingItems(t *testing.T) {
	p := embedProvider("qwen")
	p.embedFn = func(ctx context.Context, req *provider.EmbedRequest) (*provider.Embedding, error) {
		return nil, api.NewUnavailableError(api.CodeUpstreamUnavailable, "down", nil)
	}
	e := newTestEngine(t, Config{}, p)

	err := e.Handle(context.Background(), &transport.Request{
		Endpoint: api.EndpointEmbeddings,
		Body:     embedBody("qwen-embedding", "input", `["one","two","three"]`),
	}, &recordingWriter{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := p.calls(); len(got) != 1 || got[0] != "one" {
		t.Errorf("upstream calls = %v, want only the first item", got)
	}
}

func TestEmbedEmptyVector(t *testing.T) {
	p := embedProvider("gemini")
	p.embedFn = func(context.Context, *provider.EmbedRequest) (*provider.Embedding, error) {
		return &provider.Embedding{}, nil
	}
	e := newTestEngine(t, Config{}, p)

	err := e.Handle(context.Background(), &transport.Request{
		Endpoint: api.EndpointEmbeddings,
		Body:     embedBody("text-embedding-004", "prompt", `"Hello"`),
	}, &recordingWriter{})
	apiErr := api.AsAPIError(err)
	if apiErr == nil || apiErr.Code != api.CodeInvalidUpstreamEmbedding || apiErr.Kind != api.KindUnavailable {
		t.Errorf("expected invalid_upstream_embedding, got %v", err)
	}
}

func TestEmbedNotCached(t *testing.T) {
	var counter atomic.Int64
	p := embedProvider("gemini")
	p.embedFn = func(context.Context, *provider.EmbedRequest) (*provider.Embedding, error) {
		return &provider.Embedding{Vector: []float64{float64(counter.Add(1))}}, nil
	}
	e := newTestEngine(t, Config{}, p)

	var vectors []float64
	for i := 0; i < 2; i++ {
		w := &recordingWriter{}
		err := e.Handle(context.Background(), &transport.Request{
			Endpoint: api.EndpointEmbeddings,
			Body:     embedBody("text-embedding-004", "prompt", `"same text"`),
		}, w)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		var resp api.EmbeddingResponse
		json.Unmarshal(w.response, &resp)
		vectors = append(vectors, resp.Embedding[0])
	}

	if vectors[0] == vectors[1] {
		t.Error("identical requests returned the same vector; results must not be cached")
	}
	if len(p.calls()) != 2 {
		t.Errorf("upstream calls = %d, want 2", len(p.calls()))
	}
}

func TestEmbedErrorsBeforeUpstream(t *testing.T) {
	gemini := chatProvider("gemini") // no embeddings capability
	e := newTestEngine(t, Config{}, gemini)

	tests := []struct {
		name     string
		body     api.RawBody
		wantCode string
	}{
		{"missing model", body(map[string]string{"prompt": `"Hello world"`}), api.CodeMissingField},
		{"chat model", embedBody("gemini-2.0-flash", "prompt", `"x"`), api.CodeWrongKind},
		{"unknown model", embedBody("nomic-embed-text", "prompt", `"x"`), api.CodeModelNotFound},
		{"no embeddings capability", embedBody("text-embedding-004", "prompt", `"x"`), api.CodeNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Handle(context.Background(), &transport.Request{Endpoint: api.EndpointEmbeddings, Body: tt.body}, &recordingWriter{})
			if got := api.AsAPIError(err); got == nil || got.Code != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
	if len(gemini.calls()) != 0 {
		t.Error("provider should not have been called")
	}
}

func TestGenerateEmbeddingsDimensions(t *testing.T) {
	p := embedProvider("qwen")
	p.embedFn = func(context.Context, *provider.EmbedRequest) (*provider.Embedding, error) {
		return &provider.Embedding{Vector: make([]float64, 1024)}, nil
	}
	e := newTestEngine(t, Config{}, p)

	model, err := e.models.LookupEmbedding("qwen-embedding")
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.GenerateEmbeddings(context.Background(), model, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Dimensions != 1024 || len(res.Vectors) != 2 || res.Model != "qwen-embedding" {
		t.Errorf("result = %d dims, %d vectors, model %q", res.Dimensions, len(res.Vectors), res.Model)
	}
}

func TestVerifyEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected int
		wantErr  bool
	}{
		{"single ok", `{"embedding":[0.1,0.2],"model":"m","created_at":"t"}`, 1, false},
		{"batch ok", `{"embeddings":[{"embedding":[1]},{"embedding":[2]}],"model":"m","created_at":"t"}`, 2, false},
		{"count mismatch", `{"embeddings":[{"embedding":[1]}],"model":"m","created_at":"t"}`, 2, true},
		{"empty vector", `{"embeddings":[{"embedding":[]}],"model":"m","created_at":"t"}`, 1, true},
		{"null vector", `{"embedding":null,"model":"m","created_at":"t"}`, 1, true},
		{"non-numeric", `{"embedding":[1,"x"],"model":"m","created_at":"t"}`, 1, true},
		{"missing model", `{"embedding":[1],"created_at":"t"}`, 1, true},
		{"numeric model", `{"embedding":[1],"model":7,"created_at":"t"}`, 1, true},
		{"missing created_at", `{"embedding":[1],"model":"m"}`, 1, true},
		{"single for batch", `{"embedding":[1],"model":"m","created_at":"t"}`, 2, true},
		{"bare vectors ok", `{"model":"m","embeddings":[[1],[2]],"created_at":"t"}`, 2, false},
		{"empty bare vector", `{"model":"m","embeddings":[[1],[]],"created_at":"t"}`, 2, true},
		{"no vectors", `{"model":"m","created_at":"t"}`, 1, true},
		{"not json", `[1,2]`, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyEnvelope([]byte(tt.data), tt.expected)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyEnvelope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				apiErr := api.AsAPIError(err)
				if apiErr.Kind != api.KindInternal || apiErr.Code != api.CodeInvalidEnvelope {
					t.Errorf("got %s/%s, want internal/%s", apiErr.Kind, apiErr.Code, api.CodeInvalidEnvelope)
				}
			}
		})
	}
}

func TestShape(t *testing.T) {
	res := &EmbeddingResult{Vectors: [][]float64{{1, 2}}}

	if _, ok := Shape(res, api.EndpointEmbeddings, true, "m", "t").(*api.EmbeddingResponse); !ok {
		t.Error("single=true should produce the single envelope")
	}
	batch, ok := Shape(res, api.EndpointEmbeddings, false, "m", "t").(*api.BatchEmbeddingResponse)
	if !ok || len(batch.Embeddings) != 1 {
		t.Errorf("single=false should produce a one-element batch, got %+v", batch)
	}
	for _, single := range []bool{true, false} {
		embed, ok := Shape(res, api.EndpointEmbed, single, "m", "t").(*api.EmbedResponse)
		if !ok || len(embed.Embeddings) != 1 {
			t.Errorf("/api/embed (single=%v) should produce bare vectors, got %+v", single, embed)
		}
	}
}

func TestEmbedEndpointReturnsBareVectors(t *testing.T) {
	p := embedProvider("qwen")
	p.embedFn = lengthVectors
	e := newTestEngine(t, Config{}, p)

	tests := []struct {
		name  string
		field string
		value string
		want  [][]float64
	}{
		{"input array", "input", `["a","bb"]`, [][]float64{{1}, {2}}},
		{"input string", "input", `"ccc"`, [][]float64{{3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWriter{}
			err := e.Handle(context.Background(), &transport.Request{
				Endpoint: api.EndpointEmbed,
				Body:     embedBody("qwen-embedding", tt.field, tt.value),
			}, w)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var resp struct {
				Model      string      `json:"model"`
				Embeddings [][]float64 `json:"embeddings"`
			}
			if err := json.Unmarshal(w.response, &resp); err != nil {
				t.Fatalf("decode %s: %v", w.response, err)
			}
			if resp.Model != "qwen-embedding" {
				t.Errorf("model = %q", resp.Model)
			}
			if len(resp.Embeddings) != len(tt.want) {
				t.Fatalf("got %d vectors, want %d", len(resp.Embeddings), len(tt.want))
			}
			for i := range tt.want {
				if resp.Embeddings[i][0] != tt.want[i][0] {
					t.Errorf("vector %d = %v, want %v", i, resp.Embeddings[i], tt.want[i])
				}
			}
		})
	}
}

func TestGenerateEmbeddingsRejectsEmptyInputs(t *testing.T) {
	p := embedProvider("gemini")
	e := newTestEngine(t, Config{}, p)
	model, err := e.models.LookupEmbedding("text-embedding-004")
	if err != nil {
		t.Fatalf("LookupEmbedding: %v", err)
	}

	for _, inputs := range [][]string{nil, {}} {
		res, err := e.GenerateEmbeddings(context.Background(), model, inputs)
		if res != nil {
			t.Errorf("result = %+v, want nil", res)
		}
		apiErr := api.AsAPIError(err)
		if apiErr == nil || apiErr.Kind != api.KindValidation || apiErr.Code != api.CodeEmptyInput {
			t.Errorf("err = %v, want empty_input validation error", err)
		}
	}
	if calls := p.calls(); len(calls) != 0 {
		t.Errorf("provider called %d times, want 0", len(calls))
	}
}
