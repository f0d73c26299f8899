// Command mock-upstream runs a local OpenAI-compatible upstream for manual
// testing of the gateway. It serves chat completions (plain and SSE) and
// embeddings, where every call returns a fresh random vector.
//
// Point a provider at it, for example:
//
//	OPENAI_BASE_URL=http://localhost:9090/v1 OPENAI_API_KEY=mock ollabridge
//
// A user message containing "[fail:<status>]" makes the call fail with that
// HTTP status; "[fail:stream]" breaks a stream after the first token. Model
// names containing "reasoner" also emit reasoning_content.
//
// Configuration:
//
//	MOCK_PORT       - Listen port (default: 9090)
//	MOCK_DIMENSIONS - Embedding vector length (default: 8)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	dims := 8
	if v := os.Getenv("MOCK_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dims = n
		}
	}

	srv := &http.Server{Addr: ":" + port, Handler: newMux(dims)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock upstream starting", "port", port, "dimensions", dims)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock upstream failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock upstream shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func newMux(dims int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("POST /v1/embeddings", embeddingsHandler(dims))
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role             string  `json:"role"`
	Content          string  `json:"content"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Model  string          `json:"model"`
	Data   []embeddingData `json:"data"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// --- Handlers ---

var failPattern = regexp.MustCompile(`\[fail:(\d{3}|stream)\]`)

const reasoningText = "Thinking it through step by step."

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Model == "" {
		req.Model = "mock-model"
	}

	lastMsg := lastUserMessage(&req)
	trigger := failTrigger(lastMsg)
	if status, err := strconv.Atoi(trigger); err == nil {
		writeError(w, status, fmt.Sprintf("mock failure %d", status))
		return
	}

	tokens := replyTokens(lastMsg)
	reasoning := strings.Contains(req.Model, "reasoner")

	if req.Stream {
		streamChat(w, req.Model, tokens, reasoning, trigger == "stream")
		return
	}

	text := strings.Join(tokens, "")
	resp := chatResponse{
		ID:     "chatcmpl-mock",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []chatChoice{{
			Message:      chatMsg{Role: "assistant", Content: text},
			FinishReason: "stop",
		}},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: len(tokens), TotalTokens: 10 + len(tokens)},
	}
	if reasoning {
		rc := reasoningText
		resp.Choices[0].Message.ReasoningContent = &rc
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func embeddingsHandler(dims int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		var inputs []string
		switch v := req.Input.(type) {
		case string:
			inputs = []string{v}
		case []any:
			for _, item := range v {
				s, _ := item.(string)
				inputs = append(inputs, s)
			}
		default:
			writeError(w, http.StatusBadRequest, "input must be a string or an array of strings")
			return
		}

		for _, in := range inputs {
			if status, err := strconv.Atoi(failTrigger(in)); err == nil {
				writeError(w, status, fmt.Sprintf("mock failure %d", status))
				return
			}
		}

		resp := embeddingResponse{Object: "list", Model: req.Model}
		for i := range inputs {
			resp.Data = append(resp.Data, embeddingData{
				Object:    "embedding",
				Index:     i,
				Embedding: randomVector(dims),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// --- Streaming ---

func streamChat(w http.ResponseWriter, model string, tokens []string, reasoning, breakStream bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSE(w, chunk(model, map[string]any{"role": "assistant"}, nil))
	flusher.Flush()

	if reasoning {
		writeSSE(w, chunk(model, map[string]any{"reasoning_content": reasoningText}, nil))
		flusher.Flush()
	}

	for i, token := range tokens {
		writeSSE(w, chunk(model, map[string]any{"content": token}, nil))
		flusher.Flush()
		if breakStream && i == 0 {
			writeSSE(w, map[string]any{"error": map[string]any{
				"message": "mock stream failure",
				"type":    "server_error",
			}})
			flusher.Flush()
			return
		}
	}

	finish := chunk(model, map[string]any{}, "stop")
	finish["usage"] = chatUsage{PromptTokens: 10, CompletionTokens: len(tokens), TotalTokens: 10 + len(tokens)}
	writeSSE(w, finish)
	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func chunk(model string, delta map[string]any, finishReason any) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{map[string]any{
			"index":         0,
			"delta":         delta,
			"finish_reason": finishReason,
		}},
	}
}

func writeSSE(w http.ResponseWriter, v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "ollabridge-mock"},
			{"id": "mock-reasoner", "object": "model", "owned_by": "ollabridge-mock"},
			{"id": "mock-embedding", "object": "model", "owned_by": "ollabridge-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": msg, "type": "mock_error"},
	})
}

func replyTokens(lastMsg string) []string {
	if strings.Contains(strings.ToLower(lastMsg), "count from 1 to 5") {
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}
	return []string{"Hello", ", ", "nice", " ", "day", "!"}
}

func failTrigger(text string) string {
	if m := failPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func randomVector(dims int) []float64 {
	v := make([]float64, dims)
	for i := range v {
		v[i] = rand.Float64()*2 - 1
	}
	return v
}

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		if s, ok := req.Messages[i].Content.(string); ok {
			return s
		}
	}
	return ""
}
