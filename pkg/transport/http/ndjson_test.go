package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/ollabridge/pkg/api"
)

func textChunk(content string, done bool) *api.StreamChunk {
	return &api.StreamChunk{
		Model:     "gemini-2.0-flash",
		CreatedAt: "2026-03-01T12:00:00Z",
		Message:   &api.ReplyMessage{Role: api.RoleAssistant, Content: content},
		Done:      done,
	}
}

func TestWriteResponseJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newNDJSONResponseWriter(rec)

	if err := w.WriteResponse(context.Background(), []byte(`{"model":"m","done":true}`)); err != nil {
		t.Fatalf("WriteResponse error: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("Content-Type = %q, want %q", ct, ContentTypeJSON)
	}
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != `{"model":"m","done":true}` {
		t.Errorf("body = %q", got)
	}
	if !w.committed() {
		t.Error("writer should be committed after WriteResponse")
	}
}

func TestWriteChunkNDJSONFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newNDJSONResponseWriter(rec)

	for _, c := range []*api.StreamChunk{textChunk("He", false), textChunk("llo", false), textChunk("", true)} {
		if err := w.WriteChunk(context.Background(), c); err != nil {
			t.Fatalf("WriteChunk error: %v", err)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var lines []map[string]any
	for scanner.Scan() {
		var obj map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("line %q is not JSON: %v", scanner.Text(), err)
		}
		lines = append(lines, obj)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0]["done"] != false || lines[2]["done"] != true {
		t.Errorf("done flags = %v, %v", lines[0]["done"], lines[2]["done"])
	}
	if !rec.Flushed {
		t.Error("chunks should be flushed")
	}
}

func TestWriteChunkHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newNDJSONResponseWriter(rec)

	if w.committed() {
		t.Error("new writer should not be committed")
	}
	w.WriteChunk(context.Background(), textChunk("x", false))

	if ct := rec.Header().Get("Content-Type"); ct != ContentTypeNDJSON {
		t.Errorf("Content-Type = %q, want %q", ct, ContentTypeNDJSON)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	if !w.committed() {
		t.Error("writer should be committed after the first chunk")
	}
}

func TestWriteChunkAfterDoneReturnsError(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newNDJSONResponseWriter(rec)

	w.WriteChunk(context.Background(), textChunk("", true))
	if err := w.WriteChunk(context.Background(), textChunk("late", false)); err == nil {
		t.Error("expected error writing after the terminal chunk")
	}
}

func TestWriteResponseAfterChunkReturnsError(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newNDJSONResponseWriter(rec)

	w.WriteChunk(context.Background(), textChunk("x", false))
	if err := w.WriteResponse(context.Background(), []byte(`{}`)); err == nil {
		t.Error("expected error from WriteResponse after WriteChunk")
	}
}

func TestWriteChunkAfterResponseReturnsError(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newNDJSONResponseWriter(rec)

	w.WriteResponse(context.Background(), []byte(`{}`))
	if err := w.WriteChunk(context.Background(), textChunk("x", false)); err == nil {
		t.Error("expected error from WriteChunk after WriteResponse")
	}
}
