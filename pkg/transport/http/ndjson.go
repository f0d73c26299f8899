package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/transport"
)

// Content types written by the gateway.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeNDJSON = "application/x-ndjson"
)

// writerState tracks the state of an NDJSON ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // Nothing written; a JSON error is still possible
	writerStreaming                    // At least one chunk written
	writerCompleted                    // Terminal chunk sent or WriteResponse called
)

// ndjsonResponseWriter implements transport.ResponseWriter for HTTP. It
// writes either one JSON document or a newline-delimited JSON stream.
type ndjsonResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.ResponseWriter = (*ndjsonResponseWriter)(nil)

func newNDJSONResponseWriter(w http.ResponseWriter) *ndjsonResponseWriter {
	return &ndjsonResponseWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteChunk sends one NDJSON line and flushes it. The first call commits
// status 200 with the streaming headers. A chunk with done set ends the
// stream; later calls return an error.
func (s *ndjsonResponseWriter) WriteChunk(_ context.Context, chunk *api.StreamChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write chunk: writer is completed")
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}

	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", ContentTypeNDJSON)
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.WriteHeader(http.StatusOK)
		s.state = writerStreaming
	}

	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if chunk.Done {
		s.state = writerCompleted
	}
	return nil
}

// WriteResponse sends a complete JSON document. It is mutually exclusive
// with WriteChunk.
func (s *ndjsonResponseWriter) WriteResponse(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write response: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", ContentTypeJSON)
	s.w.WriteHeader(http.StatusOK)
	s.state = writerCompleted

	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// committed reports whether a status line has been written, after which a
// JSON error response is no longer possible.
func (s *ndjsonResponseWriter) committed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle
}
