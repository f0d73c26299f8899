package provider

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// maxSSELine bounds a single SSE line. Upstream chunks carrying long
// reasoning deltas can exceed bufio.Scanner's default of 64 KiB.
const maxSSELine = 1 << 20

// ReadSSE reads server-sent events from body and calls fn with the payload
// of every "data:" line. Other lines (event names, comments, blanks) are
// ignored. Reading stops when fn returns false, when ctx is cancelled, or
// at end of input.
//
// It returns the scanner error, or nil on clean end of input, early stop,
// or cancellation.
func ReadSSE(ctx context.Context, body io.Reader, fn func(data string) bool) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if !fn(payload) {
			return nil
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Send delivers ev on ch unless ctx is cancelled first. It reports whether
// the event was delivered. Providers use it so a consumer that stops
// reading never strands the producing goroutine.
func Send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
