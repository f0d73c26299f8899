package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InFlightRegistry tracks the cancel functions of active streams so that a
// shutting-down server can end them instead of waiting for upstreams to
// finish generating. Entries are keyed by a server-generated token; the
// client-supplied request ID is never used as a key.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]context.CancelFunc
}

// NewInFlightRegistry creates an empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{entries: make(map[string]context.CancelFunc)}
}

// Register records cancel and returns the token that removes it.
func (r *InFlightRegistry) Register(cancel context.CancelFunc) string {
	token := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[token] = cancel
	return token
}

// Remove drops the entry for token without cancelling it. Called when a
// stream ends on its own.
func (r *InFlightRegistry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}

// CancelAll cancels every registered stream and returns how many there were.
func (r *InFlightRegistry) CancelAll() int {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]context.CancelFunc)
	r.mu.Unlock()

	for _, cancel := range entries {
		cancel()
	}
	return len(entries)
}

// Len returns the number of registered streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
