package provider

import "github.com/rhuss/ollabridge/pkg/api"

// Request is the upstream-facing generation request. Model holds the
// upstream model identifier, not the wire name.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Stop        []string
}

// Message is one conversation turn in provider form.
type Message struct {
	Role      string
	Content   string
	Reasoning string
}

// NewRequest builds a Request from a validated chat request.
func NewRequest(upstreamModel string, req *api.ChatRequest) *Request {
	pr := &Request{
		Model:       upstreamModel,
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
		MaxTokens:   req.Options.NumPredict,
		Stop:        req.Options.Stop,
	}
	for _, m := range req.Messages {
		pr.Messages = append(pr.Messages, Message{Role: string(m.Role), Content: m.Content})
	}
	return pr
}

// Result is the complete output of a non-streaming generation.
//
// Text is the raw generated text. Messages is set when the upstream exposes
// a structured transcript; the last assistant entry in it is the canonical
// reply.
type Result struct {
	Text      string
	Reasoning string
	Messages  []Message
	Model     string
	Usage     Usage
}

// Usage holds upstream token accounting when reported.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// EventType classifies a streaming event.
type EventType int

const (
	EventTextDelta      EventType = iota // Incremental text content
	EventReasoningDelta                  // Incremental reasoning content
	EventDone                            // Stream finished
	EventError                           // Stream error
)

// Event is a single streaming event from a provider.
type Event struct {
	Type EventType

	// Delta contains incremental text for delta events.
	Delta string

	// Reasoning carries the accumulated reasoning on EventDone.
	Reasoning string

	// FinishReason is populated on EventDone when the upstream reports one.
	FinishReason string

	// Err is populated on EventError.
	Err error
}

// EmbedRequest asks for the vector of a single text.
type EmbedRequest struct {
	Model string
	Text  string
}

// Embedding is the vector produced for one input.
type Embedding struct {
	Vector []float64
	Model  string
}
