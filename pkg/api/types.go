package api

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Endpoint identifies the calling wire endpoint. It fixes the envelope
// discriminator key for chat and generate responses.
type Endpoint string

const (
	EndpointChat       Endpoint = "chat"
	EndpointGenerate   Endpoint = "generate"
	EndpointEmbeddings Endpoint = "embeddings"
	EndpointEmbed      Endpoint = "embed"
)

// RawBody is a parsed but unvalidated JSON request object.
type RawBody map[string]json.RawMessage

// Message is a single conversation turn. Reasoning is only populated on
// assistant messages produced by an upstream that exposes its thinking.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Options carries the sampling options accepted on chat and generate
// requests. Values are passed to providers unmodified.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ChatRequest is the canonical form of a chat or generate request.
// Generate requests are normalized into a single user message.
type ChatRequest struct {
	Endpoint Endpoint
	Model    string
	Messages []Message
	Options  Options
	Stream   bool
}

// EmbeddingRequest is the canonical form of an embedding request.
//
// Single is true only when the input arrived through the singular "prompt"
// field. A one-element "input" array or an "input" string both leave it
// false, which selects the batch envelope.
type EmbeddingRequest struct {
	Model  string
	Inputs []string
	Single bool
}

// ReplyMessage is the {role, content} pair placed under the envelope
// discriminator key.
type ReplyMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatEnvelope is the single JSON object returned by a non-streaming chat
// or generate call. Exactly one of Message or Response is set, chosen by
// the endpoint.
type ChatEnvelope struct {
	Model      string        `json:"model"`
	CreatedAt  string        `json:"created_at"`
	Message    *ReplyMessage `json:"message,omitempty"`
	Response   *ReplyMessage `json:"response,omitempty"`
	Done       bool          `json:"done"`
	DoneReason string        `json:"done_reason,omitempty"`
	Reasoning  string        `json:"reasoning,omitempty"`
	Messages   []Message     `json:"messages,omitempty"`
}

// StreamChunk is one NDJSON line of a streaming response. Chat streams carry
// Message, generate streams carry Response as a plain string.
type StreamChunk struct {
	Model      string        `json:"model"`
	CreatedAt  string        `json:"created_at"`
	Message    *ReplyMessage `json:"message,omitempty"`
	Response   *string       `json:"response,omitempty"`
	Done       bool          `json:"done"`
	DoneReason string        `json:"done_reason,omitempty"`
	Reasoning  string        `json:"reasoning,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// EmbeddingResponse is the envelope for a request that used "prompt".
type EmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model"`
	CreatedAt string    `json:"created_at"`
}

// EmbeddingItem is one vector in a batch envelope.
type EmbeddingItem struct {
	Embedding []float64 `json:"embedding"`
}

// BatchEmbeddingResponse is the envelope for a request that used "input".
type BatchEmbeddingResponse struct {
	Embeddings []EmbeddingItem `json:"embeddings"`
	Model      string          `json:"model"`
	CreatedAt  string          `json:"created_at"`
}

// EmbedResponse is the /api/embed envelope. Vectors are bare arrays in
// input order, whichever input field the request used.
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
	CreatedAt  string      `json:"created_at"`
}

// TagsResponse lists the models served by the gateway.
type TagsResponse struct {
	Models []ModelTag `json:"models"`
}

// ModelTag describes one served model in /api/tags.
type ModelTag struct {
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	ModifiedAt string       `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

// ModelDetails carries the per-model details block. Family is "chat" or
// "embedding".
type ModelDetails struct {
	Family            string `json:"family"`
	Format            string `json:"format"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// VersionResponse is returned by /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

// FormatTimestamp renders t the way created_at fields are written.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
