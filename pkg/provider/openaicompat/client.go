package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/debug"
	"github.com/rhuss/ollabridge/pkg/provider"
)

// Client implements provider.Provider for an OpenAI-compatible upstream.
type Client struct {
	cfg     Config
	clients provider.HTTPClients
	caps    provider.Capabilities
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a Client. It returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("openaicompat: Name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: BaseURL is required for provider %q", cfg.Name)
	}

	// Normalize: remove trailing slash from base URL.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:     cfg,
		clients: provider.NewHTTPClients(cfg.HTTP),
		caps: provider.Capabilities{
			Chat:       true,
			Streaming:  true,
			Embeddings: !cfg.DisableEmbeddings,
		},
	}, nil
}

// Name returns the configured provider name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Capabilities returns what this provider supports.
func (c *Client) Capabilities() provider.Capabilities {
	return c.caps
}

// Generate performs non-streaming inference against /chat/completions.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	httpReq, err := c.newRequest(ctx, "/chat/completions", translateToChat(req, false))
	if err != nil {
		return nil, err
	}

	httpResp, err := c.clients.Default.Do(httpReq)
	if err != nil {
		return nil, provider.MapNetworkError(c.cfg.Name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, provider.MapHTTPError(c.cfg.Name, httpResp, extractErrorMessage)
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, provider.MalformedResponseError(c.cfg.Name, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, provider.MalformedResponseError(c.cfg.Name, fmt.Errorf("response has no choices"))
	}

	return translateResponse(&chatResp), nil
}

// GenerateStream performs streaming inference against /chat/completions.
// The HTTP request is sent and its status checked before returning, so
// connection and status failures are reported synchronously.
func (c *Client) GenerateStream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	httpReq, err := c.newRequest(ctx, "/chat/completions", translateToChat(req, true))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := c.clients.Streaming.Do(httpReq)
	if err != nil {
		return nil, provider.MapNetworkError(c.cfg.Name, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, provider.MapHTTPError(c.cfg.Name, httpResp, extractErrorMessage)
	}

	ch := make(chan provider.Event, 16)
	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		parseSSEStream(ctx, c.cfg.Name, httpResp.Body, ch)
	}()

	return ch, nil
}

// Embed requests one vector from /embeddings. An empty data array yields an
// Embedding with no vector; the caller decides whether that is an error.
func (c *Client) Embed(ctx context.Context, req *provider.EmbedRequest) (*provider.Embedding, error) {
	if !c.caps.Embeddings {
		return nil, api.NewNotSupportedError(c.cfg.Name, string(provider.CapabilityEmbeddings))
	}

	httpReq, err := c.newRequest(ctx, "/embeddings", embeddingRequest{
		Model:          req.Model,
		Input:          req.Text,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, err
	}

	httpResp, err := c.clients.Default.Do(httpReq)
	if err != nil {
		return nil, provider.MapNetworkError(c.cfg.Name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, provider.MapHTTPError(c.cfg.Name, httpResp, extractErrorMessage)
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&embResp); err != nil {
		return nil, provider.MalformedResponseError(c.cfg.Name, err)
	}

	out := &provider.Embedding{Model: embResp.Model}
	if len(embResp.Data) > 0 {
		out.Vector = embResp.Data[0].Embedding
	}
	return out, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.clients.Default.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, api.NewInternalError("failed to marshal upstream request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewInternalError("failed to create upstream request", err)
	}

	debug.Log("providers", "request", "provider", c.cfg.Name, "url", httpReq.URL.String())
	debug.Trace("providers", "request body", "provider", c.cfg.Name, "body", string(body))

	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return httpReq, nil
}
