package anthropic

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

// Client implements provider.Provider for Anthropic.
type Client struct {
	cfg     Config
	clients provider.HTTPClients
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Name == "" {
		cfg.Name = "anthropic"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: APIKey is required for provider %q", cfg.Name)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{cfg: cfg, clients: provider.NewHTTPClients(cfg.HTTP)}, nil
}

// Name returns the configured provider name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Capabilities returns what this provider supports.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{Chat: true, Streaming: true}
}

// Generate calls /v1/messages without streaming.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	httpReq, err := c.newRequest(ctx, translateRequest(req, c.cfg.MaxTokens, false))
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

	var resp messagesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, provider.MalformedResponseError(c.cfg.Name, err)
	}
	return translateResponse(&resp), nil
}

// GenerateStream calls /v1/messages with stream=true.
func (c *Client) GenerateStream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	httpReq, err := c.newRequest(ctx, translateRequest(req, c.cfg.MaxTokens, true))
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

// Embed is not supported by the Messages API.
func (c *Client) Embed(context.Context, *provider.EmbedRequest) (*provider.Embedding, error) {
	return nil, api.NewNotSupportedError(c.cfg.Name, string(provider.CapabilityEmbeddings))
}

// Close releases client resources.
func (c *Client) Close() error {
	c.clients.Default.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, payload messagesRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, api.NewInternalError("failed to marshal upstream request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, api.NewInternalError("failed to create upstream request", err)
	}
	debug.Log("providers", "request", "provider", c.cfg.Name, "url", httpReq.URL.String())
	debug.Trace("providers", "request body", "provider", c.cfg.Name, "body", string(body))

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", DefaultVersion)
	return httpReq, nil
}
