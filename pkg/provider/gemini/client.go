package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/debug"
	"github.com/rhuss/ollabridge/pkg/provider"
)

// Client implements provider.Provider for Gemini.
type Client struct {
	cfg     Config
	clients provider.HTTPClients
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: APIKey is required for provider %q", cfg.Name)
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
	return provider.Capabilities{Chat: true, Streaming: true, Embeddings: true}
}

// Generate calls models/{model}:generateContent.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	httpReq, err := c.newRequest(ctx, req.Model, ":generateContent", translateRequest(req))
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

	var resp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, provider.MalformedResponseError(c.cfg.Name, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, provider.MalformedResponseError(c.cfg.Name, fmt.Errorf("response has no candidates"))
	}

	text, thought := splitParts(resp.Candidates[0])
	res := &provider.Result{
		Text:      text,
		Reasoning: thought,
		Model:     resp.ModelVersion,
	}
	if resp.UsageMetadata != nil {
		res.Usage = provider.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		}
	}
	return res, nil
}

// GenerateStream calls models/{model}:streamGenerateContent?alt=sse.
func (c *Client) GenerateStream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	httpReq, err := c.newRequest(ctx, req.Model, ":streamGenerateContent?alt=sse", translateRequest(req))
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

// Embed calls models/{model}:embedContent for a single text.
func (c *Client) Embed(ctx context.Context, req *provider.EmbedRequest) (*provider.Embedding, error) {
	httpReq, err := c.newRequest(ctx, req.Model, ":embedContent", embedRequest{
		Model:   "models/" + req.Model,
		Content: content{Parts: []part{{Text: req.Text}}},
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

	var resp embedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, provider.MalformedResponseError(c.cfg.Name, err)
	}
	return &provider.Embedding{Vector: resp.Embedding.Values, Model: req.Model}, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.clients.Default.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, model, method string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, api.NewInternalError("failed to marshal upstream request", err)
	}

	endpoint := c.cfg.BaseURL + "/models/" + url.PathEscape(model) + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewInternalError("failed to create upstream request", err)
	}
	debug.Log("providers", "request", "provider", c.cfg.Name, "url", httpReq.URL.String())
	debug.Trace("providers", "request body", "provider", c.cfg.Name, "body", string(body))

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)
	return httpReq, nil
}
