package provider

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultTimeout bounds non-streaming upstream calls when none is configured.
const DefaultTimeout = 120 * time.Second

// HTTPConfig configures the upstream HTTP clients.
type HTTPConfig struct {
	// Timeout bounds a whole non-streaming request. Streaming requests are
	// bounded by their context only.
	Timeout time.Duration

	// MaxRetries is the number of retries for connection errors, 429 and
	// 5xx responses other than 500. Zero disables retries.
	MaxRetries int

	// RetryWaitMax caps the backoff between retries.
	RetryWaitMax time.Duration

	Logger *slog.Logger
}

// HTTPClients holds the two clients an adapter uses. Both share one
// connection pool.
type HTTPClients struct {
	// Default is used for non-streaming calls and has a timeout.
	Default *http.Client

	// Streaming has no client timeout because a stream can legitimately
	// outlast any fixed deadline.
	Streaming *http.Client
}

// NewHTTPClients builds retrying HTTP clients for upstream calls.
func NewHTTPClients(cfg HTTPConfig) HTTPClients {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryWaitMax == 0 {
		cfg.RetryWaitMax = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	base := newRetryClient(cfg)
	base.HTTPClient.Timeout = cfg.Timeout

	streaming := newRetryClient(cfg)
	streaming.HTTPClient = &http.Client{Transport: base.HTTPClient.Transport}

	return HTTPClients{
		Default:   base.StandardClient(),
		Streaming: streaming.StandardClient(),
	}
}

func newRetryClient(cfg HTTPConfig) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.MaxRetries
	c.RetryWaitMax = cfg.RetryWaitMax
	c.CheckRetry = dontRetry500StatusPolicy(retryablehttp.DefaultRetryPolicy)
	// Return the last response instead of a synthetic "giving up" error so
	// status mapping still sees the upstream status code.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = retryLogger{cfg.Logger.With("component", "upstream-http")}
	return c
}

// dontRetry500StatusPolicy prevents retries on HTTP 500 and on cancelled
// contexts. Other decisions are delegated to policy.
func dontRetry500StatusPolicy(policy retryablehttp.CheckRetry) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if resp != nil && resp.StatusCode == http.StatusInternalServerError {
			return false, err
		}
		return policy(ctx, resp, err)
	}
}

// retryLogger adapts slog to retryablehttp.LeveledLogger. Per-request debug
// lines from the library are dropped.
type retryLogger struct {
	logger *slog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l retryLogger) Debug(string, ...interface{}) {}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
