package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhuss/ollabridge/pkg/api"
)

// maxErrorBody bounds how much of an upstream error body is read.
const maxErrorBody = 4096

// MessageExtractor pulls a human-readable message out of an upstream error
// body. It returns "" when the body has no recognizable message.
type MessageExtractor func(body []byte) string

// MapStatus assigns an error kind to a non-2xx upstream status. detail is
// the upstream's own message and is only surfaced to clients for request
// rejections; rate limit and availability failures keep it in Cause.
func MapStatus(provider string, status int, detail string) *api.APIError {
	cause := fmt.Errorf("%s: HTTP %d: %s", provider, status, detail)

	switch {
	case status == http.StatusBadRequest || status == http.StatusNotFound ||
		status == http.StatusUnprocessableEntity:
		if detail == "" {
			detail = fmt.Sprintf("HTTP %d", status)
		}
		return &api.APIError{
			Kind:    api.KindValidation,
			Code:    api.CodeUpstreamRejected,
			Message: fmt.Sprintf("Provider '%s' rejected the request: %s", provider, detail),
			Cause:   cause,
		}

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &api.APIError{
			Kind:    api.KindAuth,
			Code:    api.CodeUpstreamAuth,
			Message: fmt.Sprintf("Provider '%s' rejected the configured credentials", provider),
			Cause:   cause,
		}

	case status == http.StatusTooManyRequests:
		return api.NewRateLimitError(
			fmt.Sprintf("Provider '%s' rate limit exceeded", provider), cause)

	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return api.NewUnavailableError(api.CodeUpstreamUnavailable,
			fmt.Sprintf("Provider '%s' is unavailable (HTTP %d)", provider, status), cause)

	default:
		return api.NewInternalError(
			fmt.Sprintf("unexpected response from provider '%s' (HTTP %d)", provider, status), cause)
	}
}

// MapHTTPError reads a bounded part of resp.Body and maps the status.
func MapHTTPError(provider string, resp *http.Response, extract MessageExtractor) *api.APIError {
	var detail string
	if resp.Body != nil {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if extract != nil {
			detail = extract(data)
		}
		if detail == "" {
			detail = strings.TrimSpace(string(data))
		}
	}
	return MapStatus(provider, resp.StatusCode, detail)
}

// MapNetworkError converts a transport failure (connection refused, timeout,
// DNS failure, cancellation) into an unavailable error.
func MapNetworkError(provider string, err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewUnavailableError(api.CodeUpstreamUnavailable,
		fmt.Sprintf("Provider '%s' connection failed", provider), err)
}

// MapStreamError classifies a failure the upstream reported inside an open
// stream. status is the HTTP status the upstream uses for the same error
// class outside a stream, or 0 when the class is not recognized.
func MapStreamError(provider string, status int, detail string) *api.APIError {
	if status == 0 {
		return api.NewUnavailableError(api.CodeUpstreamUnavailable,
			fmt.Sprintf("Provider '%s' failed during streaming", provider),
			fmt.Errorf("%s: stream error: %s", provider, detail))
	}
	return MapStatus(provider, status, detail)
}

// MalformedResponseError reports an upstream payload that could not be
// decoded or lacked required fields.
func MalformedResponseError(provider string, err error) *api.APIError {
	return api.NewUnavailableError(api.CodeUpstreamUnavailable,
		fmt.Sprintf("Provider '%s' returned a malformed response", provider), err)
}

// Truncate limits a string to maxLen bytes for log output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
