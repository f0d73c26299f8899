package openaicompat

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// extractErrorMessage parses an OpenAI-style error body and returns its
// message, or "" if the body has another shape.
func extractErrorMessage(body []byte) string {
	var errResp chatErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return ""
}

// errorStatus maps an error object received inside a stream to the HTTP
// status the upstream would have answered with. A numeric code is taken as
// the status itself; otherwise the code and then the type are looked up.
func errorStatus(body *chatErrorBody) int {
	switch code := body.Code.(type) {
	case float64:
		if code >= 400 && code < 600 {
			return int(code)
		}
	case string:
		if n, err := strconv.Atoi(code); err == nil && n >= 400 && n < 600 {
			return n
		}
		if status, ok := errorClasses[code]; ok {
			return status
		}
	}
	return errorClasses[body.Type]
}

var errorClasses = map[string]int{
	"invalid_request_error": http.StatusBadRequest,
	"invalid_api_key":       http.StatusUnauthorized,
	"authentication_error":  http.StatusUnauthorized,
	"permission_error":      http.StatusForbidden,
	"rate_limit_exceeded":   http.StatusTooManyRequests,
	"rate_limit_error":      http.StatusTooManyRequests,
	"insufficient_quota":    http.StatusTooManyRequests,
	"server_error":          http.StatusInternalServerError,
	"service_unavailable":   http.StatusServiceUnavailable,
}
