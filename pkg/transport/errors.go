package transport

import (
	"encoding/json"
	"net/http"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/observability"
)

// Client-facing messages for errors whose details must not leak.
const (
	MessageRateLimited = "Rate limit exceeded. Please try again later."
	MessageUnavailable = "Service temporarily unavailable. Please try again later."
	MessageInternal    = "Internal server error"
)

// Classify maps an error to the HTTP status and the message that may be
// shown to the client. Validation and auth messages are passed through
// verbatim; everything else is replaced by a fixed message.
func Classify(err error) (int, string) {
	apiErr := api.AsAPIError(err)
	switch apiErr.Kind {
	case api.KindValidation:
		return http.StatusBadRequest, apiErr.Message
	case api.KindAuth:
		return http.StatusUnauthorized, apiErr.Message
	case api.KindRateLimit:
		return http.StatusTooManyRequests, MessageRateLimited
	case api.KindUnavailable:
		return http.StatusServiceUnavailable, MessageUnavailable
	default:
		return http.StatusInternalServerError, MessageInternal
	}
}

// Report classifies err and counts it by kind. Call it exactly once for
// every error that reaches a client, whether as a JSON response or as an
// in-band stream chunk.
func Report(err error) (int, string) {
	observability.ErrorsTotal.WithLabelValues(string(api.AsAPIError(err).Kind)).Inc()
	return Classify(err)
}

// WriteErrorResponse writes the {"error": message} envelope with the given
// status code.
func WriteErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: message})
}

// WriteError reports err and writes it as a JSON error response.
func WriteError(w http.ResponseWriter, err error) {
	status, message := Report(err)
	WriteErrorResponse(w, status, message)
}
