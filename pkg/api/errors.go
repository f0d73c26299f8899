package api

import (
	"errors"
	"fmt"
)

// ErrorKind is the semantic class of a failure. Kinds are assigned where the
// failure is first understood (validation, registry lookup, upstream status
// mapping) and drive HTTP status selection.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindUnavailable ErrorKind = "unavailable"
	KindInternal    ErrorKind = "internal"
)

// Error codes identify the specific condition within a kind.
const (
	CodeMissingField             = "missing_field"
	CodeInvalidType              = "invalid_type"
	CodeInvalidBody              = "invalid_body"
	CodeNoValidMessages          = "no_valid_messages"
	CodeMissingInput             = "missing_input"
	CodeEmptyInput               = "empty_input"
	CodeTooManyInputs            = "too_many_inputs"
	CodeInputTooLong             = "input_too_long"
	CodeConflictingInput         = "conflicting_input"
	CodeModelNotFound            = "model_not_found"
	CodeWrongKind                = "wrong_kind"
	CodeNotSupported             = "not_supported"
	CodeProviderUnavailable      = "provider_unavailable"
	CodeUpstreamAuth             = "upstream_auth"
	CodeUnauthenticated          = "unauthenticated"
	CodeForbidden                = "forbidden"
	CodeUpstreamRejected         = "upstream_rejected"
	CodeRateLimited              = "rate_limited"
	CodeUpstreamUnavailable      = "upstream_unavailable"
	CodeInvalidUpstreamEmbedding = "invalid_upstream_embedding"
	CodeInvalidEnvelope          = "invalid_envelope"
)

// APIError is a structured error with a semantic kind, a machine-readable
// code, the offending request parameter (if any) and a message. Cause holds
// the underlying error for logging; it is never sent to clients.
type APIError struct {
	Kind    ErrorKind
	Code    string
	Param   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Param != "" {
		msg += fmt.Sprintf(" (param: %s)", e.Param)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// ErrorResponse is the uniform error envelope written to clients.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AsAPIError extracts an *APIError from err. Errors that carry no kind are
// wrapped as internal errors.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Kind: KindInternal, Message: err.Error(), Cause: err}
}

// NewValidationError creates an error for malformed, missing or oversized
// input, or an unknown or wrong-kind model.
func NewValidationError(code, param, message string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Code:    code,
		Param:   param,
		Message: message,
	}
}

// NewMissingFieldError reports a required request field that is absent.
func NewMissingFieldError(field string) *APIError {
	return NewValidationError(CodeMissingField, field, "Missing required field: "+field)
}

// NewAuthError creates an error for missing or rejected credentials.
func NewAuthError(code, message string) *APIError {
	return &APIError{
		Kind:    KindAuth,
		Code:    code,
		Message: message,
	}
}

// NewProviderUnavailableError reports a provider that was never credentialed.
func NewProviderUnavailableError(provider string) *APIError {
	return NewAuthError(CodeProviderUnavailable,
		fmt.Sprintf("Provider '%s' is not available: no credentials configured", provider))
}

// NewNotSupportedError reports a capability the resolved provider lacks.
func NewNotSupportedError(provider, capability string) *APIError {
	return NewValidationError(CodeNotSupported, "",
		fmt.Sprintf("Provider '%s' does not support %s", provider, capability))
}

// NewRateLimitError creates an error for upstream rate limiting or quota.
func NewRateLimitError(message string, cause error) *APIError {
	return &APIError{
		Kind:    KindRateLimit,
		Code:    CodeRateLimited,
		Message: message,
		Cause:   cause,
	}
}

// NewUnavailableError creates an error for upstream timeouts, 5xx responses
// and malformed upstream payloads.
func NewUnavailableError(code, message string, cause error) *APIError {
	return &APIError{
		Kind:    KindUnavailable,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an error for unanticipated failures.
func NewInternalError(message string, cause error) *APIError {
	return &APIError{
		Kind:    KindInternal,
		Message: message,
		Cause:   cause,
	}
}
