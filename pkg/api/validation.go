package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Embedding input limits.
const (
	MaxEmbeddingInputs      = 100
	MaxEmbeddingInputLength = 10000
)

// EmbeddingResolver checks that a model name refers to a served embedding
// model. It returns an *APIError describing why the model cannot be used.
type EmbeddingResolver interface {
	CheckEmbedding(name string) error
}

// DecodeBody parses a request body into a RawBody. The body must be a single
// JSON object.
func DecodeBody(r io.Reader) (RawBody, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewValidationError(CodeInvalidBody, "", "Failed to read request body")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, NewValidationError(CodeInvalidBody, "", "Request body must be a JSON object")
	}

	var body RawBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, NewValidationError(CodeInvalidBody, "", "Invalid JSON in request body")
	}
	if body == nil {
		body = RawBody{}
	}
	return body, nil
}

// ValidateChat normalizes a /api/chat body. Messages whose content is blank
// are dropped; if none remain the request fails with no_valid_messages.
// Surviving content is forwarded exactly as sent.
func ValidateChat(body RawBody) (*ChatRequest, error) {
	model, err := requiredString(body, "model")
	if err != nil {
		return nil, err
	}

	raw, ok := body["messages"]
	if !ok || isNull(raw) {
		return nil, NewMissingFieldError("messages")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, NewValidationError(CodeInvalidType, "messages", "Field 'messages' must be an array")
	}
	if len(items) == 0 {
		return nil, NewValidationError(CodeEmptyInput, "messages", "Field 'messages' cannot be empty")
	}

	messages := make([]Message, 0, len(items))
	for i, item := range items {
		msg, err := decodeMessage(i, item)
		if err != nil {
			return nil, err
		}
		if isBlank(msg.Content) {
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return nil, NewNoValidMessagesError()
	}

	req := &ChatRequest{
		Endpoint: EndpointChat,
		Model:    model,
		Messages: messages,
	}
	if err := decodeCommon(body, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidateGenerate normalizes a /api/generate body into a single user
// message, preceded by a system message when "system" is set.
func ValidateGenerate(body RawBody) (*ChatRequest, error) {
	model, err := requiredString(body, "model")
	if err != nil {
		return nil, err
	}
	prompt, err := requiredString(body, "prompt")
	if err != nil {
		return nil, err
	}
	if isBlank(prompt) {
		return nil, NewNoValidMessagesError()
	}

	var messages []Message
	system, present, err := optionalString(body, "system")
	if err != nil {
		return nil, err
	}
	if present && !isBlank(system) {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})

	req := &ChatRequest{
		Endpoint: EndpointGenerate,
		Model:    model,
		Messages: messages,
	}
	if err := decodeCommon(body, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidateEmbedding normalizes a /api/embeddings body. Exactly one of
// "prompt" or "input" must be supplied. Only "prompt" yields a single-shape
// request; "input" always yields the batch shape, even for one element.
func ValidateEmbedding(body RawBody, models EmbeddingResolver) (*EmbeddingRequest, error) {
	model, err := requiredString(body, "model")
	if err != nil {
		return nil, err
	}
	if models != nil {
		if err := models.CheckEmbedding(model); err != nil {
			return nil, err
		}
	}

	promptRaw, hasPrompt := body["prompt"]
	inputRaw, hasInput := body["input"]
	hasPrompt = hasPrompt && !isNull(promptRaw)
	hasInput = hasInput && !isNull(inputRaw)

	req := &EmbeddingRequest{Model: model}
	switch {
	case hasPrompt && hasInput:
		return nil, NewValidationError(CodeConflictingInput, "input",
			"Fields 'prompt' and 'input' cannot both be provided")

	case hasPrompt:
		var prompt string
		if err := json.Unmarshal(promptRaw, &prompt); err != nil {
			return nil, NewValidationError(CodeInvalidType, "prompt", "Field 'prompt' must be a string")
		}
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			return nil, NewValidationError(CodeEmptyInput, "prompt", "Field 'prompt' cannot be empty")
		}
		req.Inputs = []string{prompt}
		req.Single = true

	case hasInput:
		inputs, err := decodeInput(inputRaw)
		if err != nil {
			return nil, err
		}
		req.Inputs = inputs

	default:
		return nil, NewValidationError(CodeMissingInput, "input", "Missing required field: prompt or input")
	}

	for i, text := range req.Inputs {
		if utf8.RuneCountInString(text) > MaxEmbeddingInputLength {
			param := "input"
			if req.Single {
				param = "prompt"
			}
			return nil, NewValidationError(CodeInputTooLong, param,
				fmt.Sprintf("Input at index %d exceeds maximum length of %d characters", i, MaxEmbeddingInputLength))
		}
	}
	return req, nil
}

// NewNoValidMessagesError reports a conversation with no usable content.
func NewNoValidMessagesError() *APIError {
	return NewValidationError(CodeNoValidMessages, "messages",
		"No valid messages provided: all messages have empty content")
}

func decodeInput(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		single = strings.TrimSpace(single)
		if single == "" {
			return nil, NewValidationError(CodeEmptyInput, "input", "Field 'input' cannot be empty")
		}
		return []string{single}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, NewValidationError(CodeInvalidType, "input",
			"Field 'input' must be a string or an array of strings")
	}
	if len(items) == 0 {
		return nil, NewValidationError(CodeEmptyInput, "input", "Field 'input' cannot be empty")
	}
	if len(items) > MaxEmbeddingInputs {
		return nil, NewValidationError(CodeTooManyInputs, "input",
			fmt.Sprintf("Too many inputs: %d. Maximum allowed is %d", len(items), MaxEmbeddingInputs))
	}

	inputs := make([]string, len(items))
	for i, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err != nil || isNull(item) {
			return nil, NewValidationError(CodeInvalidType, "input",
				fmt.Sprintf("Input at index %d must be a string", i))
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, NewValidationError(CodeEmptyInput, "input",
				fmt.Sprintf("Input at index %d cannot be empty", i))
		}
		inputs[i] = text
	}
	return inputs, nil
}

func decodeMessage(i int, raw json.RawMessage) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Message{}, NewValidationError(CodeInvalidType, "messages",
			fmt.Sprintf("Message at index %d must be an object", i))
	}

	var role string
	if r, ok := fields["role"]; ok {
		if err := json.Unmarshal(r, &role); err != nil {
			return Message{}, NewValidationError(CodeInvalidType, "messages",
				fmt.Sprintf("Message at index %d: field 'role' must be a string", i))
		}
	}
	switch Role(role) {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return Message{}, NewValidationError(CodeInvalidType, "messages",
			fmt.Sprintf("Message at index %d has invalid role '%s'", i, role))
	}

	var content string
	if c, ok := fields["content"]; ok && !isNull(c) {
		if err := json.Unmarshal(c, &content); err != nil {
			return Message{}, NewValidationError(CodeInvalidType, "messages",
				fmt.Sprintf("Message at index %d: field 'content' must be a string", i))
		}
	}
	return Message{Role: Role(role), Content: content}, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// decodeCommon reads the "options" and "stream" fields shared by chat and
// generate. Stream defaults to true when absent.
func decodeCommon(body RawBody, req *ChatRequest) error {
	req.Stream = true
	if raw, ok := body["stream"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &req.Stream); err != nil {
			return NewValidationError(CodeInvalidType, "stream", "Field 'stream' must be a boolean")
		}
	}
	if raw, ok := body["options"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &req.Options); err != nil {
			return NewValidationError(CodeInvalidType, "options", "Field 'options' must be an object")
		}
	}
	return nil
}

func requiredString(body RawBody, field string) (string, error) {
	value, present, err := optionalString(body, field)
	if err != nil {
		return "", err
	}
	if !present || strings.TrimSpace(value) == "" {
		return "", NewMissingFieldError(field)
	}
	return value, nil
}

func optionalString(body RawBody, field string) (string, bool, error) {
	raw, ok := body[field]
	if !ok || isNull(raw) {
		return "", false, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", true, NewValidationError(CodeInvalidType, field,
			fmt.Sprintf("Field '%s' must be a string", field))
	}
	return value, true, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
