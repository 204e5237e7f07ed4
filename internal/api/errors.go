package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error classification codes.
const (
	CodeTransport    = "transport"
	CodeUnauthorized = "unauthorized"
	CodeValidation   = "validation"
	CodeServer       = "server"
	CodeUnknown      = "unknown"
)

// Error is the typed failure returned for every unsuccessful call. Detail
// carries the user-displayable message extracted from the server payload when
// one was present.
type Error struct {
	Code       string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %s, status: %d, detail: %q, error: %v", e.Code, e.StatusCode, e.Detail, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the server-provided detail or the given fallback when
// the server said nothing displayable.
func (e *Error) UserMessage(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

// errorPayload covers both server shapes: DRF-style {"detail": "..."} and
// {"error": "...", "message": "..."}.
type errorPayload struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// newStatusError classifies a non-2xx response and extracts the display
// message from its body. Malformed bodies degrade to an empty detail.
func newStatusError(statusCode int, body []byte) *Error {
	var payload errorPayload
	_ = json.Unmarshal(body, &payload)

	detail := payload.Detail
	if detail == "" {
		detail = payload.Message
	}

	code := CodeUnknown
	switch {
	case statusCode == http.StatusUnauthorized:
		code = CodeUnauthorized
	case statusCode >= 400 && statusCode < 500:
		code = CodeValidation
	case statusCode >= 500:
		code = CodeServer
	}

	return &Error{
		Code:       code,
		StatusCode: statusCode,
		Detail:     detail,
		Err:        fmt.Errorf("unexpected status code %d", statusCode),
	}
}

func newTransportError(err error) *Error {
	return &Error{
		Code: CodeTransport,
		Err:  fmt.Errorf("failed to send request: %w", err),
	}
}
