// Package apierrors defines the error types surfaced by the deskline client
// and the rules for turning them into user-facing messages.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// InvalidResponseMessage is shown for bodies that are not JSON or have the
// wrong shape.
const InvalidResponseMessage = "invalid response"

// APIError represents an error reported by the ticket backend
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("API error (%d): %s - %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// FromResponse builds an APIError from a non-2xx response body. The message
// is taken from a nested error.message when the backend sends one, then from
// a top-level message, then from a string error field, and finally from the
// HTTP status line.
func FromResponse(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    "server replied: " + statusText(statusCode),
	}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Details = strings.TrimSpace(string(body))
		return apiErr
	}

	var nested struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	}
	var flat string
	switch {
	case len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "":
		apiErr.Message = nested.Message
		apiErr.Code = rawCode(nested.Code)
	case envelope.Message != "":
		apiErr.Message = envelope.Message
		apiErr.Code = rawCode(envelope.Code)
	case len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &flat) == nil && flat != "":
		apiErr.Message = flat
	}
	return apiErr
}

func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("%d %s", code, text)
	}
	return fmt.Sprintf("%d", code)
}

// IsAPIError checks if an error is an API error
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// ValidationError is a client-side check that failed before any request.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// NetworkError represents a network-related error
type NetworkError struct {
	Operation string `json:"operation"`
	URL       string `json:"url"`
	Err       error  `json:"error"`
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s to %s: %v", e.Operation, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// InvalidResponseError marks a body that could not be used: not JSON, or
// JSON of the wrong shape.
type InvalidResponseError struct {
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

func (e *InvalidResponseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s during %s", InvalidResponseMessage, e.Operation)
	}
	return fmt.Sprintf("%s during %s: %s", InvalidResponseMessage, e.Operation, e.Reason)
}

// ConfigError is a setting that makes the client unusable.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Message renders err the way it is shown to a user. Transport errors keep
// the underlying error text verbatim, server errors use the extracted
// message, shape errors collapse to a generic text.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var invalid *InvalidResponseError
	if errors.As(err, &invalid) {
		return InvalidResponseMessage
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) && netErr.Err != nil {
		return netErr.Err.Error()
	}
	return err.Error()
}
