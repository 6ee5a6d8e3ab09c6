// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/trace"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response. A nil payload or 204 writes no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.payload == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// writeJSON is the common case of NewJSONResponse().Status(status).Body(v).Write(w).
func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

// ErrorResponse creates a standard {"error": msg} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(map[string]any{"error": message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// PayloadTooLargeError creates a 413 Request Entity Too Large error response.
func PayloadTooLargeError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusRequestEntityTooLarge, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed")
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case core.IsValidationError(err):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case core.IsConflictError(err):
		return http.StatusConflict, applog.ErrorTypeConflict
	case core.IsNotFoundError(err):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// writeError renders err as JSON. Domain errors keep their message;
// anything else is logged and reported as a generic 500 carrying the
// request id.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, errorType := statusFor(err)
	if status == http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, errorType, operation, nil)
		body := map[string]string{"error": "internal server error"}
		if id := trace.GetRequestID(r.Context()); id != "" {
			body["request_id"] = id
		}
		NewJSONResponse().Status(status).Body(body).Write(w)
		return
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
		applog.FieldOperation, operation,
		applog.FieldErrorType, errorType,
		applog.FieldError, err.Error())
	ErrorResponse(status, domainMessage(err)).Write(w)
}

// domainMessage strips the "verb noun: " wrapping services add, leaving
// the message of the innermost domain error.
func domainMessage(err error) string {
	var (
		v *core.ValidationError
		c *core.ConflictError
		n *core.NotFoundError
	)
	switch {
	case errors.As(err, &v):
		return v.Error()
	case errors.As(err, &c):
		return c.Error()
	case errors.As(err, &n):
		return n.Error()
	}
	return err.Error()
}
