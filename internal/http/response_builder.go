package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"orcamento/internal/core"
	"orcamento/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. A body that fails to encode becomes a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	payload := []byte("{}")
	if b.body != nil {
		encoded, err := json.Marshal(b.body)
		if err != nil {
			b.statusCode = http.StatusInternalServerError
			encoded = []byte(`{"error":"failed to encode response"}`)
		}
		payload = encoded
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates an error response with {"error": message}.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// statusFor maps service and domain errors to HTTP status codes. Anything
// unrecognized is a 500 and its message is not sent to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrStaleSnapshot),
		errors.Is(err, core.ErrDuplicateRegistryEntry):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoIDs):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNoRegistry):
		return http.StatusNotImplemented
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidInstallments),
		errors.Is(err, core.ErrEmptyProject),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyRegistryName),
		errors.Is(err, core.ErrInvalidRegistryKind):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// ErrorFor builds the response for err.
func ErrorFor(err error) *JSONResponseBuilder {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		return InternalServerError()
	}
	return ErrorResponse(code, err.Error())
}
