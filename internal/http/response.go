// Package http serves the ledger over a JSON API.
//
// This file implements the builder used for every JSON response so the
// {message, data} and {error, details} envelopes stay uniform.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
)

// envelope is the body of every JSON response.
type envelope struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// fieldError is the details payload of a validation failure.
type fieldError struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       envelope
	hasData    bool
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

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.body.Message = msg
	return b
}

// Data sets the payload. It is always emitted, even when empty.
func (b *JSONResponseBuilder) Data(data any) *JSONResponseBuilder {
	b.body.Data = data
	b.hasData = true
	return b
}

func (b *JSONResponseBuilder) Error(msg string) *JSONResponseBuilder {
	b.body.Error = msg
	return b
}

func (b *JSONResponseBuilder) Details(details any) *JSONResponseBuilder {
	b.body.Details = details
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)

	var payload any = b.body
	if b.hasData {
		// omitempty would drop an empty list or a zero summary
		payload = struct {
			Message string `json:"message,omitempty"`
			Data    any    `json:"data"`
		}{b.body.Message, b.body.Data}
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// DataResponse is the success envelope.
func DataResponse(status int, message string, data any) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Message(message).Data(data)
}

// ErrorResponse is the failure envelope.
func ErrorResponse(status int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Error(message)
}

// MethodNotAllowedError creates a 405 response advertising allowed methods.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Header("Allow", allowedMethods)
}

// errorResponseFor maps an error onto its status and envelope. Validation
// details are passed through verbatim; anything unknown is a 500 with a
// generic message.
func errorResponseFor(err error) *JSONResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return ErrorResponse(http.StatusBadRequest, "invalid request").
			Details(fieldError{Field: ve.Field, Reason: ve.Err.Error()})
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, "transaction not found")
	case errors.Is(err, errBodyTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusInternalServerError, "request timed out")
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal server error")
	}
}

// writeError logs and writes err. Only server-side failures are logged at
// error level.
func writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	resp := errorResponseFor(err)
	logger := log.FromContext(ctx)

	fields := log.NewFields().WithOperation(op).WithError(err)
	switch {
	case resp.statusCode == http.StatusBadRequest, resp.statusCode == http.StatusRequestEntityTooLarge:
		logger.LogFields(ctx, log.HTTPStatusLevel(resp.statusCode), "Rejected request", fields.WithErrorType(log.ErrorTypeValidation))
	case resp.statusCode == http.StatusNotFound:
		logger.LogFields(ctx, log.HTTPStatusLevel(resp.statusCode), "Transaction not found", fields.WithErrorType(log.ErrorTypeNotFound))
	case errors.Is(err, context.DeadlineExceeded):
		logger.LogFields(ctx, log.HTTPStatusLevel(resp.statusCode), "Request timed out", fields.WithErrorType(log.ErrorTypeTimeout))
	default:
		logger.LogFields(ctx, log.HTTPStatusLevel(resp.statusCode), "Request failed", fields.WithErrorType(log.ErrorTypeInternal))
	}

	resp.Write(w)
}
