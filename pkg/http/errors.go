package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError("ERR_RATE_LIMITED", "", message, http.StatusTooManyRequests)
}

// UpstreamError creates a 502 error for failing data providers.
func UpstreamError(message string) *AppError {
	return NewAppError("ERR_UPSTREAM", "", message, http.StatusBadGateway)
}

func ServiceUnavailableError(code, message string) *AppError {
	return NewAppError(code, "", message, http.StatusServiceUnavailable)
}

func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// ErrorRule maps errors matching Target (errors.Is) onto an AppError.
// An empty Message uses the matched error's text.
type ErrorRule struct {
	Target  error
	Code    string
	Field   string
	Message string
	Status  int
}

// ErrorMap resolves errors against its rules in order.
type ErrorMap []ErrorRule

// Resolve returns err itself when it already is an AppError, the first
// matching rule otherwise, and a 500 as the fallback. A deadline hit
// counts as an upstream failure.
func (m ErrorMap) Resolve(err error, fallback string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, r := range m {
		if !errors.Is(err, r.Target) {
			continue
		}
		msg := r.Message
		if msg == "" {
			msg = err.Error()
		}
		return NewAppError(r.Code, r.Field, msg, r.Status).WithError(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return UpstreamError("upstream timed out").WithError(err)
	}
	return InternalError(fallback).WithError(err)
}
