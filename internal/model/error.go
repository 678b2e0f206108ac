package model

import (
	"errors"
	"strings"
)

var ErrorInvalidCredentials = errors.New("invalid credentials")
var ErrorUserNotFound = errors.New("user not found")
var ErrorStoreUnavailable = errors.New("store unavailable")
var ErrorInvalidToken = errors.New("invalid token")
var ErrorCacheClosed = errors.New("presence cache closed")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every schema constraint a record violated.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "user validation failed: " + strings.Join(parts, ", ")
}
