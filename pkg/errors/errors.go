// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for tsera.
// Package-specific error types (graph, hash, apply, state) report their code
// through the Coded interface so the CLI can classify any error in a chain.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies tsera errors for reporting and exit handling.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeGraphValidation indicates a node or edge references something that
	// does not exist in the graph being built.
	CodeGraphValidation ErrorCode = "GRAPH_VALIDATION"

	// CodeCycle indicates the dependency relation could not be ordered.
	CodeCycle ErrorCode = "CYCLE"

	// CodeHash indicates a payload that cannot be hashed deterministically.
	CodeHash ErrorCode = "HASH_ERROR"

	// CodeApplyIO indicates a file write or delete failed during apply.
	CodeApplyIO ErrorCode = "APPLY_IO"

	// CodeStateRead indicates a persisted state file exists but is corrupt.
	CodeStateRead ErrorCode = "STATE_READ"

	// CodeConfig indicates the configuration could not be loaded or validated.
	CodeConfig ErrorCode = "CONFIG_ERROR"
)

// Coded is implemented by errors that carry their own classification.
type Coded interface {
	ErrorCode() ErrorCode
}

// Error is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode implements Coded.
func (e *Error) ErrorCode() ErrorCode {
	return e.Code
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Message string                 `json:"message"`
		Code    string                 `json:"code"`
		Err     string                 `json:"error,omitempty"`
		Context map[string]interface{} `json:"context,omitempty"`
	}{
		Message: e.Error(),
		Code:    string(e.Code),
		Err:     cause,
		Context: e.Context,
	})
}

// New creates a new Error with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the code of the first Coded error in err's chain, or
// CodeInternal when none is found.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var coded Coded
	if stderrors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return CodeInternal
}

// As converts err to an *Error. Errors that already are one are returned
// as-is; anything else is wrapped with the code found by CodeOf.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if stderrors.As(err, &te) {
		return te
	}
	return New(CodeOf(err), err.Error(), err)
}
