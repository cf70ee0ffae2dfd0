// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/tsera-dev/tsera/pkg/errors"
)

// CLIError wraps a tsera error with CLI-specific formatting and hints.
type CLIError struct {
	Err  *errors.Error
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(e *errors.Error, hint string) *CLIError {
	return &CLIError{Err: e, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	msg := e.Err.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the wrapped error.
func (e *CLIError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// PrintError writes the error to w, as JSON when asJSON is set.
func (e *CLIError) PrintError(w io.Writer, asJSON bool) {
	if e.Err == nil {
		fmt.Fprintln(w, "Error: unknown error")
		return
	}
	if asJSON {
		payload, _ := json.Marshal(map[string]any{
			"error": map[string]any{
				"code":    e.Err.Code,
				"message": e.Err.Message,
				"cause":   causeOf(e.Err),
				"hint":    e.Hint,
				"context": e.Err.Context,
			},
		})
		fmt.Fprintln(w, string(payload))
		return
	}

	fmt.Fprintf(w, "Error [%s]: %s\n", FormatErrorCode(e.Err.Code), e.Err.Message)
	if cause := causeOf(e.Err); cause != "" {
		fmt.Fprintf(w, "  Cause: %s\n", cause)
	}
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

func causeOf(e *errors.Error) string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	e := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg)
	return NewCLIError(e, "run 'tsera help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	e := errors.New(errors.CodeConfig, "configuration error", err).
		WithContext("config_path", configPath)
	hint := "check your configuration file syntax"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(e, hint)
}

// WrapError classifies err by its code and attaches the matching hint.
func WrapError(err error) *CLIError {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		return cliErr
	}
	var typed *errors.Error
	if !stderrors.As(err, &typed) {
		typed = errors.New(errors.CodeOf(err), err.Error(), nil)
	}
	return NewCLIError(typed, hintFor(errors.CodeOf(err)))
}

func hintFor(code errors.ErrorCode) string {
	switch code {
	case errors.CodeConfig:
		return "check tsera.config.yaml or run 'tsera validate'"
	case errors.CodeInvalidInput:
		return "fix the entity definition named in the message"
	case errors.CodeNotFound:
		return "run 'tsera init' or pass --project <dir>"
	case errors.CodeGraphValidation:
		return "an artifact depends on a node that was not generated; check the artifacts.* toggles"
	case errors.CodeCycle:
		return "remove the circular dependency between the listed nodes"
	case errors.CodeHash:
		return "entity defaults must be plain JSON values"
	case errors.CodeApplyIO:
		return "check permissions and free space, then run 'tsera generate' again; the manifest was not changed"
	case errors.CodeStateRead:
		return "the manifest under .tsera/ is corrupt; delete it to regenerate everything"
	default:
		return ""
	}
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeInvalidInput:
		return "Invalid Input"
	case errors.CodeNotFound:
		return "Not Found"
	case errors.CodeGraphValidation:
		return "Graph Validation"
	case errors.CodeCycle:
		return "Dependency Cycle"
	case errors.CodeHash:
		return "Hash Error"
	case errors.CodeApplyIO:
		return "Write Failed"
	case errors.CodeStateRead:
		return "Corrupt State"
	case errors.CodeConfig:
		return "Configuration"
	default:
		return string(code)
	}
}

func exitWithError(err error, asJSON bool) {
	WrapError(err).PrintError(os.Stderr, asJSON)
	os.Exit(1)
}
