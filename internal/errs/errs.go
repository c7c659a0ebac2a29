// Package errs defines the LogQL error taxonomy and the single error type
// threaded through every pipeline stage (lexer, parser, analyzer, planner,
// evaluator, source reader).
package errs

import "fmt"

// Code identifies which stage of the pipeline failed, per the error
// envelope taxonomy.
type Code string

const (
	Parse    Code = "E_PARSE"
	Semantic Code = "E_SEMANTIC"
	IO       Code = "E_IO"
	Runtime  Code = "E_RUNTIME"
)

// Error is the single error type every LogQL component returns. It carries
// a taxonomy code and wraps an optional underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with a formatted message and no wrapped cause.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that carries cause as its Unwrap target.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Parsef is a shorthand for New(Parse, ...).
func Parsef(format string, args ...any) *Error { return New(Parse, format, args...) }

// Semanticf is a shorthand for New(Semantic, ...).
func Semanticf(format string, args ...any) *Error { return New(Semantic, format, args...) }

// IOf is a shorthand for New(IO, ...).
func IOf(format string, args ...any) *Error { return New(IO, format, args...) }

// Runtimef is a shorthand for New(Runtime, ...).
func Runtimef(format string, args ...any) *Error { return New(Runtime, format, args...) }
