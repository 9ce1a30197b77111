package fixtures

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fixture (or the whole suite) could not pass.
type ErrorKind string

const (
	// DiscoveryError means the discovery root could not be read. It is the only suite-fatal kind.
	DiscoveryError ErrorKind = "DiscoveryError"
	// ParseError means a fixture file is not valid JSON.
	ParseError ErrorKind = "ParseError"
	// SchemaError means a fixture file is valid JSON but does not describe a valid fixture.
	SchemaError ErrorKind = "SchemaError"
	// SetupFailure means a setup step exited non-zero.
	SetupFailure ErrorKind = "SetupFailure"
	// InvocationFailure means the tool under test could not be run or exited non-zero.
	InvocationFailure ErrorKind = "InvocationFailure"
	// ResultsError means the results artifact was missing or malformed.
	ResultsError ErrorKind = "ResultsError"
	// ExpectationMismatch means the report did not satisfy the fixture's expectations.
	ExpectationMismatch ErrorKind = "ExpectationMismatch"
	// TeardownFailure is a warning: a teardown step exited non-zero.
	TeardownFailure ErrorKind = "TeardownFailure"
	// CleanupWarning is a warning: a reported output could not be removed.
	CleanupWarning ErrorKind = "CleanupWarning"
)

// Error is the error type returned by every stage of the fixture pipeline.
type Error struct {
	Kind ErrorKind
	// Path is the fixture file, results artifact or output the error refers to
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
