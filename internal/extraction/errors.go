package extraction

import (
	"errors"
	"fmt"
)

// Code classifies an extraction failure.
type Code string

const (
	CodeSourceNotFound  Code = "source-not-found"
	CodeMissingNode     Code = "missing-node"
	CodeInvalidNumber   Code = "invalid-number"
	CodeMalformedSource Code = "malformed-source"
	CodeUnknownVariant  Code = "unknown-variant"
	CodeCancelled       Code = "cancelled"
)

// Sentinels matched by errors.Is against any ExtractionError with the same code.
var (
	ErrSourceNotFound  = &ExtractionError{Code: CodeSourceNotFound}
	ErrMissingNode     = &ExtractionError{Code: CodeMissingNode}
	ErrInvalidNumber   = &ExtractionError{Code: CodeInvalidNumber}
	ErrMalformedSource = &ExtractionError{Code: CodeMalformedSource}
	ErrUnknownVariant  = &ExtractionError{Code: CodeUnknownVariant}
	ErrCancelled       = &ExtractionError{Code: CodeCancelled}
)

// ExtractionError is a fatal failure for one source. No partial result accompanies it.
type ExtractionError struct {
	Code Code
	Path string
	Node string
	Err  error
}

func (e *ExtractionError) Error() string {
	msg := "extraction: " + string(e.Code)
	if e.Node != "" {
		msg += " " + e.Node
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is matches on code so callers can use the package sentinels.
func (e *ExtractionError) Is(target error) bool {
	var other *ExtractionError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// CodeOf returns the code of an extraction error, or "" for other errors.
func CodeOf(err error) Code {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return extractionErr.Code
	}
	return ""
}

func newError(code Code, path, node string, err error) *ExtractionError {
	return &ExtractionError{Code: code, Path: path, Node: node, Err: err}
}
