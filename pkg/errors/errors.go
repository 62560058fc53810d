// Package errors provides the coded errors shared by pkgcheck's loaders,
// stores and front ends.
//
// Codes are coarse and machine-readable. Loaders tag malformed input with
// an INVALID_* code; the HTTP server maps codes to status codes; the CLI
// prints [UserMessage] for them.
//
// Input errors fail the ingestion of one record only. Loaders wrap them in
// a [RecordError] naming the record and hand them back for logging; they
// never abort a load.
//
//	err := errors.New(errors.ErrCodeInvalidFMRI, "empty package name in %q", raw)
//	if errors.Is(err, errors.ErrCodeInvalidFMRI) {
//	    // skip the record
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an [Error].
type Code string

const (
	// Malformed input.
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidFMRI      Code = "INVALID_FMRI"
	ErrCodeInvalidCatalog   Code = "INVALID_CATALOG"
	ErrCodeInvalidComponent Code = "INVALID_COMPONENT"
	ErrCodeInvalidHistory   Code = "INVALID_HISTORY"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"

	// Missing resources.
	ErrCodeSnapshotNotFound Code = "SNAPSHOT_NOT_FOUND"
	ErrCodeFileNotFound     Code = "FILE_NOT_FOUND"

	// Failing collaborators.
	ErrCodeNetwork    Code = "NETWORK_ERROR"
	ErrCodeTimeout    Code = "TIMEOUT"
	ErrCodeBuildQuery Code = "BUILD_QUERY_FAILED"
	ErrCodeStorage    Code = "STORAGE_ERROR"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error caused by cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the first [*Error] in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode returns the code of the first [*Error] in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of a coded error without its code and
// cause, or err.Error() for other errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps err to a response status: 400 for invalid input, 404 for
// missing resources, 502/504 for failing collaborators and 500 otherwise.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFMRI, ErrCodeInvalidCatalog, ErrCodeInvalidComponent,
		ErrCodeInvalidHistory, ErrCodeInvalidConfig, ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case ErrCodeSnapshotNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeNetwork, ErrCodeBuildQuery, ErrCodeStorage:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// RecordError ties an input error to the record that produced it, so a
// loader can report "line 12: ..." while continuing with the next record.
type RecordError struct {
	Source string // file or feed name
	Record string // line number, package name or other locator
	Err    error
}

func (e *RecordError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Record, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Record, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
