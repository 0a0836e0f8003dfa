package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/macromover/internal/ir"
)

// Error is a run-aborting failure raised by the engine or one of its
// collaborators.
//
// Per-row insert failures are NOT Errors; they are reported in
// TierResult.Failures and the run continues.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Tier is the tier being reconciled when the error occurred, if any.
	Tier ir.Tier

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeEmptyValueSet indicates a lookup was built with no values.
	ErrCodeEmptyValueSet ErrorCode = "EMPTY_VALUE_SET"

	// ErrCodeRemoteQuery indicates the target rejected or failed a query.
	ErrCodeRemoteQuery ErrorCode = "REMOTE_QUERY"

	// ErrCodeRemoteInsert indicates a bulk insert call failed as a whole.
	ErrCodeRemoteInsert ErrorCode = "REMOTE_INSERT"

	// ErrCodeFileRead indicates the portable document could not be read.
	ErrCodeFileRead ErrorCode = "FILE_READ"

	// ErrCodeFileWrite indicates the portable document could not be written.
	ErrCodeFileWrite ErrorCode = "FILE_WRITE"

	// ErrCodeNoRecordsFound indicates there was nothing to retrieve or deploy.
	ErrCodeNoRecordsFound ErrorCode = "NO_RECORDS_FOUND"

	// ErrCodeMissingField indicates a record lacks a field the run depends on.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Tier != "" {
		msg = fmt.Sprintf("%s: %s (tier=%s)", e.Code, e.Message, e.Tier)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode returns true if err is, or wraps, an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NewQueryError wraps a failed lookup query.
func NewQueryError(tier ir.Tier, err error) *Error {
	return &Error{Code: ErrCodeRemoteQuery, Tier: tier, Message: "lookup query failed", Err: err}
}

// NewInsertError wraps a failed bulk insert call.
func NewInsertError(tier ir.Tier, err error) *Error {
	return &Error{Code: ErrCodeRemoteInsert, Tier: tier, Message: "bulk insert failed", Err: err}
}

// NewEmptyValueSetError reports a lookup that would have matched nothing.
func NewEmptyValueSetError(tier ir.Tier, err error) *Error {
	return &Error{Code: ErrCodeEmptyValueSet, Tier: tier, Message: "lookup has no values", Err: err}
}

// NewMissingFieldError reports a record without a field the run needs.
func NewMissingFieldError(tier ir.Tier, field, context string) *Error {
	return &Error{
		Code:    ErrCodeMissingField,
		Tier:    tier,
		Message: fmt.Sprintf("missing %s on %s", field, context),
	}
}

// NewNoRecordsError reports an empty retrieve or deploy.
func NewNoRecordsError(message string) *Error {
	return &Error{Code: ErrCodeNoRecordsFound, Message: message}
}

// NewFileReadError wraps a failure to read the portable document.
func NewFileReadError(path string, err error) *Error {
	return &Error{Code: ErrCodeFileRead, Message: fmt.Sprintf("read %s", path), Err: err}
}

// NewFileWriteError wraps a failure to write the portable document.
func NewFileWriteError(path string, err error) *Error {
	return &Error{Code: ErrCodeFileWrite, Message: fmt.Sprintf("write %s", path), Err: err}
}
