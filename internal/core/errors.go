package core

import "fmt"

// ErrorCode is a numeric error identifier grouped by subsystem so API
// clients can branch on the category without string matching.
type ErrorCode int

const (
	// User errors (1xxx)
	CodeUserNotFound ErrorCode = 1001

	// Account errors (2xxx)
	CodeAccountNotFound ErrorCode = 2001

	// Session errors (3xxx)
	CodeSessionInvalid ErrorCode = 3001

	// Database errors (4xxx)
	CodeDatabaseFailure ErrorCode = 4001
	CodeDuplicateName   ErrorCode = 4002

	// Validation errors (5xxx)
	CodeValidationFailed ErrorCode = 5001
	CodeMissingField     ErrorCode = 5002
	CodeInvalidPattern   ErrorCode = 5003

	// Service errors (6xxx)
	CodeServiceUnavailable ErrorCode = 6001

	// Transaction errors (7xxx)
	CodeTransactionNotFound ErrorCode = 7001
	CodeCategoryNotFound    ErrorCode = 7002
	CodeBusinessNotFound    ErrorCode = 7003
	CodeMalformedStatement  ErrorCode = 7004

	// Everything else (9xxx)
	CodeInternal ErrorCode = 9001
)

// Error carries a subsystem error code alongside the message, wrapping an
// underlying cause when there is one.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (code %d): %v", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a coded error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a coded error around an underlying cause.
func WrapError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the error code from err, walking the wrap chain. Errors
// without a code map to CodeInternal.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if coded, ok := err.(*Error); ok {
			return coded.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return CodeInternal
}
