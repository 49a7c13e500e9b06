package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Input errors, raised before anything touches the filesystem
	ErrMalformedRange    ErrorCode = "MALFORMED_RANGE"
	ErrValueFileNotFound ErrorCode = "VALUE_FILE_NOT_FOUND"
	ErrLengthMismatch    ErrorCode = "LENGTH_MISMATCH"
	ErrDuplicateKey      ErrorCode = "DUPLICATE_KEY"
	ErrSwapfileParse     ErrorCode = "SWAPFILE_PARSE"

	// Per-copy errors
	ErrUnresolvedPlaceholder ErrorCode = "UNRESOLVED_PLACEHOLDER"
	ErrDestinationExists     ErrorCode = "DESTINATION_EXISTS"
	ErrUnsafePath            ErrorCode = "UNSAFE_PATH"

	// FileSystem errors
	ErrFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"

	// Command errors
	ErrCommandFailed ErrorCode = "COMMAND_FAILED"

	// Configuration errors
	ErrConfigLoad ErrorCode = "CONFIG_LOAD"
)

// WandError represents a structured error with code and details
type WandError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *WandError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *WandError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *WandError) Is(target error) bool {
	var targetErr *WandError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new WandError with the given code and message
func New(code ErrorCode, message string) *WandError {
	return &WandError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new WandError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *WandError {
	return &WandError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a WandError
func Wrap(err error, code ErrorCode, message string) *WandError {
	if err == nil {
		return nil
	}
	return &WandError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *WandError {
	if err == nil {
		return nil
	}
	return &WandError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *WandError) WithDetail(key string, value interface{}) *WandError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *WandError) WithDetails(details map[string]interface{}) *WandError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// Describe renders the error followed by its details in key order, so
// a user can tell which placeholder, copy or path was involved.
func (e *WandError) Describe() string {
	if len(e.Details) == 0 {
		return e.Error()
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(e.Error())
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %v", k, e.Details[k])
	}
	return b.String()
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var wandErr *WandError
	if errors.As(err, &wandErr) {
		return wandErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a WandError
func GetErrorCode(err error) ErrorCode {
	var wandErr *WandError
	if errors.As(err, &wandErr) {
		return wandErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a WandError
func GetErrorDetails(err error) map[string]interface{} {
	var wandErr *WandError
	if errors.As(err, &wandErr) {
		return wandErr.Details
	}
	return nil
}

// IsInputError reports whether err belongs to the class of errors detected
// while resolving values and building the swap table.
func IsInputError(err error) bool {
	switch GetErrorCode(err) {
	case ErrMalformedRange, ErrValueFileNotFound, ErrLengthMismatch,
		ErrDuplicateKey, ErrSwapfileParse, ErrInvalidInput:
		return true
	}
	return false
}

// As is errors.As from the standard library, re-exported so callers do not
// need both packages.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join is errors.Join from the standard library.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
