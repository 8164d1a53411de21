package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Validation errors
	ErrCodeInvalidBranch ErrorCode = "INVALID_BRANCH"
	ErrCodeBranchExists  ErrorCode = "BRANCH_EXISTS"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"

	// Session errors
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionCorrupt  ErrorCode = "SESSION_CORRUPT"

	// Resource errors
	ErrCodePortExhausted  ErrorCode = "PORT_EXHAUSTED"
	ErrCodeWorktreeExists ErrorCode = "WORKTREE_EXISTS"
	ErrCodeWorktreeDirty  ErrorCode = "WORKTREE_DIRTY"

	// Terminal automation errors
	ErrCodeSpawnFailed ErrorCode = "SPAWN_FAILED"
	ErrCodeCloseFailed ErrorCode = "CLOSE_FAILED"
	ErrCodeFocusFailed ErrorCode = "FOCUS_FAILED"

	// Command execution errors
	ErrCodeCommandFailed  ErrorCode = "COMMAND_FAILED"
	ErrCodeCommandTimeout ErrorCode = "COMMAND_TIMEOUT"

	// Git errors
	ErrCodeGitFailed       ErrorCode = "GIT_FAILED"
	ErrCodeGitNotInstalled ErrorCode = "GIT_NOT_INSTALLED"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AviaryError represents a structured error with context
type AviaryError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AviaryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AviaryError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AviaryError) WithDetail(key string, value interface{}) *AviaryError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *AviaryError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new AviaryError
func New(code ErrorCode, message string) *AviaryError {
	return &AviaryError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AviaryError
func Wrap(err error, code ErrorCode, message string) *AviaryError {
	return &AviaryError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific AviaryError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	aviaryErr, ok := err.(*AviaryError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return aviaryErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	aviaryErr, ok := err.(*AviaryError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return aviaryErr.Code
}
