package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, dialog_not_triggered, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context (selector, step index, observed values)
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code, so that
// errors.Is(err, ErrElementNotFound) matches copies made by WithCause and friends.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with formatting.
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Error codes.
const (
	CodeElementNotFound         = "element_not_found"
	CodeUnknownSelectorStrategy = "unknown_selector_strategy"
	CodeValueMismatch           = "value_mismatch"
	CodeAssertionFailed         = "assertion_failed"
	CodeDialogKindMismatch      = "dialog_kind_mismatch"
	CodeDialogNotTriggered      = "dialog_not_triggered"
	CodeDialogCountMismatch     = "dialog_count_mismatch"
	CodeUnexpectedDialog        = "unexpected_dialog"
	CodeUnknownStepKind         = "unknown_step_kind"
	CodeNavigationTimeout       = "navigation_timeout"
	CodeInvalidScenario         = "invalid_scenario"
)

// Predefined errors
var (
	// Element lookup
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     CodeElementNotFound,
		Message:  "element not found",
	}
	ErrUnknownSelectorStrategy = &ExecutionError{
		Category: ErrCategoryScenario,
		Code:     CodeUnknownSelectorStrategy,
		Message:  "unknown selector strategy",
	}

	// Verification and assertions
	ErrValueMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     CodeValueMismatch,
		Message:  "value does not match after set",
	}
	ErrAssertionFailed = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     CodeAssertionFailed,
		Message:  "assertion failed",
	}

	// Dialogs
	ErrDialogKindMismatch = &ExecutionError{
		Category: ErrCategoryDialog,
		Code:     CodeDialogKindMismatch,
		Message:  "dialog kind mismatch",
	}
	ErrDialogNotTriggered = &ExecutionError{
		Category: ErrCategoryDialog,
		Code:     CodeDialogNotTriggered,
		Message:  "dialog was not triggered",
	}
	ErrDialogCountMismatch = &ExecutionError{
		Category: ErrCategoryDialog,
		Code:     CodeDialogCountMismatch,
		Message:  "dialog count mismatch",
	}
	ErrUnexpectedDialog = &ExecutionError{
		Category: ErrCategoryDialog,
		Code:     CodeUnexpectedDialog,
		Message:  "unexpected dialog",
	}

	// Scenario shape
	ErrUnknownStepKind = &ExecutionError{
		Category: ErrCategoryScenario,
		Code:     CodeUnknownStepKind,
		Message:  "unknown step kind",
	}
	ErrInvalidScenario = &ExecutionError{
		Category: ErrCategoryScenario,
		Code:     CodeInvalidScenario,
		Message:  "invalid scenario",
	}

	// Timeouts
	ErrNavigationTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     CodeNavigationTimeout,
		Message:  "navigation did not complete",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CodeOf returns the code of the outermost ExecutionError in err's chain,
// or "" if there is none.
func CodeOf(err error) string {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// CategoryOf returns the category of the outermost ExecutionError in err's chain.
func CategoryOf(err error) ErrorCategory {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ErrCategoryNone
}
