package core

// Status is the outcome of a test, step or assertion.
type Status string

// Status values.
const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped" // sub-steps after a failure; never used for whole tests
)

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusPassed
}

// RunnerState is a state of the per-test lifecycle.
type RunnerState int

const (
	StateNotStarted        RunnerState = iota // Result created, nothing touched yet
	StateNavigating                           // Root test: loading its URL
	StateContinuing                           // Child test: reusing the parent's page
	StateRunningSteps                         // Executing declared steps
	StatePreSubmitCapture                     // Optional screenshot before submit
	StateSubmitting                           // Executing the submit action
	StatePostSubmitCapture                    // Optional screenshot after submit
	StateAsserting                            // Evaluating assertions
	StatePassed                               // Terminal: all assertions passed
	StateFailed                               // Terminal: first unrecovered error
	StateFailureCapture                       // Optional failure screenshot after StateFailed
)

// String returns the string representation of RunnerState
func (s RunnerState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateNavigating:
		return "navigating"
	case StateContinuing:
		return "continuing"
	case StateRunningSteps:
		return "running_steps"
	case StatePreSubmitCapture:
		return "pre_submit_capture"
	case StateSubmitting:
		return "submitting"
	case StatePostSubmitCapture:
		return "post_submit_capture"
	case StateAsserting:
		return "asserting"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	case StateFailureCapture:
		return "failure_capture"
	default:
		return "unknown"
	}
}

// IsTerminal returns true for Passed and Failed.
// FailureCapture follows Failed but never changes the outcome.
func (s RunnerState) IsTerminal() bool {
	return s == StatePassed || s == StateFailed
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone      ErrorCategory = iota // No error
	ErrCategoryElement                        // Selector did not resolve to a visible element
	ErrCategoryAssertion                      // Assertion or verify-after-set mismatch
	ErrCategoryDialog                         // Native dialog protocol violation
	ErrCategoryTimeout                        // Navigation or wait timed out
	ErrCategoryScenario                       // Malformed scenario data reached the runner
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryElement:
		return "element"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryDialog:
		return "dialog"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryScenario:
		return "scenario"
	default:
		return "unknown"
	}
}
