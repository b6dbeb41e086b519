package executor

import "fmt"

// AbortError is returned when a failed test stops the whole run
// (execution.stopOnFailure).
type AbortError struct {
	Test string
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted after test %q failed: %v", e.Test, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// InfrastructureError is a failure of the runner's own machinery rather than
// of the page under test, e.g. an unreadable valueFile or a broken expression.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InfrastructureError) Unwrap() error { return e.Err }
