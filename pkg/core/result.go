package core

import (
	"time"
)

// StepOutcome captures the outcome of one declared step, submit sub-step or assertion
type StepOutcome struct {
	Index       int           `json:"index"`       // 0-based position in its list
	Kind        string        `json:"kind"`        // input, click, checkbox, radio, select, dialog, or assertion kind
	Description string        `json:"description"` // Human-readable, e.g. "click id=loginBtn"
	Status      Status        `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
	Screenshot  string        `json:"screenshot,omitempty"` // Only for capturable submit sub-steps
}

// TestResult captures the complete outcome of running one test case.
// It is created when the runner starts a test and handed to the walker when
// the test ends; after the run only late failure screenshots are appended.
type TestResult struct {
	Name              string        `json:"name"`
	Status            Status        `json:"status"`
	URL               string        `json:"url,omitempty"` // Page URL when the test ended
	HierarchyLevel    int           `json:"hierarchyLevel"`
	SkippedNavigation bool          `json:"skippedNavigation"`
	State             RunnerState   `json:"-"` // Last lifecycle state reached
	StartTime         time.Time     `json:"startTime"`
	Duration          time.Duration `json:"duration"`

	Steps      []StepOutcome `json:"steps"`
	Submit     []StepOutcome `json:"submit,omitempty"`
	Assertions []StepOutcome `json:"assertions,omitempty"`

	Error     *string  `json:"error"`               // nil when passed
	ErrorCode string   `json:"errorCode,omitempty"` // ExecutionError code of the failure
	Warnings  []string `json:"warnings,omitempty"`

	Screenshots []string `json:"screenshots"`
}

// NewTestResult creates a result for a test that is about to start.
func NewTestResult(name string, level int, skipNavigation bool) *TestResult {
	return &TestResult{
		Name:              name,
		HierarchyLevel:    level,
		SkippedNavigation: skipNavigation,
		State:             StateNotStarted,
		StartTime:         time.Now(),
		Steps:             []StepOutcome{},
		Screenshots:       []string{},
	}
}

// Fail marks the result failed with err. The first failure wins.
func (r *TestResult) Fail(err error) {
	if r.Status == StatusFailed {
		return
	}
	msg := err.Error()
	r.Status = StatusFailed
	r.Error = &msg
	r.ErrorCode = CodeOf(err)
}

// Passed returns true if the test passed
func (r *TestResult) Passed() bool {
	return r.Status == StatusPassed
}

// ErrorMessage returns the failure message or "".
func (r *TestResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// AddScreenshot appends an artifact path, ignoring empty paths.
func (r *TestResult) AddScreenshot(path string) {
	if path != "" {
		r.Screenshots = append(r.Screenshots, path)
	}
}

// RunResult captures the complete outcome of walking a test tree
type RunResult struct {
	// Identity
	RunID string `json:"runId"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results in execution order (pre-order over the tree)
	Results []TestResult `json:"results"`

	// Summary
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`

	Aborted   bool `json:"aborted,omitempty"`   // stopOnFailure ended the run early
	Cancelled bool `json:"cancelled,omitempty"` // context cancelled
}

// ComputeSummary calculates counts from the Results slice
func (r *RunResult) ComputeSummary() {
	r.Total = len(r.Results)
	r.Passed = 0
	r.Failed = 0
	for _, res := range r.Results {
		if res.Status.IsSuccess() {
			r.Passed++
		} else {
			r.Failed++
		}
	}
}

// Success returns true if every executed test passed and the run was not cut short
func (r *RunResult) Success() bool {
	if r.Aborted || r.Cancelled {
		return false
	}
	for _, res := range r.Results {
		if !res.Status.IsSuccess() {
			return false
		}
	}
	return len(r.Results) > 0
}
