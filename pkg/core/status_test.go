package core

import "testing"

func TestStatus_IsSuccess(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPassed, true},
		{StatusFailed, false},
		{StatusSkipped, false},
		{Status(""), false},
	}

	for _, tt := range tests {
		if got := tt.status.IsSuccess(); got != tt.want {
			t.Errorf("Status(%q).IsSuccess() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestRunnerState_String(t *testing.T) {
	tests := []struct {
		state RunnerState
		want  string
	}{
		{StateNotStarted, "not_started"},
		{StateNavigating, "navigating"},
		{StateContinuing, "continuing"},
		{StateRunningSteps, "running_steps"},
		{StatePreSubmitCapture, "pre_submit_capture"},
		{StateSubmitting, "submitting"},
		{StatePostSubmitCapture, "post_submit_capture"},
		{StateAsserting, "asserting"},
		{StatePassed, "passed"},
		{StateFailed, "failed"},
		{StateFailureCapture, "failure_capture"},
		{RunnerState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("RunnerState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestRunnerState_IsTerminal(t *testing.T) {
	for s := StateNotStarted; s <= StateFailureCapture; s++ {
		want := s == StatePassed || s == StateFailed
		if got := s.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, want)
		}
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		cat  ErrorCategory
		want string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryElement, "element"},
		{ErrCategoryAssertion, "assertion"},
		{ErrCategoryDialog, "dialog"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryScenario, "scenario"},
		{ErrorCategory(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}
