// Package report writes the artifacts of a run:
//   - report.json: run metadata and every TestResult in execution order
//   - junit-report.xml: the same results for CI systems
//   - screenshots/: PNGs requested by the test case runner
package report

import (
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Status is the overall run status.
type Status string

// Status values.
const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
	StatusCancelled Status = "cancelled"
)

// Report is the content of report.json.
type Report struct {
	Version   string            `json:"version"`
	RunID     string            `json:"runId"`
	Status    Status            `json:"status"`
	StartTime time.Time         `json:"startTime"`
	EndTime   time.Time         `json:"endTime"`
	Duration  int64             `json:"duration"` // milliseconds
	Runner    RunnerInfo        `json:"runner"`
	Browser   BrowserInfo       `json:"browser"`
	Sources   []string          `json:"sources,omitempty"` // Scenario files of the run
	Summary   Summary           `json:"summary"`
	Results   []core.TestResult `json:"results"`
}

// RunnerInfo identifies the tool that produced the report.
type RunnerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// BrowserInfo describes the browser session.
type BrowserInfo struct {
	Name     string `json:"name"`
	Headless bool   `json:"headless"`
	BaseURL  string `json:"baseUrl,omitempty"`
}

// Summary contains result counts.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Meta is run information the RunResult does not carry.
type Meta struct {
	Runner  RunnerInfo
	Browser BrowserInfo
	Sources []string
}

// Build assembles a report from a finished run.
func Build(run *core.RunResult, meta Meta) *Report {
	r := &Report{
		Version:   Version,
		RunID:     run.RunID,
		StartTime: run.StartTime,
		EndTime:   run.StartTime.Add(run.Duration),
		Duration:  run.Duration.Milliseconds(),
		Runner:    meta.Runner,
		Browser:   meta.Browser,
		Sources:   meta.Sources,
		Summary:   Summary{Total: run.Total, Passed: run.Passed, Failed: run.Failed},
		Results:   run.Results,
	}
	if r.Results == nil {
		r.Results = []core.TestResult{}
	}

	switch {
	case run.Aborted:
		r.Status = StatusAborted
	case run.Cancelled:
		r.Status = StatusCancelled
	case run.Success():
		r.Status = StatusPassed
	default:
		r.Status = StatusFailed
	}
	return r
}
