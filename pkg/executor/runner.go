// Package executor runs scenario test trees against a live page: it resolves
// selectors, applies steps, coordinates native dialogs and walks the
// parent/child hierarchy.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/logger"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

// RunnerConfig configures the test runner.
type RunnerConfig struct {
	BaseURL string // Resolves relative test URLs

	// Timing
	ActionTimeout     time.Duration // Element waits and per-dialog waits
	NavigationTimeout time.Duration
	PageLoadWait      time.Duration // Extra wait after a root test navigates
	ChildTestDelay    time.Duration // Wait before a child test starts
	StepDelay         time.Duration // Wait between steps
	DialogSettle      time.Duration // Grace for further dialogs after the trigger finished

	// Failure policy
	StopOnFailure               bool // Abort the whole run on the first failed test
	StopOnChildFailure          bool // Skip remaining siblings after a failed child
	AutoAcceptUnexpectedDialogs bool // Accept dialogs beyond a declared sequence

	Screenshots core.ScreenshotConfig
	Capturer    core.ScreenshotCapturer
	Script      *ScriptEngine // Variable expansion, nil to disable

	RunID string

	// Live progress callbacks
	OnTestStart    func(name string, level int, skipNavigation bool)
	OnStateChange  func(name string, from, to core.RunnerState)
	OnStepComplete func(test string, outcome core.StepOutcome)
	OnDialog       func(test string, info core.DialogInfo, action scenario.DialogAction)
	OnTestEnd      func(result *core.TestResult)
}

// Default timings applied when a RunnerConfig leaves them zero.
const (
	DefaultActionTimeout     = 10 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultDialogSettle      = 250 * time.Millisecond
)

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = DefaultActionTimeout
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.DialogSettle <= 0 {
		c.DialogSettle = DefaultDialogSettle
	}
	if c.Capturer == nil {
		c.Capturer = core.NullCapturer{}
	}
	return c
}

// Walker runs a forest of test nodes depth-first on one shared page.
type Walker struct {
	config  RunnerConfig
	runner  *CaseRunner
	results []core.TestResult
}

// NewWalker creates a walker for the given page.
func NewWalker(page core.Page, cfg RunnerConfig) *Walker {
	cfg = cfg.withDefaults()
	return &Walker{
		config: cfg,
		runner: NewCaseRunner(page, cfg),
	}
}

// Run walks every root in order and returns the collected results.
// Results are in pre-order; tests skipped because a parent failed are absent.
func (w *Walker) Run(ctx context.Context, roots []scenario.TestNode) (*core.RunResult, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no tests to run")
	}

	run := &core.RunResult{
		RunID:     w.config.RunID,
		StartTime: time.Now(),
	}
	w.results = nil

	var runErr error
	for _, root := range roots {
		if ctx.Err() != nil {
			logger.Warn("run cancelled before test %q", root.Name)
			run.Cancelled = true
			break
		}
		if _, err := w.Walk(ctx, root, 0, false); err != nil {
			var abort *AbortError
			if errors.As(err, &abort) {
				logger.Error("%v", abort)
				run.Aborted = true
			} else {
				run.Cancelled = true
				runErr = err
			}
			break
		}
	}

	run.Results = w.results
	if run.Results == nil {
		run.Results = []core.TestResult{}
	}
	run.ComputeSummary()
	run.Duration = time.Since(run.StartTime)
	logger.Info("run finished: %d passed, %d failed of %d", run.Passed, run.Failed, run.Total)
	return run, runErr
}

// Results returns the results collected so far.
func (w *Walker) Results() []core.TestResult {
	return w.results
}

// Walk runs node and then, only if it passed, its children at level+1 with
// navigation skipped. It reports whether the node and every executed
// descendant passed. The error is non-nil only for an *AbortError or a
// cancelled context.
func (w *Walker) Walk(ctx context.Context, node scenario.TestNode, level int, skipNavigation bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	passed, err := w.runNode(ctx, node, level, skipNavigation)
	if err != nil {
		return false, err
	}
	if !passed {
		if n := len(node.Children); n > 0 {
			logger.Warn("test %q failed, skipping %d child test(s)", node.Name, n)
		}
		return false, nil
	}

	all := true
	for _, child := range node.Children {
		ok, err := w.Walk(ctx, child, level+1, true)
		if err != nil {
			return false, err
		}
		if !ok {
			all = false
			if w.config.StopOnChildFailure {
				logger.Warn("child test %q failed, skipping its remaining siblings", child.Name)
				break
			}
		}
	}
	return all, nil
}

// runNode executes one case. Panics and infrastructure errors are contained
// into a failed result.
func (w *Walker) runNode(ctx context.Context, node scenario.TestNode, level int, skipNavigation bool) (passed bool, err error) {
	tc := node.Case
	if tc.Name == "" {
		tc.Name = node.Name
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("test %q panicked: %v\n%s", tc.Name, p, debug.Stack())
			passed, err = false, w.contain(tc.Name, level, skipNavigation, fmt.Errorf("panic: %v", p))
		}
	}()

	res, runErr := w.runner.Run(ctx, tc, RunOptions{Level: level, SkipNavigation: skipNavigation})

	var abort *AbortError
	switch {
	case runErr == nil:
		w.results = append(w.results, *res)
		return res.Passed(), nil
	case errors.As(runErr, &abort):
		w.results = append(w.results, *res)
		return false, runErr
	default:
		logger.Error("test %q: %v", tc.Name, runErr)
		return false, w.contain(tc.Name, level, skipNavigation, runErr)
	}
}

// contain records a failed result for an error that escaped the case runner.
func (w *Walker) contain(name string, level int, skipNavigation bool, cause error) error {
	res := w.runner.Current()
	if res == nil || res.Name != name {
		res = core.NewTestResult(name, level, skipNavigation)
	}

	func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("containing failure of %q panicked: %v", name, p)
				res.Fail(cause)
			}
		}()
		w.runner.Contain(res, cause)
	}()

	w.results = append(w.results, *res)
	if w.config.StopOnFailure {
		return &AbortError{Test: name, Err: cause}
	}
	return nil
}
