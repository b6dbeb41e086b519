package executor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/logger"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

// RunOptions place a test in the tree.
type RunOptions struct {
	Level          int
	SkipNavigation bool // Child tests continue on the parent's page
}

// CaseRunner executes the lifecycle of one test case against the shared page.
type CaseRunner struct {
	ctx      context.Context
	page     core.Page
	config   RunnerConfig
	capturer core.ScreenshotCapturer
	resolver *SelectorResolver
	steps    *StepExecutor
	dialogs  *DialogCoordinator
	current  *core.TestResult
}

// planned is one entry of a step or submit sequence.
type planned struct {
	label      string        // Error context, e.g. "step 2"
	step       scenario.Step //
	screenshot string        // Capture stage after this step, "" for none
}

// NewCaseRunner creates a runner for the given page.
func NewCaseRunner(page core.Page, cfg RunnerConfig) *CaseRunner {
	cfg = cfg.withDefaults()
	r := &CaseRunner{
		ctx:      context.Background(),
		page:     page,
		config:   cfg,
		capturer: cfg.Capturer,
	}
	r.resolver = NewSelectorResolver(page, cfg.ActionTimeout)
	r.steps = NewStepExecutor(page, r.resolver, cfg.NavigationTimeout, r.wait)
	r.dialogs = &DialogCoordinator{
		page:       page,
		timeout:    cfg.ActionTimeout,
		navTimeout: cfg.NavigationTimeout,
		settle:     cfg.DialogSettle,
		acceptRest: cfg.AutoAcceptUnexpectedDialogs,
		wait:       r.wait,
		onDialog: func(info core.DialogInfo, action scenario.DialogAction) {
			logger.Info("dialog %s %q -> %s", info.Kind, info.Message, action)
			if r.config.OnDialog != nil && r.current != nil {
				r.config.OnDialog(r.current.Name, info, action)
			}
		},
	}
	return r
}

// Current returns the result of the test being run, or the last one.
func (r *CaseRunner) Current() *core.TestResult {
	return r.current
}

// Run executes tc and returns its result. Test failures are recorded in the
// result; the returned error is an *AbortError when stopOnFailure applies, or
// an *InfrastructureError the caller must contain.
func (r *CaseRunner) Run(ctx context.Context, tc scenario.TestCase, opts RunOptions) (*core.TestResult, error) {
	r.ctx = ctx
	r.current = nil
	res := core.NewTestResult(tc.Name, opts.Level, opts.SkipNavigation)
	r.current = res

	logger.Info("test %q started (level %d, skipNavigation=%t)", tc.Name, opts.Level, opts.SkipNavigation)
	if r.config.OnTestStart != nil {
		r.config.OnTestStart(tc.Name, opts.Level, opts.SkipNavigation)
	}

	if stale := r.page.UnhandledDialogs(); len(stale) > 0 {
		logger.Warn("%d dialog(s) were dismissed between tests", len(stale))
	}

	if r.config.Script != nil {
		r.config.Script.SetTestName(tc.Name)
		expanded, err := r.config.Script.ExpandCase(tc)
		if err != nil {
			res.Duration = time.Since(res.StartTime)
			return res, &InfrastructureError{Op: "expand variables", Err: err}
		}
		tc = expanded
	}

	baseDir := ""
	if tc.SourcePath != "" {
		baseDir = filepath.Dir(tc.SourcePath)
	}
	r.steps.SetBaseDir(baseDir)

	err := r.execute(tc, res, opts)

	var infra *InfrastructureError
	if errors.As(err, &infra) {
		res.Duration = time.Since(res.StartTime)
		return res, err
	}

	r.finish(res, err)
	if err != nil && r.config.StopOnFailure {
		return res, &AbortError{Test: res.Name, Err: err}
	}
	return res, nil
}

// Contain marks res failed because of an error that escaped Run, then
// captures a best-effort failure screenshot. It never panics.
func (r *CaseRunner) Contain(res *core.TestResult, cause error) {
	r.finish(res, cause)
}

func (r *CaseRunner) finish(res *core.TestResult, err error) {
	if err == nil {
		res.Status = core.StatusPassed
		r.transition(res, core.StatePassed)
	} else {
		res.Fail(err)
		r.transition(res, core.StateFailed)
		logger.Error("test %q failed: %v", res.Name, err)
		if r.config.Screenshots.OnFailure {
			r.transition(res, core.StateFailureCapture)
			r.capture(res, core.StageFailure, true)
		}
	}

	res.URL = r.currentURL()
	res.Duration = time.Since(res.StartTime)
	logger.Info("test %q %s in %s", res.Name, res.Status, res.Duration)
	if r.config.OnTestEnd != nil {
		r.config.OnTestEnd(res)
	}
}

func (r *CaseRunner) execute(tc scenario.TestCase, res *core.TestResult, opts RunOptions) error {
	if opts.SkipNavigation {
		r.transition(res, core.StateContinuing)
		r.wait(r.config.ChildTestDelay)
	} else {
		r.transition(res, core.StateNavigating)
		target, err := ResolveURL(r.config.BaseURL, tc.URL)
		if err != nil {
			return err
		}
		if err := r.page.Navigate(target, r.config.NavigationTimeout); err != nil {
			return fmt.Errorf("navigate to %s: %w", target, err)
		}
		r.wait(r.config.PageLoadWait)
		if err := r.checkUnhandled(); err != nil {
			return fmt.Errorf("navigate to %s: %w", target, err)
		}
	}

	r.transition(res, core.StateRunningSteps)
	plan := make([]planned, len(tc.Steps))
	for i, s := range tc.Steps {
		plan[i] = planned{label: fmt.Sprintf("step %d", i+1), step: s}
	}
	if err := r.runPlan(res, plan, &res.Steps); err != nil {
		return err
	}

	r.transition(res, core.StatePreSubmitCapture)
	if r.config.Screenshots.BeforeSubmit {
		r.capture(res, core.StageBeforeSubmit, false)
	}

	r.transition(res, core.StateSubmitting)
	if tc.Submit.IsEmpty() {
		r.warn(res, "no submit action declared")
	} else {
		if err := r.runPlan(res, submitPlan(tc.Submit), &res.Submit); err != nil {
			return err
		}
		r.wait(time.Duration(tc.Submit.WaitAfterMs) * time.Millisecond)
	}

	r.transition(res, core.StatePostSubmitCapture)
	if r.config.Screenshots.AfterSubmit {
		r.capture(res, core.StageAfterSubmit, false)
	}

	r.transition(res, core.StateAsserting)
	if len(tc.Assertions) == 0 {
		r.warn(res, "no assertions declared")
	}
	for i, a := range tc.Assertions {
		start := time.Now()
		err := Assert(r.resolver, a)
		out := core.StepOutcome{
			Index:       i,
			Kind:        string(a.Kind),
			Description: a.Describe(),
			Status:      core.StatusPassed,
			Duration:    time.Since(start),
		}
		if err != nil {
			out.Status = core.StatusFailed
			out.Error = err.Error()
		}
		res.Assertions = append(res.Assertions, out)
		r.notifyStep(res, out)
		if err != nil {
			return fmt.Errorf("assertion %d (%s): %w", i+1, a.Describe(), err)
		}
	}
	return nil
}

func submitPlan(s scenario.Submit) []planned {
	seq := s.Sequence()
	plan := make([]planned, len(seq))
	for i, ss := range seq {
		p := planned{label: "submit", step: ss.Step}
		if s.Step == nil {
			p.label = fmt.Sprintf("submit step %q", ss.Name)
		}
		if ss.Screenshot {
			p.screenshot = core.SubmitStage(ss.Name)
		}
		plan[i] = p
	}
	return plan
}

// dialogsAfter returns how many dialog steps directly follow a click at i.
func dialogsAfter(plan []planned, i int) int {
	if _, ok := plan[i].step.(*scenario.ClickStep); !ok {
		return 0
	}
	n := 0
	for j := i + 1; j < len(plan); j++ {
		if _, ok := plan[j].step.(*scenario.DialogStep); !ok {
			break
		}
		n++
	}
	return n
}

// runPlan executes a sequence. A click followed by dialog steps runs as one
// coordinated unit.
func (r *CaseRunner) runPlan(res *core.TestResult, plan []planned, outcomes *[]core.StepOutcome) error {
	for i := 0; i < len(plan); {
		n := dialogsAfter(plan, i)
		first := len(*outcomes)

		var err error
		if n > 0 {
			err = r.runTriggered(res, plan[i:i+1+n], outcomes)
		} else {
			err = r.runSingle(res, plan[i], outcomes)
		}
		unit := plan[i : i+1+n]
		i += 1 + n

		if err == nil {
			if uerr := r.checkUnhandled(); uerr != nil {
				last := len(*outcomes) - 1
				(*outcomes)[last].Status = core.StatusFailed
				(*outcomes)[last].Error = uerr.Error()
				p := unit[len(unit)-1]
				err = fmt.Errorf("%s (%s): %w", p.label, describe(p.step), uerr)
			}
		}
		if err != nil {
			return err
		}

		for j, p := range unit {
			if p.screenshot != "" {
				(*outcomes)[first+j].Screenshot = r.capture(res, p.screenshot, false)
			}
		}
		r.wait(r.config.StepDelay)
	}
	return nil
}

func (r *CaseRunner) runSingle(res *core.TestResult, p planned, outcomes *[]core.StepOutcome) error {
	start := time.Now()
	err := r.steps.Apply(p.step)
	r.record(res, outcomes, p.step, start, statusOf(err), err)
	if err != nil {
		return fmt.Errorf("%s (%s): %w", p.label, describe(p.step), err)
	}
	return nil
}

// runTriggered runs a click and the dialog steps after it through the
// dialog coordinator.
func (r *CaseRunner) runTriggered(res *core.TestResult, unit []planned, outcomes *[]core.StepOutcome) error {
	click := unit[0].step.(*scenario.ClickStep)
	dialogs := unit[1:]
	expectations := make([]scenario.DialogExpectation, len(dialogs))
	for i, p := range dialogs {
		expectations[i] = p.step.(*scenario.DialogStep).DialogExpectation
	}

	start := time.Now()
	el, err := r.resolver.Resolve(click.Selector)
	if err != nil {
		r.record(res, outcomes, click, start, core.StatusFailed, err)
		for _, p := range dialogs {
			r.record(res, outcomes, p.step, start, core.StatusSkipped, nil)
		}
		return fmt.Errorf("%s (%s): %w", unit[0].label, describe(click), err)
	}

	tr, err := r.dialogs.Trigger(func() error { return r.steps.Click(el, click) }, expectations...)
	if err == nil {
		r.record(res, outcomes, click, start, core.StatusPassed, nil)
		for _, p := range dialogs {
			r.record(res, outcomes, p.step, start, core.StatusPassed, nil)
		}
		return nil
	}

	// The click failed when its own error is all there is to report.
	if tr.ActionErr != nil && len(tr.Handled) == 0 {
		r.record(res, outcomes, click, start, core.StatusFailed, err)
		for _, p := range dialogs {
			r.record(res, outcomes, p.step, start, core.StatusSkipped, nil)
		}
		return fmt.Errorf("%s (%s): %w", unit[0].label, describe(click), err)
	}

	r.record(res, outcomes, click, start, core.StatusPassed, nil)

	// Every declared dialog was resolved; the failure belongs to the unit.
	if len(tr.Handled) >= len(dialogs) {
		for _, p := range dialogs {
			r.record(res, outcomes, p.step, start, core.StatusPassed, nil)
		}
		return fmt.Errorf("%s (%s): %w", unit[0].label, describe(click), err)
	}

	failed := len(tr.Handled)
	for i, p := range dialogs {
		switch {
		case i < failed:
			r.record(res, outcomes, p.step, start, core.StatusPassed, nil)
		case i == failed:
			r.record(res, outcomes, p.step, start, core.StatusFailed, err)
		default:
			r.record(res, outcomes, p.step, start, core.StatusSkipped, nil)
		}
	}
	p := dialogs[failed]
	return fmt.Errorf("%s (%s): %w", p.label, describe(p.step), err)
}

func (r *CaseRunner) record(res *core.TestResult, outcomes *[]core.StepOutcome, step scenario.Step, start time.Time, status core.Status, err error) {
	out := core.StepOutcome{
		Index:       len(*outcomes),
		Kind:        string(step.Kind()),
		Description: describe(step),
		Status:      status,
		Duration:    time.Since(start),
	}
	if err != nil {
		out.Error = err.Error()
	}
	*outcomes = append(*outcomes, out)
	r.notifyStep(res, out)
}

func (r *CaseRunner) notifyStep(res *core.TestResult, out core.StepOutcome) {
	logger.Debug("test %q: %s %s (%s)", res.Name, out.Description, out.Status, out.Duration)
	if r.config.OnStepComplete != nil {
		r.config.OnStepComplete(res.Name, out)
	}
}

func (r *CaseRunner) checkUnhandled() error {
	dialogs := r.page.UnhandledDialogs()
	if len(dialogs) == 0 {
		return nil
	}
	d := dialogs[0]
	return core.ErrUnexpectedDialog.
		WithMessagef("unexpected %s dialog %q was dismissed", d.Kind, d.Message).
		WithDetails(map[string]interface{}{"count": len(dialogs)})
}

func (r *CaseRunner) transition(res *core.TestResult, to core.RunnerState) {
	from := res.State
	res.State = to
	logger.Debug("test %q: %s -> %s", res.Name, from, to)
	if r.config.OnStateChange != nil {
		r.config.OnStateChange(res.Name, from, to)
	}
}

func (r *CaseRunner) warn(res *core.TestResult, msg string) {
	res.Warnings = append(res.Warnings, msg)
	logger.Warn("test %q: %s", res.Name, msg)
}

// capture requests a screenshot and records its path. Failures are logged.
func (r *CaseRunner) capture(res *core.TestResult, stage string, failure bool) (path string) {
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("screenshot %s for %q panicked: %v", stage, res.Name, p)
			path = ""
		}
	}()

	path, err := r.capturer.Capture(res.Name, stage, failure)
	if err != nil {
		logger.Warn("screenshot %s for %q failed: %v", stage, res.Name, err)
		return ""
	}
	res.AddScreenshot(path)
	return path
}

func (r *CaseRunner) currentURL() (u string) {
	defer func() {
		if recover() != nil {
			u = ""
		}
	}()
	return r.page.URL()
}

// wait sleeps for d, returning early if the run is cancelled.
func (r *CaseRunner) wait(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-r.ctx.Done():
	case <-timer.C:
	}
}

func statusOf(err error) core.Status {
	if err != nil {
		return core.StatusFailed
	}
	return core.StatusPassed
}

func describe(step scenario.Step) string {
	if l := step.Label(); l != "" {
		return l
	}
	return step.Describe()
}

// ResolveURL resolves a test URL against the base URL. An empty test URL
// means the base URL itself.
func ResolveURL(base, ref string) (string, error) {
	switch {
	case ref == "" && base == "":
		return "", core.ErrInvalidScenario.WithMessage("test has no url and browser.baseUrl is not set")
	case ref == "":
		return base, nil
	case base == "":
		return ref, nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", core.ErrInvalidScenario.WithMessagef("invalid browser.baseUrl %q", base).WithCause(err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", core.ErrInvalidScenario.WithMessagef("invalid test url %q", ref).WithCause(err)
	}
	return b.ResolveReference(u).String(), nil
}
