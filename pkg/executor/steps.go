package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

// StepExecutor applies single steps to the page.
type StepExecutor struct {
	page       core.Page
	resolver   *SelectorResolver
	navTimeout time.Duration
	wait       func(time.Duration)
	baseDir    string // Directory valueFile paths are relative to
}

// NewStepExecutor creates a step executor. wait implements fixed delays.
func NewStepExecutor(page core.Page, resolver *SelectorResolver, navTimeout time.Duration, wait func(time.Duration)) *StepExecutor {
	if wait == nil {
		wait = time.Sleep
	}
	return &StepExecutor{page: page, resolver: resolver, navTimeout: navTimeout, wait: wait}
}

// SetBaseDir sets the directory valueFile paths are resolved against.
func (e *StepExecutor) SetBaseDir(dir string) {
	e.baseDir = dir
}

// Apply resolves the step's element and applies the step.
func (e *StepExecutor) Apply(step scenario.Step) error {
	switch s := step.(type) {
	case *scenario.InputStep:
		return e.input(s)
	case *scenario.ClickStep:
		el, err := e.resolver.Resolve(s.Selector)
		if err != nil {
			return err
		}
		return e.Click(el, s)
	case *scenario.CheckboxStep:
		return e.checkbox(s)
	case *scenario.RadioStep:
		return e.radio(s)
	case *scenario.SelectStep:
		return e.selectOption(s)
	case *scenario.DialogStep:
		return core.ErrDialogNotTriggered.WithMessage("dialog step has no triggering click before it")
	default:
		return core.ErrUnknownStepKind.WithMessagef("unknown step kind %T", step)
	}
}

func (e *StepExecutor) input(s *scenario.InputStep) error {
	value := s.Value
	if s.ValueFile != "" {
		v, err := e.readValueFile(s.ValueFile)
		if err != nil {
			return err
		}
		value = v
	}

	el, err := e.resolver.Resolve(s.Selector)
	if err != nil {
		return err
	}
	return el.Fill(value)
}

func (e *StepExecutor) readValueFile(path string) (string, error) {
	if !filepath.IsAbs(path) && e.baseDir != "" {
		path = filepath.Join(e.baseDir, path)
	}
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from the scenario
	if err != nil {
		return "", &InfrastructureError{Op: "read valueFile", Err: err}
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Click clicks an already resolved element. With waitForNavigation the
// navigation wait is armed before the click is dispatched.
func (e *StepExecutor) Click(el core.Element, s *scenario.ClickStep) error {
	if s.WaitForNavigation {
		if err := e.page.ExpectNavigation(el.Click, e.navTimeout); err != nil {
			return err
		}
	} else if err := el.Click(); err != nil {
		return err
	}

	if s.WaitAfterMs > 0 {
		e.wait(time.Duration(s.WaitAfterMs) * time.Millisecond)
	}
	return nil
}

func (e *StepExecutor) checkbox(s *scenario.CheckboxStep) error {
	el, err := e.resolver.Resolve(s.Selector)
	if err != nil {
		return err
	}

	checked, err := el.IsChecked()
	if err != nil {
		return err
	}
	if checked == s.Want() {
		return nil
	}
	return el.SetChecked(s.Want())
}

func (e *StepExecutor) radio(s *scenario.RadioStep) error {
	el, err := e.resolver.Resolve(s.Selector)
	if err != nil {
		return err
	}

	checked, err := el.IsChecked()
	if err != nil {
		return err
	}
	if !checked {
		if err := el.SetChecked(true); err != nil {
			return err
		}
	}

	if !s.Verify {
		return nil
	}
	return verifyValue(el, s.Value, s.Selector)
}

func (e *StepExecutor) selectOption(s *scenario.SelectStep) error {
	el, err := e.resolver.Resolve(s.Selector)
	if err != nil {
		return err
	}

	opt := core.OptionSelector{}
	switch s.Mode() {
	case scenario.SelectByValue:
		opt.Value = s.Value
	case scenario.SelectByLabel:
		opt.Label = s.Value
	case scenario.SelectByIndex:
		if s.Index == nil {
			return core.ErrInvalidScenario.WithMessage("select by index needs an index")
		}
		opt.Index = s.Index
	default:
		return core.ErrInvalidScenario.WithMessagef("unknown select mode %q", s.By)
	}

	if err := el.SelectOption(opt); err != nil {
		return err
	}
	if !s.Verify {
		return nil
	}

	expected, err := expectedOptionValue(el, s)
	if err != nil {
		return err
	}
	return verifyValue(el, expected, s.Selector)
}

// expectedOptionValue returns the value the control must hold after s.
func expectedOptionValue(el core.Element, s *scenario.SelectStep) (string, error) {
	if s.Mode() == scenario.SelectByValue {
		return s.Value, nil
	}

	options, err := el.Options()
	if err != nil {
		return "", err
	}
	if s.Mode() == scenario.SelectByIndex {
		if *s.Index < 0 || *s.Index >= len(options) {
			return "", core.ErrValueMismatch.WithMessagef("option index %d out of range (%d options)", *s.Index, len(options))
		}
		return options[*s.Index].Value, nil
	}
	for _, o := range options {
		if o.Label == s.Value {
			return o.Value, nil
		}
	}
	return "", core.ErrValueMismatch.WithMessagef("no option labelled %q", s.Value)
}

func verifyValue(el core.Element, expected string, sel scenario.Selector) error {
	actual, err := el.InputValue()
	if err != nil {
		return err
	}
	if actual != expected {
		return core.ErrValueMismatch.
			WithMessage(fmt.Sprintf("value mismatch on %s: expected %q, got %q", sel, expected, actual)).
			WithDetails(map[string]interface{}{"expected": expected, "actual": actual})
	}
	return nil
}
