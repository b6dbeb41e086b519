// Package validator checks scenario files before execution.
//
// Each file goes through three phases: a strict structural decode, JSON
// Schema validation of the decoded document, and domain rules over the
// built test tree (dialog placement, URLs, value files, naming).
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

// Validation phases.
const (
	PhaseStructural = "structural"
	PhaseSchema     = "schema"
	PhaseDomain     = "domain"
)

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents one finding with location context.
type ValidationError struct {
	File     string `json:"file"`
	Phase    string `json:"phase"`
	Path     string `json:"path"` // e.g. tests[0].children[1].steps[2]
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: [%s] %s", e.File, e.Phase, e.Message)
	}
	return fmt.Sprintf("%s: [%s] %s: %s", e.File, e.Phase, e.Path, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Files is the list of scenario files in execution order.
	Files []string
	// Suites holds the parsed suites of files that passed every phase.
	Suites []*scenario.Suite
	// Tests is the number of test nodes across Suites.
	Tests    int
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *Result) add(findings []*ValidationError) {
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			r.Warnings = append(r.Warnings, f)
		} else {
			r.Errors = append(r.Errors, f)
		}
	}
}

// Validator validates scenario files.
type Validator struct {
	baseURL string
}

// New creates a Validator. baseURL is the configured browser.baseUrl; root
// tests without a url are errors when it is empty.
func New(baseURL string) *Validator {
	return &Validator{baseURL: baseURL}
}

// Validate validates a file or every scenario file in a directory.
func (v *Validator) Validate(path string) *Result {
	result := &Result{}

	files, err := scenario.CollectFiles(path)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:     path,
			Phase:    PhaseStructural,
			Message:  fmt.Sprintf("cannot access: %v", err),
			Severity: SeverityError,
		})
		return result
	}
	if len(files) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			File:     path,
			Phase:    PhaseStructural,
			Message:  "no scenario files found",
			Severity: SeverityError,
		})
		return result
	}

	for _, file := range files {
		result.Files = append(result.Files, file)
		suite, findings := v.ValidateFile(file)
		result.add(findings)
		if suite != nil {
			result.Suites = append(result.Suites, suite)
			result.Tests += scenario.CountTests(suite.Tests)
		}
	}
	return result
}

// ValidateFile runs all phases on one file. The suite is nil when any
// phase reported an error.
func (v *Validator) ValidateFile(path string) (*scenario.Suite, []*ValidationError) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided scenario file
	if err != nil {
		return nil, []*ValidationError{{
			File:     path,
			Phase:    PhaseStructural,
			Message:  err.Error(),
			Severity: SeverityError,
		}}
	}
	return v.ValidateBytes(data, path)
}

// ValidateBytes runs all phases on scenario content read from path.
func (v *Validator) ValidateBytes(data []byte, path string) (*scenario.Suite, []*ValidationError) {
	// Phase 1: strict decode
	doc, err := scenario.Decode(data, path)
	if err != nil {
		return nil, []*ValidationError{structural(path, err)}
	}

	// Phase 2: JSON Schema
	if findings := validateSchema(doc, path); len(findings) > 0 {
		return nil, findings
	}

	// Phase 3: build the tree, then domain rules
	suite, err := scenario.Parse(data, path)
	if err != nil {
		return nil, []*ValidationError{structural(path, err)}
	}

	d := &domain{file: path, dir: filepath.Dir(path), baseURL: v.baseURL}
	d.nodes(suite.Tests, "tests", 0)
	if hasErrors(d.findings) {
		return nil, d.findings
	}
	return suite, d.findings
}

func structural(path string, err error) *ValidationError {
	msg := err.Error()
	// ParseError already carries the path
	msg = strings.TrimPrefix(msg, path+": ")
	return &ValidationError{
		File:     path,
		Phase:    PhaseStructural,
		Message:  msg,
		Severity: SeverityError,
	}
}

func hasErrors(findings []*ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// domain collects domain-rule findings for one file.
type domain struct {
	file     string
	dir      string
	baseURL  string
	findings []*ValidationError
}

func (d *domain) errorf(path, format string, args ...interface{}) {
	d.findings = append(d.findings, &ValidationError{
		File:     d.file,
		Phase:    PhaseDomain,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

func (d *domain) warnf(path, format string, args ...interface{}) {
	d.findings = append(d.findings, &ValidationError{
		File:     d.file,
		Phase:    PhaseDomain,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	})
}

func (d *domain) nodes(nodes []scenario.TestNode, prefix string, level int) {
	seen := make(map[string]bool)
	for i, node := range nodes {
		loc := fmt.Sprintf("%s[%d]", prefix, i)
		if seen[node.Name] && node.Name != "" {
			d.warnf(loc, "duplicate test name %q among siblings", node.Name)
		}
		seen[node.Name] = true

		d.testCase(node.Case, loc, level)
		d.nodes(node.Children, loc+".children", level+1)
	}
}

func (d *domain) testCase(tc scenario.TestCase, loc string, level int) {
	if strings.TrimSpace(tc.Name) == "" {
		d.errorf(loc+".name", "test name must not be empty")
	}

	switch {
	case level > 0 && tc.URL != "":
		d.warnf(loc+".url", "url is ignored for child tests, they continue on the parent's page")
	case level == 0 && tc.URL == "" && d.baseURL == "":
		d.errorf(loc, "root test has no url and browser.baseUrl is not set")
	case level == 0 && !hasVariable(tc.URL):
		if d.baseURL == "" && !strings.Contains(tc.URL, "://") {
			d.errorf(loc+".url", "relative url %q needs browser.baseUrl", tc.URL)
		}
	}

	d.steps(tc.Steps, loc+".steps")

	if tc.Submit.Step != nil {
		if tc.Submit.Step.Kind() == scenario.StepDialog {
			d.errorf(loc+".submit", "submit cannot be a dialog step")
		}
		d.step(tc.Submit.Step, loc+".submit")
	}
	if len(tc.Submit.Steps) > 0 {
		names := make(map[string]bool)
		seq := make([]scenario.Step, len(tc.Submit.Steps))
		for i, s := range tc.Submit.Steps {
			sloc := fmt.Sprintf("%s.submit.steps[%d]", loc, i)
			if s.Name == "" {
				d.errorf(sloc+".name", "submit step name must not be empty")
			} else if names[s.Name] {
				d.errorf(sloc+".name", "duplicate submit step name %q", s.Name)
			}
			names[s.Name] = true
			seq[i] = s.Step
		}
		d.steps(seq, loc+".submit.steps")
	}
	if tc.Submit.WaitAfterMs < 0 {
		d.errorf(loc+".submit.waitAfter", "must not be negative")
	}

	if tc.Submit.IsEmpty() && len(tc.Assertions) == 0 {
		d.warnf(loc, "test declares neither submit nor assertions")
	}

	for i, a := range tc.Assertions {
		d.assertion(a, fmt.Sprintf("%s.assertions[%d]", loc, i))
	}
}

// steps checks a sequence. A dialog step must directly follow a click or
// another dialog step of the same click.
func (d *domain) steps(steps []scenario.Step, prefix string) {
	var prev scenario.StepKind
	for i, step := range steps {
		loc := fmt.Sprintf("%s[%d]", prefix, i)
		if step.Kind() == scenario.StepDialog && prev != scenario.StepClick && prev != scenario.StepDialog {
			d.errorf(loc, "dialog step must directly follow a click")
		}
		d.step(step, loc)
		prev = step.Kind()
	}
}

func (d *domain) step(step scenario.Step, loc string) {
	switch s := step.(type) {
	case *scenario.InputStep:
		d.selector(s.Selector, loc)
		if s.Value != "" && s.ValueFile != "" {
			d.errorf(loc, "input declares both value and valueFile")
		}
		if s.ValueFile != "" && !hasVariable(s.ValueFile) {
			path := s.ValueFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(d.dir, path)
			}
			if _, err := os.Stat(path); err != nil {
				d.errorf(loc+".valueFile", "cannot read %s: %v", s.ValueFile, err)
			}
		}
	case *scenario.ClickStep:
		d.selector(s.Selector, loc)
		if s.WaitAfterMs < 0 {
			d.errorf(loc+".waitAfter", "must not be negative")
		}
	case *scenario.CheckboxStep:
		d.selector(s.Selector, loc)
	case *scenario.RadioStep:
		d.selector(s.Selector, loc)
		if s.Verify && s.Value == "" {
			d.warnf(loc, "verify without a value only checks that the radio is selected")
		}
	case *scenario.SelectStep:
		d.selector(s.Selector, loc)
		switch s.Mode() {
		case scenario.SelectByIndex:
			if s.Index == nil {
				d.errorf(loc, "select by index needs an index")
			} else if *s.Index < 0 {
				d.errorf(loc+".index", "must not be negative")
			}
		default:
			if s.Index != nil {
				d.warnf(loc+".index", "index is ignored when selecting by %s", s.Mode())
			}
		}
	case *scenario.DialogStep:
		if s.PromptValue != "" && s.Expect != "" && s.Expect != core.DialogPrompt {
			d.errorf(loc+".promptValue", "promptValue only applies to prompt dialogs, expected %s", s.Expect)
		}
		if s.PromptValue != "" && s.ResolvedAction() == scenario.DialogDismiss {
			d.warnf(loc+".promptValue", "promptValue is ignored when the dialog is dismissed")
		}
		if s.PostNavigationWaitMs > 0 && !s.WaitForNavigation {
			d.warnf(loc+".postNavigationWait", "ignored without waitForNavigation")
		}
		if s.PostNavigationWaitMs < 0 {
			d.errorf(loc+".postNavigationWait", "must not be negative")
		}
	}
}

func (d *domain) selector(sel scenario.Selector, loc string) {
	if !sel.Strategy.IsKnown() {
		d.errorf(loc+".selector", "unknown selector strategy %q", sel.Strategy)
	}
	if strings.TrimSpace(sel.Value) == "" {
		d.errorf(loc+".selector", "selector value must not be empty")
	}
}

func (d *domain) assertion(a scenario.Assertion, loc string) {
	d.selector(a.Selector, loc)
	switch a.Kind {
	case scenario.AssertStyle:
		if a.Property == "" {
			d.errorf(loc+".style.property", "must not be empty")
		}
	case scenario.AssertAttribute:
		if a.Property == "" {
			d.errorf(loc+".attribute.name", "must not be empty")
		}
	case scenario.AssertClass:
		if a.Expected == "" || strings.ContainsAny(a.Expected, " \t\n") {
			d.errorf(loc+".class.expected", "expected must be a single class name")
		}
	}
}

// hasVariable reports whether s is expanded at run time.
func hasVariable(s string) bool {
	return strings.Contains(s, "$")
}
