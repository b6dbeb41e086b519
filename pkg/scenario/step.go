package scenario

import (
	"strconv"

	"github.com/devicelab-dev/browser-runner/pkg/core"
)

// StepKind represents the kind of step.
type StepKind string

// Step kinds. The set is closed.
const (
	StepInput    StepKind = "input"
	StepClick    StepKind = "click"
	StepCheckbox StepKind = "checkbox"
	StepRadio    StepKind = "radio"
	StepSelect   StepKind = "select"
	StepDialog   StepKind = "dialog"
)

// IsStepKind reports whether key names a step kind.
func IsStepKind(key string) bool {
	switch StepKind(key) {
	case StepInput, StepClick, StepCheckbox, StepRadio, StepSelect, StepDialog:
		return true
	}
	return false
}

// Step is the interface for all scenario steps.
type Step interface {
	Kind() StepKind
	Label() string
	Describe() string
}

// BaseStep contains common fields for all steps.
type BaseStep struct {
	StepKind  StepKind `yaml:"-" json:"-"`
	StepLabel string   `yaml:"label,omitempty" json:"label,omitempty"`
}

// Kind returns the step kind.
func (b *BaseStep) Kind() StepKind { return b.StepKind }

// Label returns the step label.
func (b *BaseStep) Label() string { return b.StepLabel }

// InputStep replaces the value of a text field.
type InputStep struct {
	BaseStep  `yaml:",inline"`
	Selector  Selector `yaml:"selector" json:"selector"`
	Value     string   `yaml:"value,omitempty" json:"value,omitempty"`
	ValueFile string   `yaml:"valueFile,omitempty" json:"valueFile,omitempty"` // Relative to the scenario file
}

// ClickStep clicks an element, optionally waiting for the navigation it causes.
type ClickStep struct {
	BaseStep          `yaml:",inline"`
	Selector          Selector `yaml:"selector" json:"selector"`
	WaitForNavigation bool     `yaml:"waitForNavigation,omitempty" json:"waitForNavigation,omitempty"`
	WaitAfterMs       int      `yaml:"waitAfter,omitempty" json:"waitAfter,omitempty"`
}

// CheckboxStep sets a checkbox to the desired state.
type CheckboxStep struct {
	BaseStep `yaml:",inline"`
	Selector Selector `yaml:"selector" json:"selector"`
	Checked  *bool    `yaml:"checked,omitempty" json:"checked,omitempty"` // Default: true
}

// Want returns the desired checked state.
func (s *CheckboxStep) Want() bool {
	return s.Checked == nil || *s.Checked
}

// RadioStep selects a radio button.
type RadioStep struct {
	BaseStep `yaml:",inline"`
	Selector Selector `yaml:"selector" json:"selector"`
	Value    string   `yaml:"value,omitempty" json:"value,omitempty"`
	Verify   bool     `yaml:"verify,omitempty" json:"verify,omitempty"`
}

// SelectBy is the option addressing mode of a select step.
type SelectBy string

// Select addressing modes.
const (
	SelectByValue SelectBy = "value"
	SelectByLabel SelectBy = "label"
	SelectByIndex SelectBy = "index"
)

// SelectStep chooses one option of a <select>.
type SelectStep struct {
	BaseStep `yaml:",inline"`
	Selector Selector `yaml:"selector" json:"selector"`
	By       SelectBy `yaml:"by,omitempty" json:"by,omitempty" jsonschema:"enum=value,enum=label,enum=index"`
	Value    string   `yaml:"value,omitempty" json:"value,omitempty"` // Option value or label
	Index    *int     `yaml:"index,omitempty" json:"index,omitempty"`
	Verify   bool     `yaml:"verify,omitempty" json:"verify,omitempty"`
}

// Mode returns the addressing mode, defaulting to value.
func (s *SelectStep) Mode() SelectBy {
	if s.By == "" {
		return SelectByValue
	}
	return s.By
}

// DialogAction is how a dialog is resolved.
type DialogAction string

// Dialog actions.
const (
	DialogAccept  DialogAction = "accept"
	DialogDismiss DialogAction = "dismiss"
)

// DialogExpectation describes one native dialog a triggering action must produce.
type DialogExpectation struct {
	Expect               core.DialogKind `yaml:"expect,omitempty" json:"expect,omitempty" jsonschema:"enum=alert,enum=confirm,enum=prompt,enum=beforeunload"`
	Action               DialogAction    `yaml:"action,omitempty" json:"action,omitempty" jsonschema:"enum=accept,enum=dismiss"`
	PromptValue          string          `yaml:"promptValue,omitempty" json:"promptValue,omitempty"`
	WaitForNavigation    bool            `yaml:"waitForNavigation,omitempty" json:"waitForNavigation,omitempty"`
	PostNavigationWaitMs int             `yaml:"postNavigationWait,omitempty" json:"postNavigationWait,omitempty"`
}

// ResolvedAction returns the action, defaulting to accept.
func (d DialogExpectation) ResolvedAction() DialogAction {
	if d.Action == "" {
		return DialogAccept
	}
	return d.Action
}

// DialogStep handles the dialog produced by the click just before it.
type DialogStep struct {
	BaseStep          `yaml:",inline"`
	DialogExpectation `yaml:",inline"`
}

// Describe returns a human-readable description of the input step.
func (s *InputStep) Describe() string {
	if s.ValueFile != "" {
		return "input " + s.Selector.String() + " < " + s.ValueFile
	}
	return "input " + s.Selector.String()
}

// Describe returns a human-readable description of the click step.
func (s *ClickStep) Describe() string {
	return "click " + s.Selector.String()
}

// Describe returns a human-readable description of the checkbox step.
func (s *CheckboxStep) Describe() string {
	return "checkbox " + s.Selector.String() + " = " + strconv.FormatBool(s.Want())
}

// Describe returns a human-readable description of the radio step.
func (s *RadioStep) Describe() string {
	return "radio " + s.Selector.String()
}

// Describe returns a human-readable description of the select step.
func (s *SelectStep) Describe() string {
	d := "select " + s.Selector.String() + " by " + string(s.Mode())
	if s.Mode() == SelectByIndex && s.Index != nil {
		return d + " " + strconv.Itoa(*s.Index)
	}
	return d + " " + strconv.Quote(s.Value)
}

// Describe returns a human-readable description of the dialog step.
func (s *DialogStep) Describe() string {
	if s.Expect != "" {
		return "dialog " + string(s.Expect) + " " + string(s.ResolvedAction())
	}
	return "dialog " + string(s.ResolvedAction())
}
