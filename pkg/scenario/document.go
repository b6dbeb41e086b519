package scenario

// The types below describe the on-disk scenario format. The loader decodes
// into them strictly and converts the result into the model; the validator
// reflects them into a JSON Schema.

// Document is a scenario file.
type Document struct {
	Name  string         `yaml:"name,omitempty" json:"name,omitempty"`
	Tests []TestDocument `yaml:"tests" json:"tests" jsonschema:"minItems=1"`
}

// TestDocument is one test and its children.
type TestDocument struct {
	Name       string              `yaml:"name" json:"name"`
	URL        string              `yaml:"url,omitempty" json:"url,omitempty"`
	Steps      []StepDocument      `yaml:"steps" json:"steps" jsonschema:"minItems=1"`
	Submit     *SubmitDocument     `yaml:"submit,omitempty" json:"submit,omitempty"`
	Assertions []AssertionDocument `yaml:"assertions,omitempty" json:"assertions,omitempty"`
	Children   []TestDocument      `yaml:"children,omitempty" json:"children,omitempty"`
}

// StepDocument holds exactly one step kind.
type StepDocument struct {
	Input    *InputStep    `yaml:"input,omitempty" json:"input,omitempty"`
	Click    *ClickStep    `yaml:"click,omitempty" json:"click,omitempty"`
	Checkbox *CheckboxStep `yaml:"checkbox,omitempty" json:"checkbox,omitempty"`
	Radio    *RadioStep    `yaml:"radio,omitempty" json:"radio,omitempty"`
	Select   *SelectStep   `yaml:"select,omitempty" json:"select,omitempty"`
	Dialog   *DialogStep   `yaml:"dialog,omitempty" json:"dialog,omitempty"`
}

// SubmitDocument is either one inline step kind (legacy) or a list of
// named sub-steps.
type SubmitDocument struct {
	StepDocument `yaml:",inline"`
	Steps        []SubmitStepDocument `yaml:"steps,omitempty" json:"steps,omitempty"`
	WaitAfterMs  int                  `yaml:"waitAfter,omitempty" json:"waitAfter,omitempty"`
}

// SubmitStepDocument is one named submit sub-step.
type SubmitStepDocument struct {
	Name         string `yaml:"name" json:"name"`
	Screenshot   bool   `yaml:"screenshot,omitempty" json:"screenshot,omitempty"`
	StepDocument `yaml:",inline"`
}

// AssertionDocument holds exactly one assertion kind.
type AssertionDocument struct {
	Text      *ValueAssertion     `yaml:"text,omitempty" json:"text,omitempty"`
	Value     *ValueAssertion     `yaml:"value,omitempty" json:"value,omitempty"`
	Style     *StyleAssertion     `yaml:"style,omitempty" json:"style,omitempty"`
	Attribute *AttributeAssertion `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Class     *ValueAssertion     `yaml:"class,omitempty" json:"class,omitempty"`
	Visible   *StateAssertion     `yaml:"visible,omitempty" json:"visible,omitempty"`
	Enabled   *StateAssertion     `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// ValueAssertion compares a string property.
type ValueAssertion struct {
	Selector Selector `yaml:"selector" json:"selector"`
	Expected string   `yaml:"expected" json:"expected"`
	Label    string   `yaml:"label,omitempty" json:"label,omitempty"`
}

// StyleAssertion compares a computed style property.
type StyleAssertion struct {
	Selector Selector `yaml:"selector" json:"selector"`
	Property string   `yaml:"property" json:"property"`
	Expected string   `yaml:"expected" json:"expected"`
	Label    string   `yaml:"label,omitempty" json:"label,omitempty"`
}

// AttributeAssertion compares an attribute value.
type AttributeAssertion struct {
	Selector Selector `yaml:"selector" json:"selector"`
	Name     string   `yaml:"name" json:"name"`
	Expected string   `yaml:"expected" json:"expected"`
	Label    string   `yaml:"label,omitempty" json:"label,omitempty"`
}

// StateAssertion compares a boolean state. Expected defaults to true.
type StateAssertion struct {
	Selector Selector `yaml:"selector" json:"selector"`
	Expected *bool    `yaml:"expected,omitempty" json:"expected,omitempty"`
	Label    string   `yaml:"label,omitempty" json:"label,omitempty"`
}
