// Package scenario holds the typed test model (test nodes, cases, steps,
// selectors, assertions) and the loader that builds it from YAML or JSON.
package scenario

// Suite is one parsed scenario file.
type Suite struct {
	Name       string     // Optional display name
	SourcePath string     // Path to the source file
	Tests      []TestNode // Root test nodes in declared order
}

// TestNode is a node of the execution tree. Children only run when the
// node's own case passes, and they continue on the parent's page.
type TestNode struct {
	Name     string
	Case     TestCase
	Children []TestNode
}

// TestCase is one independently assertable unit of work.
type TestCase struct {
	Name       string
	URL        string // Empty means the configured base URL
	Steps      []Step
	Submit     Submit
	Assertions []Assertion
	SourcePath string // Scenario file, used to resolve valueFile paths
}

// Submit is the terminal action of a test case. Either Step (legacy single
// step) or Steps (named sub-steps) is set.
type Submit struct {
	Step        Step
	Steps       []SubmitStep
	WaitAfterMs int
}

// SubmitStep is one named sub-step of a submit sequence.
type SubmitStep struct {
	Name       string
	Step       Step
	Screenshot bool // Capture a screenshot after this sub-step
}

// IsEmpty reports whether no submit action was declared.
func (s Submit) IsEmpty() bool {
	return s.Step == nil && len(s.Steps) == 0
}

// Sequence returns the submit action as an ordered list of sub-steps.
// A legacy single step becomes one unnamed sub-step.
func (s Submit) Sequence() []SubmitStep {
	if s.Step != nil {
		return []SubmitStep{{Name: "submit", Step: s.Step}}
	}
	return s.Steps
}

// AssertionKind identifies what an assertion compares.
type AssertionKind string

// Assertion kinds.
const (
	AssertText      AssertionKind = "text"      // Trimmed text content
	AssertValue     AssertionKind = "value"     // Input value
	AssertStyle     AssertionKind = "style"     // Computed style property
	AssertAttribute AssertionKind = "attribute" // Attribute value
	AssertClass     AssertionKind = "class"     // CSS class membership
	AssertVisible   AssertionKind = "visible"
	AssertEnabled   AssertionKind = "enabled"
)

// Assertion compares one property of an element against an expected value.
type Assertion struct {
	Kind         AssertionKind
	Selector     Selector
	Expected     string // For text, value, style, attribute, class
	ExpectedBool bool   // For visible, enabled
	Property     string // Style property or attribute name
	Label        string
}

// IsBoolean reports whether the assertion compares a boolean state.
func (a Assertion) IsBoolean() bool {
	return a.Kind == AssertVisible || a.Kind == AssertEnabled
}

// Describe returns a human-readable description.
func (a Assertion) Describe() string {
	if a.Label != "" {
		return a.Label
	}
	d := string(a.Kind)
	if a.Property != "" {
		d += "[" + a.Property + "]"
	}
	return d + " " + a.Selector.String()
}

// CountTests returns the number of nodes in the given trees.
func CountTests(nodes []TestNode) int {
	n := 0
	for _, node := range nodes {
		n += 1 + CountTests(node.Children)
	}
	return n
}
