package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single scenario file.
func ParseFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided scenario file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses YAML or JSON scenario content. Unknown fields are errors.
func Parse(data []byte, sourcePath string) (*Suite, error) {
	doc, err := Decode(data, sourcePath)
	if err != nil {
		return nil, err
	}

	suite := &Suite{Name: doc.Name, SourcePath: sourcePath}
	for i := range doc.Tests {
		node, err := buildNode(&doc.Tests[i], sourcePath, fmt.Sprintf("tests[%d]", i))
		if err != nil {
			return nil, err
		}
		suite.Tests = append(suite.Tests, node)
	}
	return suite, nil
}

// Decode strictly decodes content into the document form without building the model.
func Decode(data []byte, sourcePath string) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty scenario file"}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty scenario file"}
		}
		return nil, &ParseError{Path: sourcePath, Message: err.Error()}
	}
	if len(doc.Tests) == 0 {
		return nil, &ParseError{Path: sourcePath, Message: "no tests defined"}
	}
	return &doc, nil
}

func buildNode(td *TestDocument, sourcePath, loc string) (TestNode, error) {
	tc := TestCase{
		Name:       td.Name,
		URL:        td.URL,
		SourcePath: sourcePath,
	}

	for i := range td.Steps {
		step, err := buildStep(&td.Steps[i], sourcePath, fmt.Sprintf("%s.steps[%d]", loc, i))
		if err != nil {
			return TestNode{}, err
		}
		tc.Steps = append(tc.Steps, step)
	}

	if td.Submit != nil {
		submit, err := buildSubmit(td.Submit, sourcePath, loc+".submit")
		if err != nil {
			return TestNode{}, err
		}
		tc.Submit = submit
	}

	for i := range td.Assertions {
		a, err := buildAssertion(&td.Assertions[i], sourcePath, fmt.Sprintf("%s.assertions[%d]", loc, i))
		if err != nil {
			return TestNode{}, err
		}
		tc.Assertions = append(tc.Assertions, a)
	}

	node := TestNode{Name: td.Name, Case: tc}
	for i := range td.Children {
		child, err := buildNode(&td.Children[i], sourcePath, fmt.Sprintf("%s.children[%d]", loc, i))
		if err != nil {
			return TestNode{}, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// kinds returns the declared step kinds in a fixed order.
func (d *StepDocument) kinds() []string {
	var out []string
	if d.Input != nil {
		out = append(out, string(StepInput))
	}
	if d.Click != nil {
		out = append(out, string(StepClick))
	}
	if d.Checkbox != nil {
		out = append(out, string(StepCheckbox))
	}
	if d.Radio != nil {
		out = append(out, string(StepRadio))
	}
	if d.Select != nil {
		out = append(out, string(StepSelect))
	}
	if d.Dialog != nil {
		out = append(out, string(StepDialog))
	}
	return out
}

func (d *StepDocument) isEmpty() bool {
	return len(d.kinds()) == 0
}

func buildStep(d *StepDocument, sourcePath, loc string) (Step, error) {
	kinds := d.kinds()
	if len(kinds) != 1 {
		return nil, &ParseError{
			Path:    sourcePath,
			Message: fmt.Sprintf("%s: step must declare exactly one kind, got %d (%s)", loc, len(kinds), strings.Join(kinds, ", ")),
		}
	}

	switch {
	case d.Input != nil:
		d.Input.StepKind = StepInput
		return d.Input, nil
	case d.Click != nil:
		d.Click.StepKind = StepClick
		return d.Click, nil
	case d.Checkbox != nil:
		d.Checkbox.StepKind = StepCheckbox
		return d.Checkbox, nil
	case d.Radio != nil:
		d.Radio.StepKind = StepRadio
		return d.Radio, nil
	case d.Select != nil:
		d.Select.StepKind = StepSelect
		return d.Select, nil
	default:
		d.Dialog.StepKind = StepDialog
		return d.Dialog, nil
	}
}

func buildSubmit(d *SubmitDocument, sourcePath, loc string) (Submit, error) {
	s := Submit{WaitAfterMs: d.WaitAfterMs}

	if !d.StepDocument.isEmpty() {
		if len(d.Steps) > 0 {
			return Submit{}, &ParseError{
				Path:    sourcePath,
				Message: loc + ": submit declares both an inline step and steps",
			}
		}
		step, err := buildStep(&d.StepDocument, sourcePath, loc)
		if err != nil {
			return Submit{}, err
		}
		s.Step = step
		return s, nil
	}

	for i := range d.Steps {
		sd := &d.Steps[i]
		step, err := buildStep(&sd.StepDocument, sourcePath, fmt.Sprintf("%s.steps[%d]", loc, i))
		if err != nil {
			return Submit{}, err
		}
		s.Steps = append(s.Steps, SubmitStep{Name: sd.Name, Step: step, Screenshot: sd.Screenshot})
	}
	return s, nil
}

func buildAssertion(d *AssertionDocument, sourcePath, loc string) (Assertion, error) {
	var out []Assertion
	if d.Text != nil {
		out = append(out, Assertion{Kind: AssertText, Selector: d.Text.Selector, Expected: d.Text.Expected, Label: d.Text.Label})
	}
	if d.Value != nil {
		out = append(out, Assertion{Kind: AssertValue, Selector: d.Value.Selector, Expected: d.Value.Expected, Label: d.Value.Label})
	}
	if d.Style != nil {
		out = append(out, Assertion{Kind: AssertStyle, Selector: d.Style.Selector, Property: d.Style.Property, Expected: d.Style.Expected, Label: d.Style.Label})
	}
	if d.Attribute != nil {
		out = append(out, Assertion{Kind: AssertAttribute, Selector: d.Attribute.Selector, Property: d.Attribute.Name, Expected: d.Attribute.Expected, Label: d.Attribute.Label})
	}
	if d.Class != nil {
		out = append(out, Assertion{Kind: AssertClass, Selector: d.Class.Selector, Expected: d.Class.Expected, Label: d.Class.Label})
	}
	if d.Visible != nil {
		out = append(out, stateAssertion(AssertVisible, d.Visible))
	}
	if d.Enabled != nil {
		out = append(out, stateAssertion(AssertEnabled, d.Enabled))
	}

	if len(out) != 1 {
		kinds := make([]string, len(out))
		for i, a := range out {
			kinds[i] = string(a.Kind)
		}
		return Assertion{}, &ParseError{
			Path:    sourcePath,
			Message: fmt.Sprintf("%s: assertion must declare exactly one kind, got %d (%s)", loc, len(out), strings.Join(kinds, ", ")),
		}
	}
	return out[0], nil
}

func stateAssertion(kind AssertionKind, s *StateAssertion) Assertion {
	expected := true
	if s.Expected != nil {
		expected = *s.Expected
	}
	return Assertion{Kind: kind, Selector: s.Selector, ExpectedBool: expected, Label: s.Label}
}

// IsScenarioFile reports whether path looks like a scenario file.
// config.yaml and config.yml are reserved for run configuration.
func IsScenarioFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if base == "config.yaml" || base == "config.yml" {
		return false
	}
	switch filepath.Ext(base) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// CollectFiles returns the scenario files under path in lexical order.
// A file path is returned as-is.
func CollectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsScenarioFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// LoadPath parses a scenario file or every scenario file in a directory.
func LoadPath(path string) ([]*Suite, error) {
	files, err := CollectFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", path)
	}

	suites := make([]*Suite, 0, len(files))
	for _, f := range files {
		suite, err := ParseFile(f)
		if err != nil {
			return nil, err
		}
		suites = append(suites, suite)
	}
	return suites, nil
}

// Roots concatenates the root nodes of all suites in order.
func Roots(suites []*Suite) []TestNode {
	var roots []TestNode
	for _, s := range suites {
		roots = append(roots, s.Tests...)
	}
	return roots
}
