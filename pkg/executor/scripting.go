package executor

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/devicelab-dev/browser-runner/pkg/jsengine"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

// envVarPattern matches ALL_CAPS identifiers that look like env variables
var envVarPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,}$`)

// ScriptEngine holds run variables and expands them in scenario values.
type ScriptEngine struct {
	js        *jsengine.Engine
	variables map[string]string
}

// NewScriptEngine creates a new script engine.
func NewScriptEngine() *ScriptEngine {
	return &ScriptEngine{
		js:        jsengine.New(),
		variables: make(map[string]string),
	}
}

// Close cleans up the script engine.
func (se *ScriptEngine) Close() {
	if se.js != nil {
		se.js.Close()
	}
}

// SetVariable sets a variable in both Go map and JS engine.
func (se *ScriptEngine) SetVariable(name, value string) {
	se.variables[name] = value
	se.js.SetVariable(name, value)
}

// SetVariables sets multiple variables.
func (se *ScriptEngine) SetVariables(vars map[string]string) {
	for k, v := range vars {
		se.SetVariable(k, v)
	}
}

// ImportSystemEnv imports upper-case process environment variables.
func (se *ScriptEngine) ImportSystemEnv() {
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if ok && envVarPattern.MatchString(name) {
			se.SetVariable(name, value)
		}
	}
}

// GetVariable returns a variable value.
func (se *ScriptEngine) GetVariable(name string) string {
	return se.variables[name]
}

// SetTestName exposes the current test as runner.testName.
func (se *ScriptEngine) SetTestName(name string) {
	se.js.SetTestName(name)
}

// SetBaseURL exposes the base URL as runner.baseUrl.
func (se *ScriptEngine) SetBaseURL(url string) {
	se.js.SetBaseURL(url)
}

// ExpandVariables expands ${expr} and $VAR syntax in text.
func (se *ScriptEngine) ExpandVariables(text string) (string, error) {
	if !strings.Contains(text, "$") {
		return text, nil
	}

	// First pass: JS engine for ${expression} syntax
	result, err := se.js.ExpandVariables(text)
	if err != nil {
		return "", err
	}

	// Second pass: $VAR, longest names first to avoid partial matches
	names := make([]string, 0, len(se.variables))
	for name := range se.variables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})
	for _, name := range names {
		result = expandDollarVar(result, name, se.variables[name])
	}
	return result, nil
}

// expandDollarVar replaces $VAR with value, checking word boundaries.
func expandDollarVar(text, name, value string) string {
	pattern := "$" + name
	idx := 0
	for {
		pos := strings.Index(text[idx:], pattern)
		if pos == -1 {
			break
		}
		pos += idx

		// Followed by an identifier character means a different variable
		endPos := pos + len(pattern)
		if endPos < len(text) {
			next := text[endPos]
			if (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') ||
				(next >= '0' && next <= '9') || next == '_' {
				idx = endPos
				continue
			}
		}

		text = text[:pos] + value + text[endPos:]
		idx = pos + len(value)
	}
	return text
}

// expansion accumulates the first expansion error.
type expansion struct {
	se  *ScriptEngine
	err error
}

func (x *expansion) str(s string) string {
	if x.err != nil {
		return s
	}
	out, err := x.se.ExpandVariables(s)
	if err != nil {
		x.err = err
		return s
	}
	return out
}

func (x *expansion) selector(sel scenario.Selector) scenario.Selector {
	sel.Value = x.str(sel.Value)
	return sel
}

// ExpandCase returns a copy of tc with variables expanded in its URL,
// selectors, values and expectations. tc itself is never modified.
func (se *ScriptEngine) ExpandCase(tc scenario.TestCase) (scenario.TestCase, error) {
	x := &expansion{se: se}
	out := tc
	out.URL = x.str(tc.URL)

	out.Steps = make([]scenario.Step, len(tc.Steps))
	for i, s := range tc.Steps {
		out.Steps[i] = x.step(s)
	}

	out.Submit = scenario.Submit{WaitAfterMs: tc.Submit.WaitAfterMs}
	if tc.Submit.Step != nil {
		out.Submit.Step = x.step(tc.Submit.Step)
	}
	if len(tc.Submit.Steps) > 0 {
		out.Submit.Steps = make([]scenario.SubmitStep, len(tc.Submit.Steps))
		for i, ss := range tc.Submit.Steps {
			ss.Step = x.step(ss.Step)
			out.Submit.Steps[i] = ss
		}
	}

	out.Assertions = make([]scenario.Assertion, len(tc.Assertions))
	for i, a := range tc.Assertions {
		a.Selector = x.selector(a.Selector)
		a.Expected = x.str(a.Expected)
		a.Property = x.str(a.Property)
		out.Assertions[i] = a
	}

	if x.err != nil {
		return tc, x.err
	}
	return out, nil
}

// step returns an expanded copy of step.
func (x *expansion) step(step scenario.Step) scenario.Step {
	switch s := step.(type) {
	case *scenario.InputStep:
		c := *s
		c.Selector = x.selector(s.Selector)
		c.Value = x.str(s.Value)
		c.ValueFile = x.str(s.ValueFile)
		return &c
	case *scenario.ClickStep:
		c := *s
		c.Selector = x.selector(s.Selector)
		return &c
	case *scenario.CheckboxStep:
		c := *s
		c.Selector = x.selector(s.Selector)
		return &c
	case *scenario.RadioStep:
		c := *s
		c.Selector = x.selector(s.Selector)
		c.Value = x.str(s.Value)
		return &c
	case *scenario.SelectStep:
		c := *s
		c.Selector = x.selector(s.Selector)
		c.Value = x.str(s.Value)
		return &c
	case *scenario.DialogStep:
		c := *s
		c.PromptValue = x.str(s.PromptValue)
		return &c
	default:
		return step
	}
}
