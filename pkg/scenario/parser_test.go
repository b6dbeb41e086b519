package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devicelab-dev/browser-runner/pkg/core"
)

const loginYAML = `
name: Auth
tests:
  - name: login
    url: /login
    steps:
      - input:
          selector: {id: username}
          value: admin
      - input:
          selector: {name: password}
          value: secret
    submit:
      click:
        selector: {id: loginBtn}
        waitForNavigation: true
    assertions:
      - text:
          selector: {id: welcome}
          expected: "Welcome, admin!"
    children:
      - name: open-settings
        steps:
          - click:
              selector: "#settings"
        submit:
          click:
            selector: {xpath: "//button[@type='submit']"}
`

func TestParse_LoginSuite(t *testing.T) {
	suite, err := Parse([]byte(loginYAML), "login.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if suite.Name != "Auth" {
		t.Errorf("Name = %q, want Auth", suite.Name)
	}
	if len(suite.Tests) != 1 {
		t.Fatalf("expected 1 root test, got %d", len(suite.Tests))
	}

	root := suite.Tests[0]
	if root.Name != "login" || root.Case.URL != "/login" {
		t.Errorf("root = %q %q", root.Name, root.Case.URL)
	}
	if root.Case.SourcePath != "login.yaml" {
		t.Errorf("SourcePath = %q", root.Case.SourcePath)
	}
	if len(root.Case.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(root.Case.Steps))
	}

	input, ok := root.Case.Steps[0].(*InputStep)
	if !ok {
		t.Fatalf("expected InputStep, got %T", root.Case.Steps[0])
	}
	if input.Kind() != StepInput {
		t.Errorf("Kind() = %q, want input", input.Kind())
	}
	if input.Selector != (Selector{Strategy: StrategyID, Value: "username"}) {
		t.Errorf("Selector = %+v", input.Selector)
	}
	if input.Value != "admin" {
		t.Errorf("Value = %q, want admin", input.Value)
	}

	click, ok := root.Case.Submit.Step.(*ClickStep)
	if !ok {
		t.Fatalf("expected legacy ClickStep submit, got %T", root.Case.Submit.Step)
	}
	if !click.WaitForNavigation {
		t.Error("expected waitForNavigation")
	}

	if len(root.Case.Assertions) != 1 {
		t.Fatalf("expected 1 assertion, got %d", len(root.Case.Assertions))
	}
	a := root.Case.Assertions[0]
	if a.Kind != AssertText || a.Expected != "Welcome, admin!" {
		t.Errorf("assertion = %+v", a)
	}

	if len(root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Children))
	}
	child := root.Children[0]
	childClick := child.Case.Steps[0].(*ClickStep)
	if childClick.Selector.Strategy != StrategyCSS || childClick.Selector.Value != "#settings" {
		t.Errorf("child selector = %+v", childClick.Selector)
	}
	xp := child.Case.Submit.Step.(*ClickStep)
	if xp.Selector.Strategy != StrategyXPath {
		t.Errorf("child submit strategy = %q, want xpath", xp.Selector.Strategy)
	}
}

func TestParse_JSON(t *testing.T) {
	doc := `{
  "tests": [{
    "name": "agree",
    "steps": [
      {"checkbox": {"selector": {"strategy": "id", "value": "terms"}, "checked": false}},
      {"select": {"selector": {"id": "country"}, "by": "index", "index": 2, "verify": true}}
    ],
    "submit": {"click": {"selector": {"id": "go"}}}
  }]
}`
	suite, err := Parse([]byte(doc), "agree.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := suite.Tests[0].Case.Steps
	cb := steps[0].(*CheckboxStep)
	if cb.Want() {
		t.Error("checkbox Want() = true, want false")
	}
	sel := steps[1].(*SelectStep)
	if sel.Mode() != SelectByIndex || sel.Index == nil || *sel.Index != 2 || !sel.Verify {
		t.Errorf("select = %+v", sel)
	}
}

func TestParse_DialogAndSubmitSequence(t *testing.T) {
	doc := `
tests:
  - name: delete
    steps:
      - click:
          selector: {id: delete}
      - dialog:
          expect: confirm
          action: accept
    submit:
      steps:
        - name: rename
          screenshot: true
          click:
            selector: {id: rename}
        - name: prompt
          dialog:
            expect: prompt
            promptValue: new-name
            waitForNavigation: true
            postNavigationWait: 200
      waitAfter: 300
`
	suite, err := Parse([]byte(doc), "d.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tc := suite.Tests[0].Case
	d, ok := tc.Steps[1].(*DialogStep)
	if !ok {
		t.Fatalf("expected DialogStep, got %T", tc.Steps[1])
	}
	if d.Expect != core.DialogConfirm || d.ResolvedAction() != DialogAccept {
		t.Errorf("dialog = %+v", d.DialogExpectation)
	}

	if tc.Submit.Step != nil {
		t.Error("legacy submit step should be nil")
	}
	if tc.Submit.WaitAfterMs != 300 {
		t.Errorf("WaitAfterMs = %d, want 300", tc.Submit.WaitAfterMs)
	}
	seq := tc.Submit.Sequence()
	if len(seq) != 2 {
		t.Fatalf("expected 2 submit sub-steps, got %d", len(seq))
	}
	if seq[0].Name != "rename" || !seq[0].Screenshot {
		t.Errorf("sub-step 0 = %+v", seq[0])
	}
	prompt := seq[1].Step.(*DialogStep)
	if prompt.PromptValue != "new-name" || !prompt.WaitForNavigation || prompt.PostNavigationWaitMs != 200 {
		t.Errorf("prompt = %+v", prompt.DialogExpectation)
	}
}

func TestParse_StateAssertionDefaultsTrue(t *testing.T) {
	doc := `
tests:
  - name: t
    steps:
      - click: {selector: {id: a}}
    assertions:
      - visible: {selector: {id: banner}}
      - enabled: {selector: {id: save}, expected: false}
      - attribute: {selector: {id: link}, name: href, expected: /home}
`
	suite, err := Parse([]byte(doc), "t.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	as := suite.Tests[0].Case.Assertions
	if !as[0].ExpectedBool || !as[0].IsBoolean() {
		t.Errorf("visible = %+v", as[0])
	}
	if as[1].ExpectedBool {
		t.Errorf("enabled = %+v", as[1])
	}
	if as[2].Property != "href" || as[2].Expected != "/home" {
		t.Errorf("attribute = %+v", as[2])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"empty", "", "empty scenario file"},
		{"no tests", "name: x\n", "no tests defined"},
		{"unknown field", "tests:\n  - name: t\n    steps:\n      - click: {selector: {id: a}, bogus: 1}\n", "bogus"},
		{"unknown step kind", "tests:\n  - name: t\n    steps:\n      - hover: {selector: {id: a}}\n", "hover"},
		{"two kinds", "tests:\n  - name: t\n    steps:\n      - click: {selector: {id: a}}\n        input: {selector: {id: b}}\n", "tests[0].steps[0]: step must declare exactly one kind, got 2 (input, click)"},
		{"zero kinds", "tests:\n  - name: t\n    steps:\n      - {}\n", "exactly one kind, got 0"},
		{"inline and steps", "tests:\n  - name: t\n    steps:\n      - click: {selector: {id: a}}\n    submit:\n      click: {selector: {id: b}}\n      steps:\n        - name: x\n          click: {selector: {id: c}}\n", "both an inline step and steps"},
		{"two selector keys", "tests:\n  - name: t\n    steps:\n      - click: {selector: {id: a, css: b}}\n", "exactly one strategy key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "bad.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseError_Error(t *testing.T) {
	e := &ParseError{Path: "a.yaml", Line: 3, Message: "boom"}
	if e.Error() != "a.yaml:3: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
	e.Line = 0
	if e.Error() != "a.yaml: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestLoadPath_Directory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	one := "tests:\n  - name: %s\n    steps:\n      - click: {selector: {id: a}}\n"
	write("b.yaml", strings.Replace(one, "%s", "second", 1))
	write("a.yml", strings.Replace(one, "%s", "first", 1))
	write("config.yaml", "execution:\n  stepDelay: 10\n")
	write("notes.txt", "ignored")

	suites, err := LoadPath(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suites) != 2 {
		t.Fatalf("expected 2 suites, got %d", len(suites))
	}

	roots := Roots(suites)
	if roots[0].Name != "first" || roots[1].Name != "second" {
		t.Errorf("roots = %q, %q", roots[0].Name, roots[1].Name)
	}
}

func TestLoadPath_EmptyDirectory(t *testing.T) {
	if _, err := LoadPath(t.TempDir()); err == nil {
		t.Error("expected error for directory without scenarios")
	}
}

func TestCountTests(t *testing.T) {
	nodes := []TestNode{
		{Name: "a", Children: []TestNode{{Name: "a1"}, {Name: "a2", Children: []TestNode{{Name: "a2x"}}}}},
		{Name: "b"},
	}
	if got := CountTests(nodes); got != 5 {
		t.Errorf("CountTests() = %d, want 5", got)
	}
}
