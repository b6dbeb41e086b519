package executor

import (
	"errors"
	"testing"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/driver/mock"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

func assertionPage() *SelectorResolver {
	page := mock.New(mock.Config{})
	page.Add("#title", &mock.Element{Text: "  Welcome back \n"})
	page.Add("#email", &mock.Element{Value: "a@b.c"})
	page.Add("#banner", &mock.Element{
		Styles:     map[string]string{"color": " rgb(255, 0, 0)"},
		Attributes: map[string]string{"class": "alert alert-success", "role": "status"},
	})
	page.Add("#save", &mock.Element{Disabled: true})
	page.Add("#spinner", &mock.Element{Hidden: true})
	return NewSelectorResolver(page, 20*time.Millisecond)
}

func TestAssert(t *testing.T) {
	r := assertionPage()

	tests := []struct {
		name    string
		a       scenario.Assertion
		wantErr bool
	}{
		{"text trimmed", scenario.Assertion{Kind: scenario.AssertText, Selector: byID("title"), Expected: "Welcome back"}, false},
		{"text mismatch", scenario.Assertion{Kind: scenario.AssertText, Selector: byID("title"), Expected: "Hello"}, true},
		{"value", scenario.Assertion{Kind: scenario.AssertValue, Selector: byID("email"), Expected: "a@b.c"}, false},
		{"value exact", scenario.Assertion{Kind: scenario.AssertValue, Selector: byID("email"), Expected: "a@b.c "}, true},
		{"style", scenario.Assertion{Kind: scenario.AssertStyle, Selector: byID("banner"), Property: "color", Expected: "rgb(255, 0, 0)"}, false},
		{"attribute", scenario.Assertion{Kind: scenario.AssertAttribute, Selector: byID("banner"), Property: "role", Expected: "status"}, false},
		{"attribute absent", scenario.Assertion{Kind: scenario.AssertAttribute, Selector: byID("banner"), Property: "aria-live", Expected: ""}, true},
		{"class member", scenario.Assertion{Kind: scenario.AssertClass, Selector: byID("banner"), Expected: "alert-success"}, false},
		{"class substring only", scenario.Assertion{Kind: scenario.AssertClass, Selector: byID("banner"), Expected: "success"}, true},
		{"enabled false", scenario.Assertion{Kind: scenario.AssertEnabled, Selector: byID("save"), ExpectedBool: false}, false},
		{"enabled true", scenario.Assertion{Kind: scenario.AssertEnabled, Selector: byID("save"), ExpectedBool: true}, true},
		{"visible", scenario.Assertion{Kind: scenario.AssertVisible, Selector: byID("title"), ExpectedBool: true}, false},
		{"visible missing", scenario.Assertion{Kind: scenario.AssertVisible, Selector: byID("nope"), ExpectedBool: true}, true},
		{"hidden", scenario.Assertion{Kind: scenario.AssertVisible, Selector: byID("spinner"), ExpectedBool: false}, false},
		{"hidden but visible", scenario.Assertion{Kind: scenario.AssertVisible, Selector: byID("title"), ExpectedBool: false}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Assert(r, tt.a)
			if tt.wantErr {
				if !errors.Is(err, core.ErrAssertionFailed) {
					t.Errorf("expected ErrAssertionFailed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAssert_MissingElement(t *testing.T) {
	err := Assert(assertionPage(), textAssertion("missing", "x"))
	if !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
}

func TestAssert_UnknownStrategy(t *testing.T) {
	a := scenario.Assertion{Kind: scenario.AssertVisible, Selector: scenario.Selector{Strategy: "label", Value: "x"}, ExpectedBool: true}
	err := Assert(assertionPage(), a)
	if core.CodeOf(err) != core.CodeUnknownSelectorStrategy {
		t.Errorf("code = %q, want unknown_selector_strategy", core.CodeOf(err))
	}
}

func TestAssert_MismatchMessage(t *testing.T) {
	err := Assert(assertionPage(), textAssertion("title", "Hello"))
	want := `text: expected "Hello", got "Welcome back"`
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}
