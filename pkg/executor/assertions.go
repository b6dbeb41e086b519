package executor

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

// Assert evaluates one assertion against the page.
func Assert(resolver *SelectorResolver, a scenario.Assertion) error {
	if a.Kind == scenario.AssertVisible {
		return assertVisible(resolver, a)
	}

	el, err := resolver.Resolve(a.Selector)
	if err != nil {
		return err
	}

	switch a.Kind {
	case scenario.AssertText:
		text, err := el.TextContent()
		if err != nil {
			return err
		}
		return compare(a, strings.TrimSpace(a.Expected), strings.TrimSpace(text))

	case scenario.AssertValue:
		value, err := el.InputValue()
		if err != nil {
			return err
		}
		return compare(a, a.Expected, value)

	case scenario.AssertStyle:
		value, err := el.StyleProperty(a.Property)
		if err != nil {
			return err
		}
		return compare(a, strings.TrimSpace(a.Expected), strings.TrimSpace(value))

	case scenario.AssertAttribute:
		value, ok, err := el.Attribute(a.Property)
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrAssertionFailed.
				WithMessagef("attribute %q is not present", a.Property).
				WithDetails(map[string]interface{}{"expected": a.Expected})
		}
		return compare(a, a.Expected, value)

	case scenario.AssertClass:
		class, _, err := el.Attribute("class")
		if err != nil {
			return err
		}
		for _, c := range strings.Fields(class) {
			if c == a.Expected {
				return nil
			}
		}
		return core.ErrAssertionFailed.
			WithMessagef("class %q not in %q", a.Expected, class).
			WithDetails(map[string]interface{}{"expected": a.Expected, "actual": class})

	case scenario.AssertEnabled:
		enabled, err := el.IsEnabled()
		if err != nil {
			return err
		}
		if enabled != a.ExpectedBool {
			return core.ErrAssertionFailed.WithMessagef("expected enabled=%t, got %t", a.ExpectedBool, enabled)
		}
		return nil

	default:
		return core.ErrAssertionFailed.WithMessagef("unknown assertion kind %q", a.Kind)
	}
}

func assertVisible(resolver *SelectorResolver, a scenario.Assertion) error {
	if !a.ExpectedBool {
		if err := resolver.WaitHidden(a.Selector); err != nil {
			if core.CodeOf(err) == core.CodeUnknownSelectorStrategy {
				return err
			}
			return core.ErrAssertionFailed.WithMessagef("expected %s to be hidden", a.Selector).WithCause(err)
		}
		return nil
	}

	if _, err := resolver.Resolve(a.Selector); err != nil {
		if core.CodeOf(err) == core.CodeUnknownSelectorStrategy {
			return err
		}
		return core.ErrAssertionFailed.WithMessagef("expected %s to be visible", a.Selector)
	}
	return nil
}

func compare(a scenario.Assertion, expected, actual string) error {
	if expected == actual {
		return nil
	}
	return core.ErrAssertionFailed.
		WithMessage(fmt.Sprintf("%s: expected %q, got %q", a.Kind, expected, actual)).
		WithDetails(map[string]interface{}{"expected": expected, "actual": actual})
}
