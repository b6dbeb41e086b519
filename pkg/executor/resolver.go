package executor

import (
	"strings"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

// SelectorResolver maps selectors to live elements.
type SelectorResolver struct {
	page    core.Page
	timeout time.Duration
}

// NewSelectorResolver creates a resolver waiting up to timeout per lookup.
func NewSelectorResolver(page core.Page, timeout time.Duration) *SelectorResolver {
	return &SelectorResolver{page: page, timeout: timeout}
}

// Expression returns the engine selector expression for sel.
func Expression(sel scenario.Selector) (string, error) {
	switch sel.Strategy {
	case scenario.StrategyID:
		return "#" + sel.Value, nil
	case scenario.StrategyName:
		return `[name="` + escapeAttr(sel.Value) + `"]`, nil
	case scenario.StrategyCSS:
		return sel.Value, nil
	case scenario.StrategyXPath:
		return "xpath=" + sel.Value, nil
	default:
		return "", core.ErrUnknownSelectorStrategy.
			WithMessagef("unknown selector strategy %q", sel.Strategy).
			WithDetails(map[string]interface{}{"selector": sel.String()})
	}
}

func escapeAttr(v string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}

// Resolve waits for the first visible element matching sel.
// An unknown strategy fails before any wait.
func (r *SelectorResolver) Resolve(sel scenario.Selector) (core.Element, error) {
	expr, err := Expression(sel)
	if err != nil {
		return nil, err
	}

	el, err := r.page.WaitForElement(expr, r.timeout)
	if err != nil {
		return nil, core.ErrElementNotFound.
			WithMessagef("element not found: %s", sel).
			WithDetails(map[string]interface{}{"selector": sel.String(), "timeout": r.timeout.String()}).
			WithCause(err)
	}
	if el == nil {
		return nil, core.ErrElementNotFound.
			WithMessagef("element not found: %s", sel).
			WithDetails(map[string]interface{}{"selector": sel.String()})
	}
	return el, nil
}

// WaitHidden waits until no element matching sel is visible.
func (r *SelectorResolver) WaitHidden(sel scenario.Selector) error {
	expr, err := Expression(sel)
	if err != nil {
		return err
	}
	return r.page.WaitForHidden(expr, r.timeout)
}
