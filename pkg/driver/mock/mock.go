// Package mock provides an in-memory page for testing without a browser.
package mock

import (
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
)

var (
	_ core.Page    = (*Page)(nil)
	_ core.Element = (*Element)(nil)
	_ core.Dialog  = (*Dialog)(nil)
)

// Page is a mock implementation of core.Page. Elements are keyed by the
// engine selector expression the resolver produces ("#id", "[name=\"x\"]").
type Page struct {
	// Configuration
	Config Config

	mu        sync.Mutex
	url       string
	elements  map[string]*Element
	listeners map[int]func(core.Dialog)
	nextID    int
	unhandled []core.DialogInfo
	open      []*Dialog
	navCount  int

	// Navigations records every Navigate call in order.
	Navigations []string
	// OnNavigate runs after a Navigate call, e.g. to build the next document.
	OnNavigate func(url string)
}

// Config configures mock page behavior.
type Config struct {
	// ActionDelay adds artificial delay to clicks and fills
	ActionDelay time.Duration
	// NavigateErr makes every Navigate call fail
	NavigateErr error
	// LoadErr makes WaitForLoad fail
	LoadErr error
	// ScreenshotErr makes Screenshot fail
	ScreenshotErr error
	// RemoveListenerErr is returned by dialog listener removal
	RemoveListenerErr error
	// AutoCreate adds a visible, enabled element for any unknown selector
	// expression instead of failing the wait. Used for dry runs.
	AutoCreate bool
}

// New creates a new mock page.
func New(cfg Config) *Page {
	return &Page{
		Config:    cfg,
		url:       "about:blank",
		elements:  make(map[string]*Element),
		listeners: make(map[int]func(core.Dialog)),
	}
}

// Add registers an element under a selector expression and returns it.
func (p *Page) Add(expr string, el *Element) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el.page = p
	el.expr = expr
	p.elements[expr] = el
	return el
}

// Remove detaches the element registered under expr.
func (p *Page) Remove(expr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, expr)
}

// Element returns the element registered under expr, or nil.
func (p *Page) Element(expr string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elements[expr]
}

// Navigate records the navigation and switches the current URL.
func (p *Page) Navigate(url string, _ time.Duration) error {
	if p.Config.NavigateErr != nil {
		return p.Config.NavigateErr
	}
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	p.url = url
	p.navCount++
	hook := p.OnNavigate
	p.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return nil
}

// SimulateNavigation changes the URL as if the document navigated itself,
// e.g. after a form submit. It is not recorded in Navigations.
func (p *Page) SimulateNavigation(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.navCount++
}

// URL returns the current URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// WaitForElement returns the element if it is attached and visible.
func (p *Page) WaitForElement(expr string, timeout time.Duration) (core.Element, error) {
	p.mu.Lock()
	el, ok := p.elements[expr]
	p.mu.Unlock()

	if !ok && p.Config.AutoCreate {
		el, ok = p.Add(expr, &Element{}), true
	}
	if !ok {
		return nil, fmt.Errorf("no element matches %q within %s", expr, timeout)
	}
	if visible, _ := el.IsVisible(); !visible {
		return nil, fmt.Errorf("element %q is not visible within %s", expr, timeout)
	}
	return el, nil
}

// WaitForHidden succeeds if the element is absent or hidden.
func (p *Page) WaitForHidden(expr string, timeout time.Duration) error {
	p.mu.Lock()
	el, ok := p.elements[expr]
	p.mu.Unlock()

	if !ok {
		return nil
	}
	if visible, _ := el.IsVisible(); visible {
		return fmt.Errorf("element %q still visible after %s", expr, timeout)
	}
	return nil
}

// ExpectNavigation runs action and fails unless it navigated the page.
func (p *Page) ExpectNavigation(action func() error, timeout time.Duration) error {
	p.mu.Lock()
	before := p.navCount
	p.mu.Unlock()

	if err := action(); err != nil {
		return err
	}

	p.mu.Lock()
	after := p.navCount
	p.mu.Unlock()
	if after == before {
		return core.ErrNavigationTimeout.WithMessagef("no navigation within %s", timeout)
	}
	return nil
}

// WaitForLoad returns Config.LoadErr.
func (p *Page) WaitForLoad(_ time.Duration) error {
	return p.Config.LoadErr
}

// OnDialog registers a dialog listener.
func (p *Page) OnDialog(handler func(core.Dialog)) func() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = handler
	return func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
		return p.Config.RemoveListenerErr
	}
}

// ListenerCount returns the number of registered dialog listeners.
func (p *Page) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// UnhandledDialogs returns and clears the auto-dismissed dialogs.
func (p *Page) UnhandledDialogs() []core.DialogInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.unhandled
	p.unhandled = nil
	return out
}

// OpenDialog opens a native dialog the way page script would and blocks
// until it is resolved. With no listener registered it is dismissed at once
// and recorded as unhandled.
func (p *Page) OpenDialog(kind core.DialogKind, message, defaultValue string) DialogResult {
	d := &Dialog{
		kind:     kind,
		message:  message,
		def:      defaultValue,
		resolved: make(chan DialogResult, 1),
	}

	p.mu.Lock()
	if len(p.listeners) == 0 {
		p.unhandled = append(p.unhandled, core.DialogInfo{Kind: kind, Message: message})
		p.mu.Unlock()
		return DialogResult{}
	}
	handlers := make([]func(core.Dialog), 0, len(p.listeners))
	for _, h := range p.listeners {
		handlers = append(handlers, h)
	}
	p.open = append(p.open, d)
	p.mu.Unlock()

	for _, h := range handlers {
		h(d)
	}
	return <-d.resolved
}

// DismissOpenDialogs dismisses every dialog still waiting for a decision.
func (p *Page) DismissOpenDialogs() int {
	p.mu.Lock()
	open := p.open
	p.open = nil
	p.mu.Unlock()

	n := 0
	for _, d := range open {
		if d.Dismiss() == nil {
			n++
		}
	}
	return n
}

// Screenshot returns a fixed PNG signature.
func (p *Page) Screenshot() ([]byte, error) {
	if p.Config.ScreenshotErr != nil {
		return nil, p.Config.ScreenshotErr
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

// DialogResult is what page script sees once a dialog closes.
type DialogResult struct {
	Accepted bool
	Text     string // Prompt text when accepted
}

// Dialog is a mock native dialog.
type Dialog struct {
	kind     core.DialogKind
	message  string
	def      string
	mu       sync.Mutex
	done     bool
	resolved chan DialogResult
}

func (d *Dialog) Kind() core.DialogKind { return d.kind }
func (d *Dialog) Message() string       { return d.message }
func (d *Dialog) DefaultValue() string  { return d.def }

// Accept closes the dialog positively.
func (d *Dialog) Accept(promptText string) error {
	return d.close(DialogResult{Accepted: true, Text: promptText})
}

// Dismiss closes the dialog negatively.
func (d *Dialog) Dismiss() error {
	return d.close(DialogResult{})
}

func (d *Dialog) close(r DialogResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return fmt.Errorf("%s dialog already resolved", d.kind)
	}
	d.done = true
	d.resolved <- r
	return nil
}

// Element is a mock DOM element. Tests set the exported fields directly.
type Element struct {
	page *Page
	expr string
	mu   sync.Mutex

	Value      string
	Text       string
	Checked    bool
	Hidden     bool
	Disabled   bool
	Attributes map[string]string
	Styles     map[string]string
	Choices    []core.Option // <option> children of a select

	// Failure injection
	ClickErr error
	FillErr  error
	// FreezeSelection makes SelectOption succeed without changing Value
	FreezeSelection bool

	// OnClick runs on every click, outside the element lock.
	OnClick func()

	Clicks      int
	SetCheckedN int
}

// Expr returns the selector expression the element is registered under.
func (e *Element) Expr() string { return e.expr }

// Fill replaces the value.
func (e *Element) Fill(value string) error {
	e.delay()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FillErr != nil {
		return e.FillErr
	}
	if e.Disabled {
		return fmt.Errorf("element %q is disabled", e.expr)
	}
	e.Value = value
	return nil
}

// Click counts the click and runs OnClick.
func (e *Element) Click() error {
	e.delay()
	e.mu.Lock()
	if e.ClickErr != nil {
		e.mu.Unlock()
		return e.ClickErr
	}
	e.Clicks++
	hook := e.OnClick
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (e *Element) IsChecked() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Checked, nil
}

func (e *Element) SetChecked(checked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SetCheckedN++
	e.Checked = checked
	return nil
}

// SelectOption selects by value, label or index against Options.
func (e *Element) SelectOption(opt core.OptionSelector) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, o := range e.Choices {
		var match bool
		switch {
		case opt.Index != nil:
			match = i == *opt.Index
		case opt.Label != "":
			match = o.Label == opt.Label
		default:
			match = o.Value == opt.Value
		}
		if match {
			if !e.FreezeSelection {
				e.Value = o.Value
			}
			return nil
		}
	}
	return fmt.Errorf("no option matches %+v", opt)
}

// Options returns a copy of the select options.
func (e *Element) Options() ([]core.Option, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Option(nil), e.Choices...), nil
}

func (e *Element) InputValue() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value, nil
}

func (e *Element) TextContent() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Text, nil
}

func (e *Element) Attribute(name string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.Attributes[name]
	return v, ok, nil
}

func (e *Element) StyleProperty(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Styles[name], nil
}

func (e *Element) IsVisible() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.Hidden, nil
}

func (e *Element) IsEnabled() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.Disabled, nil
}

func (e *Element) delay() {
	if e.page != nil && e.page.Config.ActionDelay > 0 {
		time.Sleep(e.page.Config.ActionDelay)
	}
}
