// Package playwright implements core.Page on a real browser through
// playwright-go.
package playwright

import (
	"errors"
	"fmt"
	"sync"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/logger"
)

// Driver implements core.Page on a playwright page.
type Driver struct {
	page     pw.Page
	fullPage bool // Full-page screenshots

	// Dialog routing. One permanent playwright handler fans dialogs out to
	// the scoped listeners registered through OnDialog.
	mu        sync.Mutex
	listeners map[int]func(core.Dialog)
	nextID    int
	unhandled []core.DialogInfo
}

var _ core.Page = (*Driver)(nil)

// New wraps page and installs the dialog router.
func New(page pw.Page, fullPage bool) *Driver {
	d := newDriver(page, fullPage)
	page.OnDialog(d.dispatch)
	return d
}

func newDriver(page pw.Page, fullPage bool) *Driver {
	return &Driver{
		page:      page,
		fullPage:  fullPage,
		listeners: make(map[int]func(core.Dialog)),
	}
}

// dispatch runs on playwright's event goroutine. With no listener the
// dialog is dismissed and remembered so the runner can report it.
func (d *Driver) dispatch(dialog pw.Dialog) {
	wrapped := &Dialog{dialog: dialog}

	d.mu.Lock()
	if len(d.listeners) == 0 {
		d.unhandled = append(d.unhandled, core.DialogInfo{Kind: wrapped.Kind(), Message: dialog.Message()})
		d.mu.Unlock()
		logger.Warn("dismissing unhandled %s dialog %q", wrapped.Kind(), dialog.Message())
		go func() {
			if err := dialog.Dismiss(); err != nil {
				logger.Warn("dismiss unhandled dialog: %v", err)
			}
		}()
		return
	}
	handlers := make([]func(core.Dialog), 0, len(d.listeners))
	for _, h := range d.listeners {
		handlers = append(handlers, h)
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(wrapped)
	}
}

// OnDialog registers a scoped dialog listener.
func (d *Driver) OnDialog(handler func(core.Dialog)) func() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = handler

	return func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.listeners[id]; !ok {
			return fmt.Errorf("dialog listener %d already removed", id)
		}
		delete(d.listeners, id)
		return nil
	}
}

// UnhandledDialogs returns and clears the dialogs dismissed by the router.
func (d *Driver) UnhandledDialogs() []core.DialogInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.unhandled
	d.unhandled = nil
	return out
}

// Navigate loads url and waits for DOMContentLoaded.
func (d *Driver) Navigate(url string, timeout time.Duration) error {
	_, err := d.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateDomcontentloaded,
		Timeout:   msec(timeout),
	})
	return navigationError(err, timeout)
}

func (d *Driver) URL() string {
	return d.page.URL()
}

// WaitForElement waits for the first element matching expr to be visible.
func (d *Driver) WaitForElement(expr string, timeout time.Duration) (core.Element, error) {
	loc := d.page.Locator(expr).First()
	err := loc.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: msec(timeout),
	})
	if err != nil {
		return nil, err
	}
	return &Element{loc: loc}, nil
}

// WaitForHidden waits until the first element matching expr is hidden or detached.
func (d *Driver) WaitForHidden(expr string, timeout time.Duration) error {
	return d.page.Locator(expr).First().WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateHidden,
		Timeout: msec(timeout),
	})
}

// ExpectNavigation arms the navigation wait, then runs action.
func (d *Driver) ExpectNavigation(action func() error, timeout time.Duration) error {
	var actionErr error
	_, err := d.page.ExpectNavigation(func() error {
		actionErr = action()
		return actionErr
	}, pw.PageExpectNavigationOptions{
		WaitUntil: pw.WaitUntilStateDomcontentloaded,
		Timeout:   msec(timeout),
	})
	if actionErr != nil {
		return actionErr
	}
	return navigationError(err, timeout)
}

// WaitForLoad waits for the current document's DOMContentLoaded.
func (d *Driver) WaitForLoad(timeout time.Duration) error {
	err := d.page.WaitForLoadState(pw.PageWaitForLoadStateOptions{
		State:   pw.LoadStateDomcontentloaded,
		Timeout: msec(timeout),
	})
	return navigationError(err, timeout)
}

// Screenshot captures the viewport, or the full page when configured.
func (d *Driver) Screenshot() ([]byte, error) {
	return d.page.Screenshot(pw.PageScreenshotOptions{
		FullPage: pw.Bool(d.fullPage),
	})
}

// msec converts a duration to playwright's millisecond timeout.
func msec(d time.Duration) *float64 {
	return pw.Float(float64(d.Milliseconds()))
}

func navigationError(err error, timeout time.Duration) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pw.ErrTimeout) {
		return core.ErrNavigationTimeout.
			WithMessagef("navigation did not complete within %s", timeout).
			WithCause(err)
	}
	return err
}
