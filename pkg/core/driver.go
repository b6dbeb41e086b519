package core

import (
	"time"
)

// Page is a live browser page shared by every test of a run.
// Implementations: playwright (real browser), mock (tests and dry runs).
// The executor handles test logic; Page just drives the document.
type Page interface {
	// Navigate loads url and waits until the document reaches DOMContentLoaded.
	Navigate(url string, timeout time.Duration) error

	// URL returns the current document URL
	URL() string

	// WaitForElement waits until an element matching the engine selector
	// expression is attached and visible.
	WaitForElement(expr string, timeout time.Duration) (Element, error)

	// WaitForHidden waits until no element matching expr is visible.
	WaitForHidden(expr string, timeout time.Duration) error

	// ExpectNavigation arms a navigation wait, runs action, then waits for the
	// navigation to reach DOMContentLoaded. An error returned by action is
	// passed through unchanged; a wait failure is an ErrNavigationTimeout.
	ExpectNavigation(action func() error, timeout time.Duration) error

	// WaitForLoad waits until the current document reaches DOMContentLoaded.
	WaitForLoad(timeout time.Duration) error

	// OnDialog registers handler for native dialogs and returns a function
	// that deregisters it. While at least one handler is registered, dialogs
	// stay open until a handler resolves them.
	OnDialog(handler func(Dialog)) (remove func() error)

	// UnhandledDialogs returns and clears the dialogs that appeared while no
	// handler was registered. The driver dismisses those itself.
	UnhandledDialogs() []DialogInfo

	// Screenshot captures the viewport as PNG
	Screenshot() ([]byte, error)
}

// Element is a resolved handle to a DOM element.
type Element interface {
	// Fill replaces the element's value.
	Fill(value string) error
	Click() error

	IsChecked() (bool, error)
	SetChecked(checked bool) error

	// SelectOption selects one option of a <select> element.
	SelectOption(opt OptionSelector) error
	// Options returns every <option> of a <select>, in document order.
	Options() ([]Option, error)

	InputValue() (string, error)
	TextContent() (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(name string) (string, bool, error)
	// StyleProperty returns the computed value of a CSS property.
	StyleProperty(name string) (string, error)
	IsVisible() (bool, error)
	IsEnabled() (bool, error)
}

// OptionSelector addresses exactly one <option>.
type OptionSelector struct {
	Value string
	Label string
	Index *int
}

// Option is one <option> of a <select>.
type Option struct {
	Value string
	Label string
}

// DialogKind is the type of a native dialog.
type DialogKind string

// DialogKind values.
const (
	DialogAlert        DialogKind = "alert"
	DialogConfirm      DialogKind = "confirm"
	DialogPrompt       DialogKind = "prompt"
	DialogBeforeUnload DialogKind = "beforeunload"
)

// Dialog is an open native dialog.
type Dialog interface {
	Kind() DialogKind
	Message() string
	DefaultValue() string
	// Accept resolves the dialog positively. promptText is only used by prompts.
	Accept(promptText string) error
	Dismiss() error
}

// DialogInfo describes a dialog after the fact.
type DialogInfo struct {
	Kind    DialogKind `json:"kind"`
	Message string     `json:"message"`
}
