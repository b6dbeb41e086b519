package playwright

import (
	"fmt"

	pw "github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/browser-runner/pkg/core"
)

// Element implements core.Element on a locator that resolved to a visible node.
type Element struct {
	loc pw.Locator
}

var _ core.Element = (*Element)(nil)

func (e *Element) Fill(value string) error {
	return e.loc.Fill(value)
}

func (e *Element) Click() error {
	return e.loc.Click()
}

func (e *Element) IsChecked() (bool, error) {
	return e.loc.IsChecked()
}

func (e *Element) SetChecked(checked bool) error {
	return e.loc.SetChecked(checked)
}

// SelectOption selects exactly one option.
func (e *Element) SelectOption(opt core.OptionSelector) error {
	var values pw.SelectOptionValues
	switch {
	case opt.Index != nil:
		values.Indexes = &[]int{*opt.Index}
	case opt.Label != "":
		values.Labels = &[]string{opt.Label}
	default:
		values.Values = &[]string{opt.Value}
	}
	_, err := e.loc.SelectOption(values)
	return err
}

const optionsScript = `el => Array.from(el.options || []).map(o => ({ value: o.value, label: o.label }))`

// Options reads every <option> of the select in document order.
func (e *Element) Options() ([]core.Option, error) {
	raw, err := e.loc.Evaluate(optionsScript, nil)
	if err != nil {
		return nil, err
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected options result %T", raw)
	}

	options := make([]core.Option, 0, len(items))
	for _, it := range items {
		m, _ := it.(map[string]interface{})
		value, _ := m["value"].(string)
		label, _ := m["label"].(string)
		options = append(options, core.Option{Value: value, Label: label})
	}
	return options, nil
}

func (e *Element) InputValue() (string, error) {
	return e.loc.InputValue()
}

func (e *Element) TextContent() (string, error) {
	return e.loc.TextContent()
}

// Attribute distinguishes an absent attribute from an empty one.
func (e *Element) Attribute(name string) (string, bool, error) {
	raw, err := e.loc.Evaluate(`(el, name) => el.getAttribute(name)`, name)
	if err != nil {
		return "", false, err
	}
	if raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	return s, ok, nil
}

// StyleProperty returns the computed value of a CSS property.
func (e *Element) StyleProperty(name string) (string, error) {
	raw, err := e.loc.Evaluate(`(el, prop) => getComputedStyle(el).getPropertyValue(prop)`, name)
	if err != nil {
		return "", err
	}
	s, _ := raw.(string)
	return s, nil
}

func (e *Element) IsVisible() (bool, error) {
	return e.loc.IsVisible()
}

func (e *Element) IsEnabled() (bool, error) {
	return e.loc.IsEnabled()
}

// Dialog implements core.Dialog on a playwright dialog.
type Dialog struct {
	dialog pw.Dialog
}

var _ core.Dialog = (*Dialog)(nil)

func (d *Dialog) Kind() core.DialogKind {
	return core.DialogKind(d.dialog.Type())
}

func (d *Dialog) Message() string      { return d.dialog.Message() }
func (d *Dialog) DefaultValue() string { return d.dialog.DefaultValue() }

// Accept resolves the dialog; promptText only reaches prompts.
func (d *Dialog) Accept(promptText string) error {
	if d.Kind() == core.DialogPrompt {
		return d.dialog.Accept(promptText)
	}
	return d.dialog.Accept()
}

func (d *Dialog) Dismiss() error {
	return d.dialog.Dismiss()
}
