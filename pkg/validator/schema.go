package validator

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

const (
	schemaID    = "https://github.com/devicelab-dev/browser-runner/schemas/scenario.json"
	schemaTitle = "browser-runner scenario"
)

var strategies = []any{
	string(scenario.StrategyID),
	string(scenario.StrategyName),
	string(scenario.StrategyCSS),
	string(scenario.StrategyXPath),
}

// Schema returns the published JSON Schema (Draft 2020-12) for scenario
// files. Selectors accept all three authoring shapes.
func Schema() ([]byte, error) {
	s := reflectSchema(authoringSelector())
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// reflectSchema reflects scenario.Document with sel standing in for every
// scenario.Selector.
func reflectSchema(sel *jsonschema.Schema) *jsonschema.Schema {
	selectorType := reflect.TypeOf(scenario.Selector{})

	r := new(jsonschema.Reflector)
	r.DoNotReference = false
	r.Mapper = func(t reflect.Type) *jsonschema.Schema {
		if t == selectorType {
			return sel
		}
		return nil
	}

	s := r.Reflect(&scenario.Document{})
	s.ID = schemaID
	s.Title = schemaTitle
	s.Description = "Declarative browser tests: steps, submit, assertions and nested child tests"
	return s
}

// canonicalSelector is the {strategy, value} form a decoded selector
// marshals to.
func canonicalSelector() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("strategy", &jsonschema.Schema{Type: "string", Enum: strategies})
	props.Set("value", &jsonschema.Schema{Type: "string", MinLength: uint64Ptr(1)})
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{"strategy", "value"},
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// authoringSelector accepts a CSS string, a single strategy key, or the
// canonical form.
func authoringSelector() *jsonschema.Schema {
	shorthand := &jsonschema.Schema{
		Type:                 "object",
		MinProperties:        uint64Ptr(1),
		MaxProperties:        uint64Ptr(1),
		PropertyNames:        &jsonschema.Schema{Enum: strategies},
		AdditionalProperties: &jsonschema.Schema{Type: "string", MinLength: uint64Ptr(1)},
	}
	return &jsonschema.Schema{
		Description: "Element selector: a CSS string, {id|name|css|xpath: value}, or {strategy, value}",
		OneOf: []*jsonschema.Schema{
			{Type: "string", MinLength: uint64Ptr(1)},
			shorthand,
			canonicalSelector(),
		},
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }

var (
	compileOnce sync.Once
	compiled    *sjsonschema.Schema
	compileErr  error
)

// documentSchema compiles the validation schema once.
func documentSchema() (*sjsonschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := json.Marshal(reflectSchema(canonicalSelector()))
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}

		var schemaDoc interface{}
		if err := json.Unmarshal(data, &schemaDoc); err != nil {
			compileErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}

		c := sjsonschema.NewCompiler()
		if err := c.AddResource(schemaID, schemaDoc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaID)
	})
	return compiled, compileErr
}

// validateSchema checks a decoded document against the JSON Schema.
func validateSchema(doc *scenario.Document, path string) []*ValidationError {
	fail := func(format string, args ...interface{}) []*ValidationError {
		return []*ValidationError{{
			File:     path,
			Phase:    PhaseSchema,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		}}
	}

	sch, err := documentSchema()
	if err != nil {
		return fail("compile schema: %v", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fail("marshal for schema validation: %v", err)
	}
	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return fail("unmarshal document: %v", err)
	}

	err = sch.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return fail("%v", err)
	}

	printer := message.NewPrinter(language.English)
	var errs []*ValidationError
	for _, cause := range flattenValidationErrors(ve) {
		errs = append(errs, &ValidationError{
			File:     path,
			Phase:    PhaseSchema,
			Path:     instancePath(cause.InstanceLocation),
			Message:  cause.ErrorKind.LocalizedString(printer),
			Severity: SeverityError,
		})
	}
	return errs
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// instancePath renders ["tests","0","steps","1"] as tests[0].steps[1].
func instancePath(loc []string) string {
	var b strings.Builder
	for _, part := range loc {
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
