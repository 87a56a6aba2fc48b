package jsonschema

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	sjs "github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceURL = "vcschema://template.json"

// Violation is one instance location that does not satisfy the schema.
type Violation struct {
	InstancePath string // JSON Pointer into the instance
	KeywordPath  string // JSON Pointer into the schema
	Message      string
}

// Validator checks instances against a compiled template document.
type Validator struct {
	schema *sjs.Schema
}

// Compile compiles doc as a JSON Schema 2020-12 document. Tuple items written
// in the array form are read as prefixItems, which is their 2020-12 spelling.
func Compile(doc *Document) (*Validator, error) {
	raw, err := Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: marshal: %w", err)
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("jsonschema: decode: %w", err)
	}
	b, err := json.Marshal(tupleItemsToPrefixItems(tree))
	if err != nil {
		return nil, fmt.Errorf("jsonschema: marshal: %w", err)
	}
	c := sjs.NewCompiler()
	c.Draft = sjs.Draft2020
	if err := c.AddResource(resourceURL, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("jsonschema: add resource: %w", err)
	}
	s, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: compile: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Validate checks instance, which may be any JSON-marshalable value, and
// returns the leaf violations. A nil slice means the instance conforms.
func (v *Validator) Validate(instance any) ([]Violation, error) {
	raw, err := json.Marshal(instance)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: marshal instance: %w", err)
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, fmt.Errorf("jsonschema: decode instance: %w", err)
	}
	err = v.schema.Validate(plain)
	if err == nil {
		return nil, nil
	}
	var ve *sjs.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	var out []Violation
	var walk func(e *sjs.ValidationError)
	walk = func(e *sjs.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Violation{InstancePath: pointerOrRoot(e.InstanceLocation), KeywordPath: e.KeywordLocation, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	if len(out) == 0 {
		out = append(out, Violation{InstancePath: "/", Message: ve.Error()})
	}
	return out, nil
}

func tupleItemsToPrefixItems(v any) any {
	switch n := v.(type) {
	case map[string]any:
		for k, c := range n {
			n[k] = tupleItemsToPrefixItems(c)
		}
		if items, ok := n["items"].([]any); ok {
			if _, has := n["prefixItems"]; !has {
				n["prefixItems"] = items
				delete(n, "items")
			}
		}
	case []any:
		for i, c := range n {
			n[i] = tupleItemsToPrefixItems(c)
		}
	}
	return v
}

func pointerOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
