package jsonschema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/credkit/vcschema/ordered"
)

// JSON Schema type names used by credential templates.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Document is the JSON Schema of a Verifiable Credential template.
// Struct field order is the emitted key order.
type Document struct {
	Title      string             `json:"title"`
	Comment    string             `json:"$comment,omitempty"`
	Type       string             `json:"type"`
	Properties DocumentProperties `json:"properties"`
	Required   []string           `json:"required,omitempty"`
}

// DocumentProperties holds the fixed top-level members of a credential.
type DocumentProperties struct {
	Context           *TupleConstraint `json:"@context,omitempty"`
	ID                *IDConstraint    `json:"id,omitempty"`
	Type              *TupleConstraint `json:"type,omitempty"`
	CredentialSubject *Subject         `json:"credentialSubject,omitempty"`
}

// TupleConstraint pins the leading elements of a string array with prefixItems.
type TupleConstraint struct {
	Type        string        `json:"type"`
	Items       *TypeOnly     `json:"items,omitempty"`
	MinItems    *int          `json:"minItems,omitempty"`
	PrefixItems []ConstString `json:"prefixItems"`
	MaxItems    *int          `json:"maxItems,omitempty"`
}

// Consts returns the const values of the prefixItems in order.
func (t *TupleConstraint) Consts() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.PrefixItems))
	for _, p := range t.PrefixItems {
		out = append(out, p.Const)
	}
	return out
}

// TypeOnly is a schema that only constrains the type.
type TypeOnly struct {
	Type string `json:"type"`
}

// ConstString is a string schema with a const value.
type ConstString struct {
	Type  string `json:"type"`
	Const string `json:"const"`
}

// IDConstraint describes the optional credential id.
type IDConstraint struct {
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
}

// Subject is the credentialSubject schema that holds the template's fields.
type Subject struct {
	Type       string      `json:"type"`
	Title      string      `json:"title,omitempty"`
	Properties *Properties `json:"properties"`
	Required   []string    `json:"required,omitempty"`
}

// Property is the schema of one credential field.
type Property struct {
	Title       string      `json:"title,omitempty"`
	Type        string      `json:"type,omitempty"`
	Comment     string      `json:"$comment,omitempty"`
	Example     any         `json:"example,omitempty"`
	Properties  *Properties `json:"properties,omitempty"`
	Required    []string    `json:"required,omitempty"`
	Items       *Items      `json:"items,omitempty"`
	MinItems    *int        `json:"minItems,omitempty"`
	MaxItems    *int        `json:"maxItems,omitempty"`
	UniqueItems *bool       `json:"uniqueItems,omitempty"`

	// Wrapper marks a {"properties": {...}} member that holds field
	// schemas directly instead of being a field itself. Its fields live in
	// Properties and it is written back in the same shape.
	Wrapper bool `json:"-"`
}

// Properties is an ordered property mapping.
//
// Hand-authored schemas sometimes nest a {"properties": ..., "required": [...]}
// wrapper directly inside a properties mapping. A "required" member holding an
// array is therefore not a field; it is kept in Required instead.
type Properties struct {
	ordered.Map[*Property]
	Required []string
}

// NewProperties returns an empty mapping.
func NewProperties() *Properties { return &Properties{} }

// MarshalJSON writes the entries in order, then the stray required list if any.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	write := func(key string, v any) error {
		kb, err := json.Marshal(key)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}
	for key, prop := range p.All() {
		var v any = prop
		if prop != nil && prop.Wrapper {
			v = prop.Properties
		}
		if err := write(key, v); err != nil {
			return nil, err
		}
	}
	if p.Required != nil {
		if err := write("required", p.Required); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the mapping keeping key order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	*p = Properties{}
	return ordered.Walk(data, func(key string, raw []byte) error {
		if key == "required" && firstByte(raw) == '[' {
			return json.Unmarshal(raw, &p.Required)
		}
		if key == "properties" && isWrapper(raw) {
			inner := &Properties{}
			if err := json.Unmarshal(raw, inner); err != nil {
				return fmt.Errorf("property %q: %w", key, err)
			}
			p.Set(key, &Property{Properties: inner, Wrapper: true})
			return nil
		}
		var prop Property
		if err := json.Unmarshal(raw, &prop); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
		p.Set(key, &prop)
		return nil
	})
}

// isWrapper reports whether raw is an object without a string "type" member.
func isWrapper(raw []byte) bool {
	if firstByte(raw) != '{' {
		return false
	}
	var probe struct {
		Type any `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	_, typed := probe.Type.(string)
	return !typed
}

// Items is the items keyword: either one schema for every element, or an
// ordered list of schemas (tuple form). Exactly one of Single and Tuple is set.
type Items struct {
	Single *Property
	Tuple  []*Property
}

// IsTuple reports whether the items use the ordered list form.
func (it *Items) IsTuple() bool { return it != nil && it.Tuple != nil }

// MarshalJSON emits an array for tuples and an object otherwise.
func (it *Items) MarshalJSON() ([]byte, error) {
	if it.Tuple != nil {
		return json.Marshal(it.Tuple)
	}
	return json.Marshal(it.Single)
}

// UnmarshalJSON accepts both the object and the array form.
func (it *Items) UnmarshalJSON(data []byte) error {
	*it = Items{}
	if firstByte(data) == '[' {
		it.Tuple = []*Property{}
		return json.Unmarshal(data, &it.Tuple)
	}
	it.Single = &Property{}
	return json.Unmarshal(data, it.Single)
}

func firstByte(b []byte) byte {
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// Marshal encodes the document as compact JSON.
func Marshal(doc *Document) ([]byte, error) { return json.Marshal(doc) }

// MarshalIndent encodes the document with two-space indentation.
func MarshalIndent(doc *Document) ([]byte, error) { return json.MarshalIndent(doc, "", "  ") }

// Unmarshal decodes data into a Document without structural checks.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
