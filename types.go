package vcschema

import (
	"fmt"

	"github.com/credkit/vcschema/ordered"
)

// FieldType is the closed set of field types a template can use.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
)

// Valid reports whether t is one of the known types.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// ParseFieldType converts a schema type name into a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(s)
	if !t.Valid() {
		return "", fmt.Errorf("vcschema: unknown field type %q", s)
	}
	return t, nil
}

// Fields maps field keys to properties, in display order.
type Fields = ordered.Map[*FormProperty]

// FormProperty is the editor-side description of one template field.
type FormProperty struct {
	// ID identifies the node across renames. It is assigned by the editor and
	// never written into the JSON Schema.
	ID       string
	Title    string
	Required bool
	Comment  string
	// Example is nil when absent.
	Example any
	// Shape carries the type and the payload that only that type may have.
	Shape Shape
}

// Type returns the field type; a property without a shape is a string.
func (p *FormProperty) Type() FieldType {
	if p == nil || p.Shape == nil {
		return TypeString
	}
	return p.Shape.Type()
}

// Object returns the object payload, or nil when the field is not an object.
func (p *FormProperty) Object() *Object {
	o, _ := p.Shape.(*Object)
	return o
}

// Array returns the array payload, or nil when the field is not an array.
func (p *FormProperty) Array() *Array {
	a, _ := p.Shape.(*Array)
	return a
}

// SetType switches the field to t. Payload that t cannot carry is dropped;
// payload of the same kind is kept.
func (p *FormProperty) SetType(t FieldType) {
	if p.Shape != nil && p.Shape.Type() == t {
		return
	}
	p.Shape = ShapeFor(t)
}

// Shape is the type-keyed payload of a FormProperty. The concrete variants
// are Scalar, *Object and *Array.
type Shape interface {
	Type() FieldType
	isShape()
}

// Scalar is the shape of string, number and boolean fields.
type Scalar struct{ Kind FieldType }

func (s Scalar) Type() FieldType { return s.Kind }
func (Scalar) isShape()          {}

// Object is the shape of object fields.
type Object struct {
	Properties *Fields
}

func (*Object) Type() FieldType { return TypeObject }
func (*Object) isShape()        {}

// Fields returns the nested properties, creating the mapping on first use.
func (o *Object) Fields() *Fields {
	if o.Properties == nil {
		o.Properties = &Fields{}
	}
	return o.Properties
}

// Array is the shape of array fields.
type Array struct {
	Items       Items // nil when the element schema is absent
	MinItems    *int
	MaxItems    *int
	UniqueItems *bool
}

func (*Array) Type() FieldType { return TypeArray }
func (*Array) isShape()        {}

// Items describes array elements: Homogeneous or Tuple.
type Items interface {
	isItems()
}

// Homogeneous items share one element schema.
type Homogeneous struct {
	Item *FormProperty
}

func (Homogeneous) isItems() {}

// Tuple items give one schema per position.
type Tuple struct {
	Items []*FormProperty
}

func (Tuple) isItems() {}

// ShapeFor returns the empty shape of type t. Unknown types become strings.
func ShapeFor(t FieldType) Shape {
	switch t {
	case TypeObject:
		return &Object{Properties: &Fields{}}
	case TypeArray:
		return &Array{}
	case TypeNumber, TypeBoolean:
		return Scalar{Kind: t}
	default:
		return Scalar{Kind: TypeString}
	}
}

// NewField returns a property of type t with the given title.
func NewField(title string, t FieldType) *FormProperty {
	return &FormProperty{Title: title, Shape: ShapeFor(t)}
}

// NewObject returns an object property holding fields (which may be nil).
func NewObject(title string, fields *Fields) *FormProperty {
	if fields == nil {
		fields = &Fields{}
	}
	return &FormProperty{Title: title, Shape: &Object{Properties: fields}}
}

// NewArray returns an array property with the given items (which may be nil).
func NewArray(title string, items Items) *FormProperty {
	return &FormProperty{Title: title, Shape: &Array{Items: items}}
}

// Clone returns a deep copy of the property tree. Example values are shared.
func (p *FormProperty) Clone() *FormProperty {
	if p == nil {
		return nil
	}
	out := *p
	switch s := p.Shape.(type) {
	case *Object:
		out.Shape = &Object{Properties: CloneFields(s.Properties)}
	case *Array:
		a := *s
		a.Items = cloneItems(s.Items)
		out.Shape = &a
	}
	return &out
}

func cloneItems(it Items) Items {
	switch v := it.(type) {
	case Homogeneous:
		return Homogeneous{Item: v.Item.Clone()}
	case Tuple:
		items := make([]*FormProperty, len(v.Items))
		for i, p := range v.Items {
			items[i] = p.Clone()
		}
		return Tuple{Items: items}
	default:
		return nil
	}
}

// CloneFields deep-copies a field mapping.
func CloneFields(f *Fields) *Fields {
	out := &Fields{}
	for k, p := range f.All() {
		out.Set(k, p.Clone())
	}
	return out
}

// FormData is the root editor state of one template.
type FormData struct {
	Title   string
	Comment string
	// AllowID adds an optional URI-typed id to the exported schema.
	AllowID    bool
	Properties *Fields
}

// NewFormData returns an empty template.
func NewFormData() FormData { return FormData{Properties: &Fields{}} }

// Clone deep-copies the form.
func (f FormData) Clone() FormData {
	f.Properties = CloneFields(f.Properties)
	return f
}
