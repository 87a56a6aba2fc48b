package editor

import (
	vcschema "github.com/credkit/vcschema"
)

// Opt is an optional patch value. The zero value leaves the field alone;
// Some(v) sets it, including to a zero or nil v.
type Opt[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Opt holding v.
func Some[T any](v T) Opt[T] { return Opt[T]{Set: true, Value: v} }

// Patch is a partial update of one field. Only set members change.
// Object and array payloads apply only when the field has that type after
// Type is applied.
type Patch struct {
	Title    *string
	Type     *vcschema.FieldType
	Required *bool
	Comment  *string
	Example  Opt[any]

	Properties  Opt[*vcschema.Fields]
	Items       Opt[vcschema.Items]
	MinItems    Opt[*int]
	MaxItems    Opt[*int]
	UniqueItems Opt[*bool]
}

// FieldPatch returns a patch that sets every member of field, as if the
// field dialog had been submitted.
func FieldPatch(field *vcschema.FormProperty) Patch {
	t := field.Type()
	p := Patch{
		Title:    &field.Title,
		Type:     &t,
		Required: &field.Required,
		Comment:  &field.Comment,
		Example:  Some(field.Example),
	}
	switch s := field.Shape.(type) {
	case *vcschema.Object:
		p.Properties = Some(s.Properties)
	case *vcschema.Array:
		p.Items = Some(s.Items)
		p.MinItems = Some(s.MinItems)
		p.MaxItems = Some(s.MaxItems)
		p.UniqueItems = Some(s.UniqueItems)
	}
	return p
}

func (s *Session) apply(p *vcschema.FormProperty, patch Patch) {
	if patch.Type != nil {
		p.SetType(*patch.Type)
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Required != nil {
		p.Required = *patch.Required
	}
	if patch.Comment != nil {
		p.Comment = *patch.Comment
	}
	if patch.Example.Set {
		p.Example = patch.Example.Value
	}
	if o := p.Object(); o != nil && patch.Properties.Set {
		o.Properties = vcschema.CloneFields(patch.Properties.Value)
		s.assignFieldIDs(o.Properties)
	}
	if a := p.Array(); a != nil {
		if patch.Items.Set {
			holder := &vcschema.FormProperty{Shape: &vcschema.Array{Items: patch.Items.Value}}
			holder = holder.Clone()
			s.assignIDs(holder)
			a.Items = holder.Array().Items
		}
		if patch.MinItems.Set {
			a.MinItems = patch.MinItems.Value
		}
		if patch.MaxItems.Set {
			a.MaxItems = patch.MaxItems.Value
		}
		if patch.UniqueItems.Set {
			a.UniqueItems = patch.UniqueItems.Value
		}
	}
}
