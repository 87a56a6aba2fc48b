package vcschema

import (
	"slices"
	"strconv"

	"github.com/credkit/vcschema/jsonschema"
)

// Diag collects warnings raised while converting. Warnings never stop a
// conversion.
type Diag struct {
	Warnings Issues
}

func (d *Diag) warnf(path, code string, params map[string]any) {
	if d == nil {
		return
	}
	d.Warnings = append(d.Warnings, NewIssue(path, code, params))
}

// FormToSchema converts a field mapping into schema properties plus the
// required list of that nesting level. The list holds the titles of the
// required fields (keys when the title is empty) and is nil when no field is
// required.
func FormToSchema(fields *Fields) (*jsonschema.Properties, []string) {
	props := jsonschema.NewProperties()
	var required []string
	for key, p := range fields.All() {
		props.Set(key, propertyToSchema(p))
		if p.Required {
			name := p.Title
			if name == "" {
				name = key
			}
			required = append(required, name)
		}
	}
	return props, required
}

func propertyToSchema(p *FormProperty) *jsonschema.Property {
	sp := &jsonschema.Property{
		Title:   p.Title,
		Type:    string(p.Type()),
		Comment: p.Comment,
	}
	if p.Example != nil && p.Example != "" {
		sp.Example = p.Example
	}
	switch s := p.Shape.(type) {
	case *Object:
		sp.Properties, sp.Required = FormToSchema(s.Properties)
	case *Array:
		sp.MinItems, sp.MaxItems, sp.UniqueItems = s.MinItems, s.MaxItems, s.UniqueItems
		switch it := s.Items.(type) {
		case Homogeneous:
			if it.Item != nil {
				sp.Items = &jsonschema.Items{Single: propertyToSchema(it.Item)}
			}
		case Tuple:
			tuple := make([]*jsonschema.Property, 0, len(it.Items))
			for _, item := range it.Items {
				tuple = append(tuple, propertyToSchema(item))
			}
			sp.Items = &jsonschema.Items{Tuple: tuple}
		}
	}
	return sp
}

// SchemaToForm converts schema properties back into a field mapping. A field
// is required when its resolved key (title, or map key when the title is
// empty) is in required.
//
// A mapping that holds a typeless {"properties": ...} wrapper instead of
// fields is unwrapped one level, taking the required list that sits next to
// the wrapper. Each unwrap is reported as a warning.
func SchemaToForm(props *jsonschema.Properties, required []string) (*Fields, Diag) {
	var d Diag
	fields := schemaToForm(props, required, subjectPointer, &d)
	return fields, d
}

func schemaToForm(props *jsonschema.Properties, required []string, ptr string, d *Diag) *Fields {
	out := &Fields{}
	if props == nil {
		return out
	}
	if w, ok := props.Get("properties"); ok && w != nil && w.Type == "" && w.Properties != nil && !props.Has("type") {
		d.warnf(ptr+"/properties", CodeUnwrappedProperties, nil)
		return schemaToForm(w.Properties, props.Required, ptr+"/properties", d)
	}
	for key, sp := range props.All() {
		if sp == nil {
			continue
		}
		resolved := sp.Title
		if resolved == "" {
			resolved = key
		}
		p := schemaToProperty(sp, ptr+"/"+pointerEscape(key), d)
		p.Title = resolved
		p.Required = slices.Contains(required, resolved)
		out.Set(key, p)
	}
	return out
}

func schemaToProperty(sp *jsonschema.Property, ptr string, d *Diag) *FormProperty {
	p := &FormProperty{Title: sp.Title, Comment: sp.Comment, Example: sp.Example}
	switch FieldType(sp.Type) {
	case TypeObject:
		p.Shape = &Object{Properties: schemaToForm(sp.Properties, sp.Required, ptr+"/properties", d)}
	case TypeArray:
		a := &Array{MinItems: sp.MinItems, MaxItems: sp.MaxItems, UniqueItems: sp.UniqueItems}
		switch {
		case sp.Items.IsTuple():
			items := make([]*FormProperty, 0, len(sp.Items.Tuple))
			for i, it := range sp.Items.Tuple {
				if it == nil {
					continue
				}
				items = append(items, schemaToProperty(it, ptr+"/items/"+strconv.Itoa(i), d))
			}
			a.Items = Tuple{Items: items}
		case sp.Items != nil && sp.Items.Single != nil:
			a.Items = Homogeneous{Item: schemaToProperty(sp.Items.Single, ptr+"/items", d)}
		}
		p.Shape = a
	default:
		p.Shape = ShapeFor(FieldType(sp.Type))
	}
	return p
}

// Export assembles the full credential schema document.
func Export(form FormData, contexts Contexts) *jsonschema.Document {
	one, two := 1, 2
	name := ToPascalCase(form.Title)
	contexts = contexts.normalized()
	prefix := make([]jsonschema.ConstString, 0, len(contexts))
	for _, c := range contexts {
		prefix = append(prefix, jsonschema.ConstString{Type: jsonschema.TypeString, Const: c.URI})
	}
	props, required := FormToSchema(form.Properties)
	doc := &jsonschema.Document{
		Title:   name,
		Comment: form.Comment,
		Type:    jsonschema.TypeObject,
		Properties: jsonschema.DocumentProperties{
			Context: &jsonschema.TupleConstraint{
				Type:        jsonschema.TypeArray,
				Items:       &jsonschema.TypeOnly{Type: jsonschema.TypeString},
				MinItems:    &one,
				PrefixItems: prefix,
			},
			Type: &jsonschema.TupleConstraint{
				Type:  jsonschema.TypeArray,
				Items: &jsonschema.TypeOnly{Type: jsonschema.TypeString},
				PrefixItems: []jsonschema.ConstString{
					{Type: jsonschema.TypeString, Const: "VerifiableCredential"},
					{Type: jsonschema.TypeString, Const: name},
				},
				MaxItems: &two,
			},
			CredentialSubject: &jsonschema.Subject{
				Type:       jsonschema.TypeObject,
				Properties: props,
				Required:   required,
			},
		},
		Required: []string{"@context", "type", "credentialSubject"},
	}
	if form.AllowID {
		doc.Properties.ID = &jsonschema.IDConstraint{Type: jsonschema.TypeString, Format: "uri"}
	}
	return doc
}

// Import splits a schema document into form data and the context list.
// A document without credentialSubject is rejected with a parse error.
func Import(doc *jsonschema.Document) (FormData, Contexts, Diag, error) {
	if doc == nil || doc.Properties.CredentialSubject == nil {
		return FormData{}, nil, Diag{}, Issues{NewIssue("/properties/credentialSubject", CodeMissingCredentialSubject, nil)}
	}
	subject := doc.Properties.CredentialSubject
	fields, d := SchemaToForm(subject.Properties, subject.Required)
	form := FormData{
		Title:      doc.Title,
		Comment:    doc.Comment,
		AllowID:    doc.Properties.ID != nil,
		Properties: fields,
	}
	return form, ContextsFromURIs(doc.Properties.Context.Consts()), d, nil
}
