package vcschema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

type formPropertyJSON struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title"`
	Type        FieldType       `json:"type"`
	Required    bool            `json:"required"`
	Comment     string          `json:"$comment,omitempty"`
	Example     any             `json:"example,omitempty"`
	Properties  *Fields         `json:"properties,omitempty"`
	Items       json.RawMessage `json:"items,omitempty"`
	MinItems    *int            `json:"minItems,omitempty"`
	MaxItems    *int            `json:"maxItems,omitempty"`
	UniqueItems *bool           `json:"uniqueItems,omitempty"`
}

// MarshalJSON writes the editor form of the property.
func (p *FormProperty) MarshalJSON() ([]byte, error) {
	w := formPropertyJSON{
		ID:       p.ID,
		Title:    p.Title,
		Type:     p.Type(),
		Required: p.Required,
		Comment:  p.Comment,
		Example:  p.Example,
	}
	switch s := p.Shape.(type) {
	case *Object:
		w.Properties = s.Fields()
	case *Array:
		w.MinItems, w.MaxItems, w.UniqueItems = s.MinItems, s.MaxItems, s.UniqueItems
		var err error
		switch it := s.Items.(type) {
		case Homogeneous:
			if it.Item != nil {
				w.Items, err = json.Marshal(it.Item)
			}
		case Tuple:
			items := it.Items
			if items == nil {
				items = []*FormProperty{}
			}
			w.Items, err = json.Marshal(items)
		}
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the editor form of a property. A missing type means
// string; payload that the type cannot carry is ignored.
func (p *FormProperty) UnmarshalJSON(data []byte) error {
	var w formPropertyJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type == "" {
		w.Type = TypeString
	}
	if !w.Type.Valid() {
		return fmt.Errorf("vcschema: unknown field type %q", w.Type)
	}
	*p = FormProperty{
		ID:       w.ID,
		Title:    w.Title,
		Required: w.Required,
		Comment:  w.Comment,
		Example:  w.Example,
		Shape:    ShapeFor(w.Type),
	}
	switch s := p.Shape.(type) {
	case *Object:
		if w.Properties != nil {
			s.Properties = w.Properties
		}
	case *Array:
		s.MinItems, s.MaxItems, s.UniqueItems = w.MinItems, w.MaxItems, w.UniqueItems
		items := bytes.TrimSpace(w.Items)
		switch {
		case len(items) == 0 || bytes.Equal(items, []byte("null")):
		case items[0] == '[':
			t := Tuple{Items: []*FormProperty{}}
			if err := json.Unmarshal(items, &t.Items); err != nil {
				return err
			}
			s.Items = t
		default:
			item := &FormProperty{}
			if err := json.Unmarshal(items, item); err != nil {
				return err
			}
			s.Items = Homogeneous{Item: item}
		}
	}
	return nil
}

type formDataJSON struct {
	Title      string  `json:"title"`
	Comment    string  `json:"$comment,omitempty"`
	AllowID    bool    `json:"allowId"`
	Properties *Fields `json:"properties"`
}

// MarshalJSON writes the editor form of the template.
func (f FormData) MarshalJSON() ([]byte, error) {
	props := f.Properties
	if props == nil {
		props = &Fields{}
	}
	return json.Marshal(formDataJSON{Title: f.Title, Comment: f.Comment, AllowID: f.AllowID, Properties: props})
}

// UnmarshalJSON reads the editor form of the template.
func (f *FormData) UnmarshalJSON(data []byte) error {
	var w formDataJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Properties == nil {
		w.Properties = &Fields{}
	}
	*f = FormData{Title: w.Title, Comment: w.Comment, AllowID: w.AllowID, Properties: w.Properties}
	return nil
}
