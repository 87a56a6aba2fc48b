package server

import (
	"fmt"

	json "github.com/goccy/go-json"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/editor"
)

// decodePatch reads a partial field in the editor JSON shape. Members that are
// absent stay unchanged; a null example, properties, items or constraint
// clears it.
func decodePatch(body []byte) (editor.Patch, error) {
	var p editor.Patch
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return p, err
	}
	for k, raw := range m {
		var err error
		switch k {
		case "title":
			var v string
			err = json.Unmarshal(raw, &v)
			p.Title = &v
		case "type":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				var t vcschema.FieldType
				t, err = vcschema.ParseFieldType(v)
				p.Type = &t
			}
		case "required":
			var v bool
			err = json.Unmarshal(raw, &v)
			p.Required = &v
		case "$comment":
			var v string
			err = json.Unmarshal(raw, &v)
			p.Comment = &v
		case "example":
			var v any
			err = json.Unmarshal(raw, &v)
			p.Example = editor.Some(v)
		case "properties":
			var v *vcschema.Fields
			err = json.Unmarshal(raw, &v)
			p.Properties = editor.Some(v)
		case "items":
			p.Items, err = decodeItems(raw)
		case "minItems":
			var v *int
			err = json.Unmarshal(raw, &v)
			p.MinItems = editor.Some(v)
		case "maxItems":
			var v *int
			err = json.Unmarshal(raw, &v)
			p.MaxItems = editor.Some(v)
		case "uniqueItems":
			var v *bool
			err = json.Unmarshal(raw, &v)
			p.UniqueItems = editor.Some(v)
		case "id":
			// IDs are owned by the session.
		default:
			err = fmt.Errorf("unknown member %q", k)
		}
		if err != nil {
			return editor.Patch{}, fmt.Errorf("%s: %w", k, err)
		}
	}
	return p, nil
}

// decodeItems reuses the array decoding of FormProperty, so that an object
// gives Homogeneous items and an array gives a Tuple.
func decodeItems(raw json.RawMessage) (editor.Opt[vcschema.Items], error) {
	if string(raw) == "null" {
		return editor.Some[vcschema.Items](nil), nil
	}
	holder := struct {
		Type  string          `json:"type"`
		Items json.RawMessage `json:"items"`
	}{Type: string(vcschema.TypeArray), Items: raw}
	b, err := json.Marshal(holder)
	if err != nil {
		return editor.Opt[vcschema.Items]{}, err
	}
	var fp vcschema.FormProperty
	if err := json.Unmarshal(b, &fp); err != nil {
		return editor.Opt[vcschema.Items]{}, err
	}
	return editor.Some(fp.Array().Items), nil
}
