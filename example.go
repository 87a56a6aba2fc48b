package vcschema

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ParseExample turns the text typed into a field dialog into an example value
// of type t. Empty text means no example. Numbers that do not parse and
// object or array text that is not JSON are kept as the raw string.
func ParseExample(t FieldType, text string) any {
	if text == "" {
		return nil
	}
	switch t {
	case TypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return text
		}
		return f
	case TypeBoolean:
		return strings.ToLower(text) == "true"
	case TypeObject, TypeArray:
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return text
		}
		return v
	default:
		return text
	}
}

// ExampleMatches reports whether v has the JSON shape of type t.
// A nil example always matches.
func ExampleMatches(t FieldType, v any) bool {
	if v == nil {
		return true
	}
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		switch v.(type) {
		case map[string]any, *Fields:
			return true
		}
		return false
	case TypeArray:
		_, ok := v.([]any)
		return ok
	}
	return false
}

// CheckExamples walks fields and reports every example whose shape does not
// match its field type. The result is advisory.
func CheckExamples(fields *Fields) Issues {
	var out Issues
	checkExamples(fields, nil, &out)
	return out
}

func checkExamples(fields *Fields, base Path, out *Issues) {
	for key, p := range fields.All() {
		path := append(append(Path{}, base...), KeySeg(key))
		checkProperty(p, path, out)
	}
}

func checkProperty(p *FormProperty, path Path, out *Issues) {
	if p == nil {
		return
	}
	if !ExampleMatches(p.Type(), p.Example) {
		*out = append(*out, NewIssue(path.Pointer(), CodeExampleMismatch, map[string]any{"type": string(p.Type())}))
	}
	switch s := p.Shape.(type) {
	case *Object:
		checkExamples(s.Properties, append(path, Segment{Kind: SegProperties}), out)
	case *Array:
		items := append(path, Segment{Kind: SegItems})
		switch it := s.Items.(type) {
		case Homogeneous:
			checkProperty(it.Item, items, out)
		case Tuple:
			for i, item := range it.Items {
				checkProperty(item, append(append(Path{}, items...), Segment{Kind: SegIndex, Index: i}), out)
			}
		}
	}
}
