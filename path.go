package vcschema

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentKind tells what a path segment addresses.
type SegmentKind int

const (
	SegKey        SegmentKind = iota // a field key inside a properties mapping
	SegProperties                    // the properties of an object field
	SegItems                         // the items of an array field
	SegIndex                         // a position inside tuple items
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

// Path addresses a node of the FormProperty tree, for example
// address/properties/street, tags/items or pair/items/1.
type Path []Segment

// KeySeg returns a field-key segment.
func KeySeg(k string) Segment { return Segment{Kind: SegKey, Key: k} }

// ParsePath parses the slash separated text form of a path.
func ParsePath(s string) (Path, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil, invalidPath(s)
	}
	return PathOf(strings.Split(s, "/")...)
}

// PathOf builds a path from raw segments. A segment is read as a field key,
// the literal properties or items, or a tuple index depending on what the
// previous segment addressed.
func PathOf(parts ...string) (Path, error) {
	if len(parts) == 0 {
		return nil, invalidPath("")
	}
	out := make(Path, 0, len(parts))
	expectKey := true
	for _, p := range parts {
		if p == "" {
			return nil, invalidPath(strings.Join(parts, "/"))
		}
		if expectKey {
			out = append(out, KeySeg(p))
			expectKey = false
			continue
		}
		prev := out[len(out)-1].Kind
		switch {
		case p == "properties":
			out = append(out, Segment{Kind: SegProperties})
			expectKey = true
		case p == "items":
			out = append(out, Segment{Kind: SegItems})
		case prev == SegItems && isIndex(p):
			n, _ := strconv.Atoi(p)
			out = append(out, Segment{Kind: SegIndex, Index: n})
		default:
			return nil, invalidPath(strings.Join(parts, "/"))
		}
	}
	if expectKey {
		return nil, invalidPath(strings.Join(parts, "/"))
	}
	return out, nil
}

// MustPath is like ParsePath but panics on error. Intended for tests and literals.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// String returns the slash separated form.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		switch s.Kind {
		case SegKey:
			parts[i] = s.Key
		case SegProperties:
			parts[i] = "properties"
		case SegItems:
			parts[i] = "items"
		case SegIndex:
			parts[i] = strconv.Itoa(s.Index)
		}
	}
	return strings.Join(parts, "/")
}

// Pointer renders the path as a JSON Pointer into the exported schema.
func (p Path) Pointer() string {
	var b strings.Builder
	b.WriteString(subjectPointer)
	for _, s := range p {
		switch s.Kind {
		case SegKey:
			b.WriteByte('/')
			b.WriteString(pointerEscape(s.Key))
		case SegProperties:
			b.WriteString("/properties")
		case SegItems:
			b.WriteString("/items")
		case SegIndex:
			fmt.Fprintf(&b, "/%d", s.Index)
		}
	}
	return b.String()
}

// Parent returns the path without its last field key, and that key. ok is false
// when the path does not end in a key.
func (p Path) Parent() (parent Path, key string, ok bool) {
	if len(p) == 0 || p[len(p)-1].Kind != SegKey {
		return nil, "", false
	}
	return p[:len(p)-1], p[len(p)-1].Key, true
}

// escape '~' -> '~0', '/' -> '~1' per RFC6901
func pointerEscape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

const subjectPointer = "/properties/credentialSubject/properties"

func invalidPath(s string) error {
	return Issues{NewIssue(subjectPointer, CodeInvalidPath, map[string]any{"path": s})}
}
