// Package jsonscan walks raw JSON token streams for checks that the decoded
// value can no longer answer, such as repeated object keys.
package jsonscan

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	key          string // last key seen (objects)
	index        int    // next element index (arrays)
	name         string // segment under which this container sits in its parent
}

// Duplicate is a repeated object key found while scanning.
type Duplicate struct {
	Path string // JSON Pointer of the object holding the key
	Key  string
}

// DuplicateKeys reports every repeated key in data. maxFindings <= 0 means unlimited.
// A syntax error stops the scan and is returned along with what was found so far.
func DuplicateKeys(data []byte, maxFindings int) ([]Duplicate, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out []Duplicate
	var stack []frame

	// valueDone advances the enclosing container after a complete value.
	valueDone := func() {
		if n := len(stack); n > 0 {
			top := &stack[n-1]
			switch top.kind {
			case kindObject:
				top.expectingKey = true
			case kindArray:
				top.index++
			}
		}
	}
	// childName is the pointer segment for a value about to start.
	childName := func() string {
		if n := len(stack); n > 0 {
			top := stack[n-1]
			if top.kind == kindObject {
				return escape(top.key)
			}
			return strconv.Itoa(top.index)
		}
		return ""
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if len(stack) > 0 {
				return out, io.ErrUnexpectedEOF
			}
			return out, nil
		}
		if err != nil {
			return out, err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				stack = append(stack, frame{kind: kindObject, keys: map[string]struct{}{}, expectingKey: true, name: childName()})
			case '[':
				stack = append(stack, frame{kind: kindArray, name: childName()})
			case '}', ']':
				if n := len(stack); n > 0 {
					stack = stack[:n-1]
				}
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 {
				top := &stack[n-1]
				if top.kind == kindObject && top.expectingKey {
					if _, seen := top.keys[v]; seen {
						out = append(out, Duplicate{Path: pointer(stack), Key: v})
						if maxFindings > 0 && len(out) >= maxFindings {
							return out, nil
						}
					}
					top.keys[v] = struct{}{}
					top.key = v
					top.expectingKey = false
					continue
				}
			}
			valueDone()
		default:
			valueDone()
		}
	}
}

func pointer(stack []frame) string {
	var b strings.Builder
	for _, f := range stack[1:] {
		b.WriteByte('/')
		b.WriteString(f.name)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// escape encodes a key as a JSON Pointer segment (RFC 6901).
func escape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}
