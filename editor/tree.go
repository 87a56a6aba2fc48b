package editor

import (
	vcschema "github.com/credkit/vcschema"
)

// fieldsAt returns the mapping addressed by parent: the root when parent is
// empty, otherwise the properties of the object it ends on. With vivify,
// missing nodes are created and nodes of the wrong type are converted.
func (s *Session) fieldsAt(form *vcschema.FormData, parent vcschema.Path, vivify bool) (*vcschema.Fields, error) {
	if len(parent) == 0 {
		if form.Properties == nil {
			form.Properties = &vcschema.Fields{}
		}
		return form.Properties, nil
	}
	if parent[len(parent)-1].Kind != vcschema.SegProperties {
		return nil, invalidPath(parent)
	}
	p, err := s.nodeAt(form, parent[:len(parent)-1], vivify)
	if err != nil {
		return nil, err
	}
	o := p.Object()
	if o == nil {
		if !vivify {
			return nil, notFound(parent)
		}
		p.SetType(vcschema.TypeObject)
		o = p.Object()
	}
	return o.Fields(), nil
}

// nodeAt walks path segment by segment and returns the node it ends on.
func (s *Session) nodeAt(form *vcschema.FormData, path vcschema.Path, vivify bool) (*vcschema.FormProperty, error) {
	if len(path) == 0 {
		return nil, invalidPath(path)
	}
	if form.Properties == nil {
		form.Properties = &vcschema.Fields{}
	}
	fields := form.Properties
	var cur *vcschema.FormProperty
	var arr *vcschema.Array
	for i, seg := range path {
		switch seg.Kind {
		case vcschema.SegKey:
			if fields == nil {
				return nil, invalidPath(path)
			}
			p, ok := fields.Get(seg.Key)
			if !ok {
				if !vivify {
					return nil, notFound(path)
				}
				p = s.newField()
				fields.Set(seg.Key, p)
			}
			cur, fields = p, nil

		case vcschema.SegProperties:
			if cur == nil {
				return nil, invalidPath(path)
			}
			o := cur.Object()
			if o == nil {
				if !vivify {
					return nil, notFound(path)
				}
				cur.SetType(vcschema.TypeObject)
				o = cur.Object()
			}
			fields = o.Fields()

		case vcschema.SegItems:
			if cur == nil {
				return nil, invalidPath(path)
			}
			a := cur.Array()
			if a == nil {
				if !vivify {
					return nil, notFound(path)
				}
				cur.SetType(vcschema.TypeArray)
				a = cur.Array()
			}
			if i+1 < len(path) && path[i+1].Kind == vcschema.SegIndex {
				if _, ok := a.Items.(vcschema.Tuple); !ok {
					if !vivify || a.Items != nil {
						return nil, notFound(path)
					}
					a.Items = vcschema.Tuple{}
				}
				arr = a
				continue
			}
			h, ok := a.Items.(vcschema.Homogeneous)
			if !ok || h.Item == nil {
				if !vivify || (a.Items != nil && !ok) {
					return nil, notFound(path)
				}
				h = vcschema.Homogeneous{Item: s.newField()}
				a.Items = h
			}
			cur = h.Item

		case vcschema.SegIndex:
			if arr == nil {
				return nil, invalidPath(path)
			}
			t := arr.Items.(vcschema.Tuple)
			switch {
			case seg.Index < len(t.Items):
				cur = t.Items[seg.Index]
			case seg.Index == len(t.Items) && vivify:
				cur = s.newField()
				t.Items = append(t.Items, cur)
				arr.Items = t
			default:
				return nil, notFound(path)
			}
			arr = nil
		}
	}
	return cur, nil
}

// newField returns the placeholder node used for auto-vivified paths.
func (s *Session) newField() *vcschema.FormProperty {
	p := vcschema.NewField("", vcschema.TypeString)
	p.ID = s.newID()
	return p
}

func notFound(path vcschema.Path) error {
	return vcschema.Issues{vcschema.NewIssue(path.Pointer(), vcschema.CodeNotFound, map[string]any{"path": path.String()})}
}

func invalidPath(path vcschema.Path) error {
	return vcschema.Issues{vcschema.NewIssue(path.Pointer(), vcschema.CodeInvalidPath, map[string]any{"path": path.String()})}
}

func alreadyExists(parent vcschema.Path, key string) error {
	path := append(append(vcschema.Path{}, parent...), vcschema.KeySeg(key))
	return vcschema.Issues{vcschema.NewIssue(path.Pointer(), vcschema.CodeAlreadyExists, map[string]any{"key": key})}
}
