package editor

import (
	"slices"

	vcschema "github.com/credkit/vcschema"
)

// edit runs fn on a copy of the form and commits the copy only when fn
// succeeds. It must be called without mu held.
func (s *Session) edit(op string, fn func(form *vcschema.FormData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.form.Clone()
	if err := fn(&next); err != nil {
		s.logger.Debug("edit rejected", "op", op, "error", err)
		return err
	}
	s.form = next
	s.refresh()
	return nil
}

// AddProperty adds field at the top level under key. An empty key is derived
// from the field title. An existing key is an AlreadyExists error.
func (s *Session) AddProperty(key string, field *vcschema.FormProperty) error {
	return s.AddChild(nil, key, field)
}

// AddChild adds field under key to the object addressed by parent, which is
// empty for the top level or ends in a properties segment.
func (s *Session) AddChild(parent vcschema.Path, key string, field *vcschema.FormProperty) error {
	if field == nil {
		field = vcschema.NewField("", vcschema.TypeString)
	}
	if key == "" {
		key = vcschema.KeyFromTitle(field.Title)
	}
	if key == "" {
		return invalidPath(append(append(vcschema.Path{}, parent...), vcschema.KeySeg(key)))
	}
	return s.edit("add", func(form *vcschema.FormData) error {
		fields, err := s.fieldsAt(form, parent, false)
		if err != nil {
			return err
		}
		if fields.Has(key) {
			return alreadyExists(parent, key)
		}
		p := field.Clone()
		p.ID = ""
		s.assignIDs(p)
		fields.Set(key, p)
		return nil
	})
}

// UpdateProperty applies patch to the node addressed by path, creating
// missing nodes along the way. When a field key is patched with a new
// non-empty title, the field is re-keyed in place under KeyFromTitle(title)
// and keeps its ID, position and every member the patch does not set.
func (s *Session) UpdateProperty(path vcschema.Path, patch Patch) error {
	return s.edit("update", func(form *vcschema.FormData) error {
		parent, key, ok := path.Parent()
		if !ok {
			p, err := s.nodeAt(form, path, true)
			if err != nil {
				return err
			}
			s.apply(p, patch)
			return nil
		}
		fields, err := s.fieldsAt(form, parent, true)
		if err != nil {
			return err
		}
		p, exists := fields.Get(key)
		if !exists {
			p = s.newField()
			fields.Set(key, p)
		}
		if patch.Title != nil && *patch.Title != "" && *patch.Title != p.Title {
			newKey := vcschema.KeyFromTitle(*patch.Title)
			if !fields.Rename(key, newKey) {
				return alreadyExists(parent, newKey)
			}
		}
		s.apply(p, patch)
		return nil
	})
}

// RemoveProperty deletes the node addressed by path. Removing a tuple
// element shifts the later elements; removing items clears the element schema.
func (s *Session) RemoveProperty(path vcschema.Path) error {
	if len(path) == 0 {
		return invalidPath(path)
	}
	return s.edit("remove", func(form *vcschema.FormData) error {
		last := path[len(path)-1]
		switch last.Kind {
		case vcschema.SegKey:
			parent, key, _ := path.Parent()
			fields, err := s.fieldsAt(form, parent, false)
			if err != nil {
				return err
			}
			if !fields.Delete(key) {
				return notFound(path)
			}
		case vcschema.SegIndex:
			owner, err := s.nodeAt(form, path[:len(path)-2], false)
			if err != nil {
				return err
			}
			a := owner.Array()
			if a == nil {
				return notFound(path)
			}
			t, ok := a.Items.(vcschema.Tuple)
			if !ok || last.Index >= len(t.Items) {
				return notFound(path)
			}
			a.Items = vcschema.Tuple{Items: slices.Delete(slices.Clone(t.Items), last.Index, last.Index+1)}
		case vcschema.SegItems:
			owner, err := s.nodeAt(form, path[:len(path)-1], false)
			if err != nil {
				return err
			}
			a := owner.Array()
			if a == nil || a.Items == nil {
				return notFound(path)
			}
			a.Items = nil
		default:
			return invalidPath(path)
		}
		return nil
	})
}

// SetTitle sets the template title.
func (s *Session) SetTitle(title string) {
	_ = s.edit("title", func(form *vcschema.FormData) error {
		form.Title = title
		return nil
	})
}

// SetComment sets the template description.
func (s *Session) SetComment(comment string) {
	_ = s.edit("comment", func(form *vcschema.FormData) error {
		form.Comment = comment
		return nil
	})
}

// SetAllowID toggles the optional credential id.
func (s *Session) SetAllowID(allow bool) {
	_ = s.edit("allow-id", func(form *vcschema.FormData) error {
		form.AllowID = allow
		return nil
	})
}
