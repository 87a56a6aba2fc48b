package editor

import (
	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/jsonschema"
)

// AddContext appends a context URI. The URI must be an http(s) URL or a
// relative path and must not already be present.
func (s *Session) AddContext(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.contexts.Add(uri)
	if err != nil {
		return err
	}
	s.contexts = next
	s.refresh()
	return nil
}

// RemoveContext removes the context at index i. Index 0 and out-of-range
// indexes are ignored.
func (s *Session) RemoveContext(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.contexts.Remove(i)
	if len(next) == len(s.contexts) {
		return
	}
	s.contexts = next
	s.refresh()
}

// AddDevContext adds the VC examples context, the usual fix for a failing
// normalization.
func (s *Session) AddDevContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contexts.Has(vcschema.VCExamplesV2ContextURI) {
		return
	}
	s.contexts = s.contexts.AddDev()
	s.refresh()
}

// Contexts returns a copy of the context list.
func (s *Session) Contexts() vcschema.Contexts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(vcschema.Contexts(nil), s.contexts...)
}

// View returns the active view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetJSONInput records text typed into the JSON view. Text that parses into a
// template replaces the form and the context list; anything else leaves them
// untouched and is reported as the JSON error.
func (s *Session) SetJSONInput(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jsonInput = text
	form, contexts, diag, err := vcschema.ImportJSON([]byte(text))
	if err != nil {
		s.jsonErr = err
		return err
	}
	s.jsonErr = nil
	s.setForm(form, contexts, diag)
	s.refresh()
	return nil
}

// ToggleView switches between the form and the JSON view. Leaving the form
// serializes the schema into the JSON input. Leaving the JSON view parses the
// input first; on error the view stays on JSON and the error is returned.
func (s *Session) ToggleView() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == ViewForm {
		b, err := jsonschema.MarshalIndent(s.schema)
		if err != nil {
			return err
		}
		s.jsonInput = string(b)
		s.jsonErr = nil
		s.view = ViewJSON
		return nil
	}
	form, contexts, diag, err := vcschema.ImportJSON([]byte(s.jsonInput))
	if err != nil {
		s.jsonErr = err
		return err
	}
	s.jsonErr = nil
	s.view = ViewForm
	s.setForm(form, contexts, diag)
	s.refresh()
	return nil
}
