package editor

import (
	"strings"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/jsonschema"
	"github.com/credkit/vcschema/normalize"
)

// Submit hands the exported schema to the OnSubmit callback and returns it.
// It is refused while normalization is invalid (the hint suggests adding the
// development context) and when the title is empty or blank.
func (s *Session) Submit() (*jsonschema.Document, error) {
	s.mu.Lock()
	status, _ := s.tracker.Status()
	if status == normalize.StatusInvalid {
		s.mu.Unlock()
		is := vcschema.NewIssue("/properties/@context", vcschema.CodeNormalizationFailed, nil)
		is.Hint = "add the development context " + vcschema.VCExamplesV2ContextURI
		return nil, vcschema.Issues{is}
	}
	if strings.TrimSpace(s.form.Title) == "" {
		s.mu.Unlock()
		return nil, vcschema.Issues{vcschema.NewIssue("/title", vcschema.CodeTitleRequired, nil)}
	}
	doc, cb := s.schema, s.onSubmit
	s.mu.Unlock()

	s.logger.Info("template submitted", "title", doc.Title, "status", status)
	if cb != nil {
		if err := cb(doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
