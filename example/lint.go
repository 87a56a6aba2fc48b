package example

import (
	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/jsonschema"
)

// Lint validates c against doc and reports each violation as a
// schema_violation issue located in the credential. A document whose
// required lists name titles instead of keys is the usual source of findings.
func Lint(doc *jsonschema.Document, c *Credential) (vcschema.Issues, error) {
	v, err := jsonschema.Compile(doc)
	if err != nil {
		return nil, err
	}
	violations, err := v.Validate(c)
	if err != nil {
		return nil, err
	}
	var out vcschema.Issues
	for _, vi := range violations {
		is := vcschema.NewIssue(vi.InstancePath, vcschema.CodeSchemaViolation, map[string]any{"reason": vi.Message})
		is.Hint = vi.KeywordPath
		out = append(out, is)
	}
	return out, nil
}
