package vcschema

import (
	"errors"
	"fmt"

	"github.com/credkit/vcschema/internal/jsonscan"
	"github.com/credkit/vcschema/internal/yamlconv"
	"github.com/credkit/vcschema/jsonschema"
)

// maxDuplicateFindings caps how many repeated keys a single parse reports.
const maxDuplicateFindings = 16

// ParseSchema decodes a JSON schema document. Repeated object keys, syntax
// errors and a missing credentialSubject are all reported as Issues.
func ParseSchema(data []byte) (*jsonschema.Document, error) {
	dups, err := jsonscan.DuplicateKeys(data, maxDuplicateFindings)
	if err != nil {
		return nil, parseIssue(err)
	}
	if len(dups) > 0 {
		iss := make(Issues, 0, len(dups))
		for _, d := range dups {
			iss = append(iss, NewIssue(d.Path, CodeDuplicateKey, map[string]any{"key": d.Key}))
		}
		return nil, iss
	}
	doc, err := jsonschema.Unmarshal(data)
	if err != nil {
		return nil, parseIssue(err)
	}
	if doc.Properties.CredentialSubject == nil {
		return nil, Issues{NewIssue("/properties/credentialSubject", CodeMissingCredentialSubject, nil)}
	}
	return doc, nil
}

// ParseSchemaYAML decodes a YAML schema document. Mapping order is kept.
func ParseSchemaYAML(data []byte) (*jsonschema.Document, error) {
	js, err := yamlconv.ToJSON(data)
	if err != nil {
		var dk *yamlconv.DuplicateKeyError
		if errors.As(err, &dk) {
			is := NewIssue("/", CodeDuplicateKey, map[string]any{"key": dk.Key})
			is.Hint = fmt.Sprintf("line %d, first defined at line %d", dk.Line, dk.FirstLine)
			is.Cause = err
			return nil, Issues{is}
		}
		return nil, parseIssue(err)
	}
	return ParseSchema(js)
}

// MarshalSchemaYAML encodes doc as YAML in schema key order.
func MarshalSchemaYAML(doc *jsonschema.Document) ([]byte, error) {
	js, err := jsonschema.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return yamlconv.FromJSON(js)
}

// ImportJSON parses data and splits it into form data and contexts.
func ImportJSON(data []byte) (FormData, Contexts, Diag, error) {
	doc, err := ParseSchema(data)
	if err != nil {
		return FormData{}, nil, Diag{}, err
	}
	return Import(doc)
}

func parseIssue(err error) error {
	is := NewIssue("/", CodeParseError, map[string]any{"reason": err.Error()})
	is.Cause = err
	return Issues{is}
}
