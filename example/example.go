// Package example derives a sample credential from a template schema.
package example

import (
	"slices"
	"time"

	json "github.com/goccy/go-json"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/jsonschema"
	"github.com/credkit/vcschema/ordered"
)

// Placeholders used when a property has no example.
const (
	PlaceholderString  = "example"
	PlaceholderNumber  = 42
	PlaceholderBoolean = true
	CredentialID       = "urn:uuid:example-credential-id"
	Issuer             = "did:example:issuer"
)

// Credential is a generated credential document. Its members keep schema order.
type Credential = ordered.Map[any]

type generator struct {
	now func() time.Time
}

// Option configures Generate.
type Option func(*generator)

// WithClock sets the clock used for the issuance timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generate builds one representative credential for doc. The result is
// deterministic except for the timestamp.
func Generate(doc *jsonschema.Document, opts ...Option) *Credential {
	g := &generator{now: time.Now}
	for _, o := range opts {
		o(g)
	}
	out := &Credential{}
	contexts := doc.Properties.Context.Consts()
	if contexts == nil {
		contexts = []string{}
	}
	types := doc.Properties.Type.Consts()
	if types == nil {
		types = []string{}
	}
	out.Set("@context", contexts)
	out.Set("type", types)
	if doc.Properties.ID != nil {
		out.Set("id", CredentialID)
	}
	out.Set("issuer", Issuer)
	out.Set(TimestampField(contexts), formatTimestamp(g.now()))
	subject := &Credential{}
	if s := doc.Properties.CredentialSubject; s != nil {
		subject = object(s.Properties)
	}
	out.Set("credentialSubject", subject)
	return out
}

// TimestampField returns the issuance member name for the given contexts:
// issuanceDate under the VC v1 context, validFrom otherwise.
func TimestampField(contexts []string) string {
	if slices.Contains(contexts, vcschema.VCv1ContextURI) {
		return "issuanceDate"
	}
	return "validFrom"
}

// formatTimestamp renders t as canonical RFC3339 in UTC.
func formatTimestamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// Value returns the example value for one property.
func Value(p *jsonschema.Property) any {
	if p == nil {
		return nil
	}
	if p.Example != nil {
		return p.Example
	}
	switch p.Type {
	case jsonschema.TypeString:
		return PlaceholderString
	case jsonschema.TypeNumber:
		return PlaceholderNumber
	case jsonschema.TypeBoolean:
		return PlaceholderBoolean
	case jsonschema.TypeObject:
		return object(p.Properties)
	case jsonschema.TypeArray:
		switch {
		case p.Items == nil:
			return []any{}
		case p.Items.IsTuple():
			out := make([]any, 0, len(p.Items.Tuple))
			for _, it := range p.Items.Tuple {
				out = append(out, Value(it))
			}
			return out
		default:
			return []any{Value(p.Items.Single)}
		}
	default:
		return nil
	}
}

func object(props *jsonschema.Properties) *Credential {
	out := &Credential{}
	if props == nil {
		return out
	}
	for key, p := range props.All() {
		if p != nil && p.Wrapper {
			for k, v := range object(p.Properties).All() {
				out.Set(k, v)
			}
			continue
		}
		out.Set(key, Value(p))
	}
	return out
}

// MarshalIndent encodes c with two-space indentation.
func MarshalIndent(c *Credential) ([]byte, error) { return json.MarshalIndent(c, "", "  ") }
