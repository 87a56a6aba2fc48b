package normalize

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/piprate/json-gold/ld"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/example"
)

const testContextURL = "https://example.org/test/v1.jsonld"

func newTestValidator(t *testing.T, opts ...Option) *Validator {
	t.Helper()
	l, err := NewLoader(LoaderOptions{
		Offline: true,
		Preload: map[string][]byte{
			testContextURL: []byte(`{"@context":{"name":"https://schema.org/name"}}`),
		},
	})
	require.NoError(t, err)
	v, err := NewValidator(append([]Option{WithLoader(l)}, opts...)...)
	require.NoError(t, err)
	return v
}

func TestValidator_Valid(t *testing.T) {
	v := newTestValidator(t)
	res := v.Check(context.Background(), map[string]any{
		"@context": testContextURL,
		"name":     "Alice",
	})
	require.Equal(t, StatusValid, res.Status, res.Output)
	assert.Equal(t, "_:c14n0 <https://schema.org/name> \"Alice\" .\n", res.Output)
	assert.NoError(t, res.Err)
}

func TestValidator_UnknownContextIsInvalid(t *testing.T) {
	v := newTestValidator(t)
	res := v.Check(context.Background(), map[string]any{
		"@context": "https://example.org/missing.jsonld",
		"name":     "Alice",
	})
	assert.Equal(t, StatusInvalid, res.Status)
	assert.True(t, strings.HasPrefix(res.Output, "Error normalizing credential: "), res.Output)
	assert.Error(t, res.Err)
}

func TestValidator_GeneratedCredential(t *testing.T) {
	f := &vcschema.Fields{}
	f.Set("name", vcschema.NewField("Name", vcschema.TypeString))
	doc := vcschema.Export(vcschema.FormData{Title: "Degree", Properties: f}, vcschema.DefaultContexts())
	cred := example.Generate(doc, example.WithClock(func() time.Time { return time.Unix(0, 0) }))

	v, err := NewValidator()
	require.NoError(t, err)
	res := v.Check(context.Background(), cred)
	require.Equal(t, StatusValid, res.Status, res.Output)
	assert.Contains(t, res.Output, "<https://www.w3.org/2018/credentials#issuer> <did:example:issuer>")
}

func TestValidator_SafeModeRejectsUndefinedTerms(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name string
		cred map[string]any
	}{
		{"top-level term", map[string]any{
			"@context": []any{vcschema.VCv1ContextURI},
			"type":     []any{"VerifiableCredential"},
			"foo":      "bar",
		}},
		{"subject term", map[string]any{
			"@context":          []any{vcschema.VCv1ContextURI},
			"type":              []any{"VerifiableCredential"},
			"issuer":            "did:example:issuer",
			"credentialSubject": map[string]any{"name": "Alice"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Check(context.Background(), tt.cred)
			assert.Equal(t, StatusInvalid, res.Status, res.Output)
			assert.Error(t, res.Err)
		})
	}

	res := v.Check(context.Background(), map[string]any{
		"@context": []any{vcschema.VCv1ContextURI},
		"type":     []any{"VerifiableCredential"},
		"issuer":   "did:example:issuer",
	})
	assert.Equal(t, StatusValid, res.Status, res.Output)
}

// blockingLoader holds every load until release is closed.
type blockingLoader struct{ release chan struct{} }

func (l blockingLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	<-l.release
	return nil, fmt.Errorf("released before loading %s", u)
}

func TestValidator_CanceledContext(t *testing.T) {
	loader := blockingLoader{release: make(chan struct{})}
	t.Cleanup(func() { close(loader.release) })
	v, err := NewValidator(WithLoader(loader))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := v.Check(ctx, map[string]any{"@context": "https://example.org/slow.jsonld", "name": "Alice"})
	assert.Equal(t, StatusInvalid, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestValidator_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	v := newTestValidator(t, WithMetrics(m))

	v.Check(context.Background(), map[string]any{"@context": testContextURL, "name": "A"})
	v.Check(context.Background(), map[string]any{"@context": "https://example.org/missing.jsonld"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues(string(StatusValid))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues(string(StatusInvalid))))
}
