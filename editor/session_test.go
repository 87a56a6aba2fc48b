package editor_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/editor"
	"github.com/credkit/vcschema/example"
	"github.com/credkit/vcschema/jsonschema"
	"github.com/credkit/vcschema/normalize"
)

type checkFunc func(ctx context.Context, cred any) normalize.Result

func (f checkFunc) Check(ctx context.Context, cred any) normalize.Result { return f(ctx, cred) }

func alwaysValid() editor.Option {
	return editor.WithChecker(checkFunc(func(context.Context, any) normalize.Result {
		return normalize.Result{Status: normalize.StatusValid, Output: "nq"}
	}))
}

// validWithDevContext fails every credential that lacks the examples context.
func validWithDevContext() editor.Option {
	return editor.WithChecker(checkFunc(func(_ context.Context, cred any) normalize.Result {
		c := cred.(*example.Credential)
		v, _ := c.Get("@context")
		if slices.Contains(v.([]string), vcschema.VCExamplesV2ContextURI) {
			return normalize.Result{Status: normalize.StatusValid}
		}
		return normalize.Result{Status: normalize.StatusInvalid, Output: "Error normalizing credential: undefined term"}
	}))
}

func counterIDs() editor.Option {
	var mu sync.Mutex
	n := 0
	return editor.WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func newSession(t *testing.T, opts ...editor.Option) *editor.Session {
	t.Helper()
	s, err := editor.New(append([]editor.Option{alwaysValid(), counterIDs()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func settle(t *testing.T, s *editor.Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func str(s string) *string { return &s }

func requiredField(title string, typ vcschema.FieldType) *vcschema.FormProperty {
	p := vcschema.NewField(title, typ)
	p.Required = true
	return p
}

func TestSession_DegreeScenario(t *testing.T) {
	s := newSession(t)
	s.SetTitle("Degree")
	require.NoError(t, s.AddProperty("name", requiredField("Name", vcschema.TypeString)))

	doc := s.Schema()
	assert.Equal(t, []string{"VerifiableCredential", "Degree"}, doc.Properties.Type.Consts())
	name, ok := doc.Properties.CredentialSubject.Properties.Get("name")
	require.True(t, ok)
	assert.Equal(t, "string", name.Type)
	assert.Equal(t, []string{"Name"}, doc.Properties.CredentialSubject.Required)

	require.NoError(t, s.RemoveProperty(vcschema.MustPath("name")))
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Form.Properties.Len())
	assert.Nil(t, snap.Schema.Properties.CredentialSubject.Required)
}

func TestSession_AddPropertyDuplicate(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.AddProperty("name", vcschema.NewField("Name", vcschema.TypeString)))

	err := s.AddProperty("name", vcschema.NewField("Other", vcschema.TypeNumber))
	require.ErrorIs(t, err, vcschema.ErrAlreadyExists)

	p, _ := s.Snapshot().Form.Properties.Get("name")
	assert.Equal(t, "Name", p.Title, "existing field must not be overwritten")
}

func TestSession_AddPropertyKeyFromTitle(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.AddProperty("", vcschema.NewField("Date of Birth", vcschema.TypeString)))
	assert.True(t, s.Snapshot().Form.Properties.Has("date_of_birth"))
}

func TestSession_AddChildAssignsIDs(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.AddProperty("address", vcschema.NewObject("Address", nil)))
	require.NoError(t, s.AddChild(vcschema.MustPath("address/properties"), "street", vcschema.NewField("Street", vcschema.TypeString)))

	err := s.AddChild(vcschema.MustPath("address/properties"), "street", vcschema.NewField("Street", vcschema.TypeString))
	assert.ErrorIs(t, err, vcschema.ErrAlreadyExists)

	addr, _ := s.Snapshot().Form.Properties.Get("address")
	street, _ := addr.Object().Properties.Get("street")
	assert.NotEmpty(t, addr.ID)
	assert.NotEmpty(t, street.ID)
	assert.NotEqual(t, addr.ID, street.ID)
}

func TestSession_RenameKeepsMetadata(t *testing.T) {
	s := newSession(t)
	name := requiredField("Name", vcschema.TypeObject)
	name.Comment = "Holder name"
	name.Example = map[string]any{"first": "Ada"}
	name.Object().Fields().Set("first", vcschema.NewField("First", vcschema.TypeString))
	require.NoError(t, s.AddProperty("name", name))
	require.NoError(t, s.AddProperty("age", vcschema.NewField("Age", vcschema.TypeNumber)))
	before, _ := s.Snapshot().Form.Properties.Get("name")

	require.NoError(t, s.UpdateProperty(vcschema.MustPath("name"), editor.Patch{Title: str("Full Name")}))

	form := s.Snapshot().Form
	assert.Equal(t, []string{"full_name", "age"}, form.Properties.Keys(), "renamed in place")
	p, ok := form.Properties.Get("full_name")
	require.True(t, ok)
	assert.Equal(t, before.ID, p.ID)
	assert.Equal(t, "Full Name", p.Title)
	assert.Equal(t, "Holder name", p.Comment)
	assert.True(t, p.Required)
	assert.Equal(t, map[string]any{"first": "Ada"}, p.Example)
	assert.True(t, p.Object().Properties.Has("first"))
}

func TestSession_RenameCollision(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.AddProperty("name", vcschema.NewField("Name", vcschema.TypeString)))
	require.NoError(t, s.AddProperty("age", vcschema.NewField("Age", vcschema.TypeNumber)))

	err := s.UpdateProperty(vcschema.MustPath("age"), editor.Patch{Title: str("name")})
	require.ErrorIs(t, err, vcschema.ErrAlreadyExists)
	assert.Equal(t, []string{"name", "age"}, s.Snapshot().Form.Properties.Keys())
}

func TestSession_UpdateVivifiesNestedPath(t *testing.T) {
	s := newSession(t)
	street := requiredField("Street", vcschema.TypeString)
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("address/properties/street"), editor.FieldPatch(street)))

	addr, ok := s.Snapshot().Form.Properties.Get("address")
	require.True(t, ok)
	assert.Equal(t, vcschema.TypeObject, addr.Type())
	got, ok := addr.Object().Properties.Get("street")
	require.True(t, ok)
	assert.True(t, got.Required)
	assert.NotEmpty(t, got.ID)

	subject := s.Schema().Properties.CredentialSubject
	sAddr, _ := subject.Properties.Get("address")
	assert.Equal(t, []string{"Street"}, sAddr.Required)
	assert.Nil(t, subject.Required)
}

func TestSession_UpdateItems(t *testing.T) {
	s := newSession(t)
	num := vcschema.TypeNumber
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("tags/items"), editor.Patch{Type: &num, Title: str("Score")}))

	tags, _ := s.Snapshot().Form.Properties.Get("tags")
	h, ok := tags.Array().Items.(vcschema.Homogeneous)
	require.True(t, ok)
	assert.Equal(t, vcschema.TypeNumber, h.Item.Type())
	assert.Equal(t, "Score", h.Item.Title)

	err := s.UpdateProperty(vcschema.MustPath("tags/items/0"), editor.Patch{Title: str("x")})
	assert.ErrorIs(t, err, vcschema.ErrNotFound, "homogeneous items have no positions")
}

func TestSession_TupleItems(t *testing.T) {
	s := newSession(t)
	num, txt := vcschema.TypeNumber, vcschema.TypeString
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("pair/items/0"), editor.Patch{Type: &num, Title: str("Lat")}))
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("pair/items/1"), editor.Patch{Type: &num, Title: str("Lng")}))
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("pair/items/2"), editor.Patch{Type: &txt, Title: str("Label")}))
	assert.ErrorIs(t, s.UpdateProperty(vcschema.MustPath("pair/items/5"), editor.Patch{}), vcschema.ErrNotFound)

	require.NoError(t, s.RemoveProperty(vcschema.MustPath("pair/items/0")))
	pair, _ := s.Snapshot().Form.Properties.Get("pair")
	tu := pair.Array().Items.(vcschema.Tuple)
	require.Len(t, tu.Items, 2)
	assert.Equal(t, "Lng", tu.Items[0].Title)
	assert.Equal(t, "Label", tu.Items[1].Title)

	sp, _ := s.Schema().Properties.CredentialSubject.Properties.Get("pair")
	assert.True(t, sp.Items.IsTuple())
}

func TestSession_TypeChangeDropsPayload(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("address/properties/street"), editor.Patch{}))
	txt := vcschema.TypeString
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("address"), editor.Patch{Type: &txt}))

	addr, _ := s.Snapshot().Form.Properties.Get("address")
	assert.Nil(t, addr.Object())
	sp, _ := s.Schema().Properties.CredentialSubject.Properties.Get("address")
	assert.Nil(t, sp.Properties)
}

func TestSession_RemoveNotFound(t *testing.T) {
	s := newSession(t)
	assert.ErrorIs(t, s.RemoveProperty(vcschema.MustPath("ghost")), vcschema.ErrNotFound)
	assert.ErrorIs(t, s.RemoveProperty(vcschema.MustPath("ghost/properties/x")), vcschema.ErrNotFound)
	assert.ErrorIs(t, s.RemoveProperty(nil), vcschema.ErrInvalidPath)
}

func TestSession_RemoveNested(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("address/properties/street"), editor.Patch{}))
	require.NoError(t, s.UpdateProperty(vcschema.MustPath("address/properties/city"), editor.Patch{}))
	require.NoError(t, s.RemoveProperty(vcschema.MustPath("address/properties/street")))

	addr, _ := s.Snapshot().Form.Properties.Get("address")
	assert.Equal(t, []string{"city"}, addr.Object().Properties.Keys())
}

func TestSession_Contexts(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.AddContext("https://example.org/ctx.json"))
	assert.ErrorIs(t, s.AddContext("example.org"), vcschema.ErrInvalidContextURI)

	s.RemoveContext(0)
	assert.Equal(t, vcschema.VCv2ContextURI, s.Contexts()[0].URI)
	assert.Len(t, s.Contexts(), 2)

	s.AddDevContext()
	s.AddDevContext()
	assert.Equal(t, []string{
		vcschema.VCv2ContextURI,
		"https://example.org/ctx.json",
		vcschema.VCExamplesV2ContextURI,
	}, s.Contexts().URIs())
	assert.Equal(t, s.Contexts().URIs(), s.Schema().Properties.Context.Consts())

	s.RemoveContext(1)
	assert.Equal(t, []string{vcschema.VCv2ContextURI, vcschema.VCExamplesV2ContextURI}, s.Contexts().URIs())
}

func TestSession_JSONView(t *testing.T) {
	s := newSession(t)
	s.SetTitle("Degree")
	require.NoError(t, s.AddProperty("Name", requiredField("Name", vcschema.TypeString)))
	nameID := func() string {
		p, _ := s.Snapshot().Form.Properties.Get("Name")
		return p.ID
	}
	id := nameID()

	require.NoError(t, s.ToggleView())
	snap := s.Snapshot()
	assert.Equal(t, editor.ViewJSON, snap.View)
	assert.Contains(t, snap.JSONInput, `"credentialSubject"`)

	err := s.SetJSONInput(`{"title": `)
	require.ErrorIs(t, err, vcschema.ErrParse)
	snap = s.Snapshot()
	assert.Error(t, snap.JSONError)
	assert.True(t, snap.Form.Properties.Has("Name"), "a parse error leaves the form alone")

	err = s.ToggleView()
	require.Error(t, err)
	assert.Equal(t, editor.ViewJSON, s.View(), "stays in json view until the text parses")

	edited := vcschema.Export(s.Snapshot().Form, s.Contexts())
	edited.Properties.Context.PrefixItems = []jsonschema.ConstString{
		{Type: "string", Const: "https://example.org/a"},
		{Type: "string", Const: vcschema.VCv2ContextURI},
	}
	edited.Properties.CredentialSubject.Properties.Set("Age", &jsonschema.Property{Title: "Age", Type: "number"})
	b, err := jsonschema.MarshalIndent(edited)
	require.NoError(t, err)
	require.NoError(t, s.SetJSONInput(string(b)))
	assert.Nil(t, s.Snapshot().JSONError)

	require.NoError(t, s.ToggleView())
	snap = s.Snapshot()
	assert.Equal(t, editor.ViewForm, snap.View)
	assert.Equal(t, []string{"Name", "Age"}, snap.Form.Properties.Keys())
	assert.Equal(t, []string{vcschema.VCv2ContextURI, "https://example.org/a"}, snap.Contexts.URIs())
	assert.Equal(t, id, nameID(), "re-import keeps the identity of unchanged keys")
}

func TestSession_ToggleRequiresCredentialSubject(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.ToggleView())
	err := s.SetJSONInput(`{"title":"X","type":"object","properties":{}}`)
	iss, ok := vcschema.AsIssues(err)
	require.True(t, ok)
	assert.True(t, iss.HasCode(vcschema.CodeMissingCredentialSubject))
	assert.Error(t, s.ToggleView())
	assert.Equal(t, editor.ViewJSON, s.View())
}

func TestSession_Submit(t *testing.T) {
	var got *jsonschema.Document
	s := newSession(t, validWithDevContext(), editor.OnSubmit(func(doc *jsonschema.Document) error {
		got = doc
		return nil
	}))
	settle(t, s)
	require.Equal(t, normalize.StatusInvalid, s.Status())

	s.SetTitle("Degree")
	settle(t, s)
	_, err := s.Submit()
	require.ErrorIs(t, err, vcschema.ErrNormalizationFailed)
	iss, _ := vcschema.AsIssues(err)
	assert.Contains(t, iss[0].Hint, vcschema.VCExamplesV2ContextURI)
	assert.Nil(t, got)

	s.AddDevContext()
	settle(t, s)
	require.Equal(t, normalize.StatusValid, s.Status())
	s.SetTitle("")
	settle(t, s)
	_, err = s.Submit()
	require.ErrorIs(t, err, vcschema.ErrTitleRequired)
	iss, _ = vcschema.AsIssues(err)
	assert.Equal(t, "/title", iss[0].Path)

	s.SetTitle("   ")
	settle(t, s)
	_, err = s.Submit()
	require.ErrorIs(t, err, vcschema.ErrTitleRequired)
	assert.Nil(t, got)

	s.SetTitle("university degree")
	settle(t, s)
	doc, err := s.Submit()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Same(t, doc, got)
	assert.Equal(t, "UniversityDegree", got.Title)
}

func TestSession_OnValidationChange(t *testing.T) {
	var mu sync.Mutex
	var seen []bool
	s := newSession(t, editor.OnValidationChange(func(valid bool) {
		mu.Lock()
		seen = append(seen, valid)
		mu.Unlock()
	}))
	settle(t, s)
	s.SetTitle("Degree")
	settle(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true, false, true}, seen)
}

func TestSession_StaleNormalizationIsDiscarded(t *testing.T) {
	var mu sync.Mutex
	var gates []chan normalize.Result
	started := make(chan struct{}, 8)
	checker := checkFunc(func(ctx context.Context, _ any) normalize.Result {
		ch := make(chan normalize.Result, 1)
		mu.Lock()
		gates = append(gates, ch)
		mu.Unlock()
		started <- struct{}{}
		select {
		case r := <-ch:
			return r
		case <-ctx.Done():
			return normalize.Result{Status: normalize.StatusInvalid}
		}
	})
	reg := prometheus.NewRegistry()
	m := normalize.NewMetrics(reg)
	s := newSession(t, editor.WithChecker(checker), editor.WithMetrics(m))
	s.SetTitle("Degree")
	<-started
	<-started
	assert.Equal(t, normalize.StatusLoading, s.Status())

	mu.Lock()
	first, second := gates[0], gates[1]
	mu.Unlock()

	second <- normalize.Result{Status: normalize.StatusValid}
	settle(t, s)
	first <- normalize.Result{Status: normalize.StatusInvalid, Output: "late"}

	assert.Eventually(t, func() bool {
		mfs, err := reg.Gather()
		if err != nil {
			return false
		}
		for _, mf := range mfs {
			if mf.GetName() == "vcschema_normalize_stale_results_total" {
				return mf.GetMetric()[0].GetCounter().GetValue() == 1
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, normalize.StatusValid, s.Status(), "last requested wins")
}

func TestSession_EditWhileValidGoesToLoading(t *testing.T) {
	gate := make(chan struct{})
	var calls int
	var mu sync.Mutex
	checker := checkFunc(func(context.Context, any) normalize.Result {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n > 1 {
			<-gate
		}
		return normalize.Result{Status: normalize.StatusValid}
	})
	s := newSession(t, editor.WithChecker(checker))
	settle(t, s)
	require.Equal(t, normalize.StatusValid, s.Status())

	s.SetComment("changed")
	assert.Equal(t, normalize.StatusLoading, s.Status())
	close(gate)
	settle(t, s)
	assert.Equal(t, normalize.StatusValid, s.Status())
}

func TestSession_WithSchema(t *testing.T) {
	doc, err := vcschema.ParseSchema([]byte(`{
		"title":"Degree","type":"object",
		"properties":{
			"@context":{"type":"array","prefixItems":[{"type":"string","const":"https://example.org/x"}]},
			"id":{"type":"string","format":"uri"},
			"credentialSubject":{"type":"object","properties":{"name":{"title":"Name","type":"string"}},"required":["Name"]}
		}}`))
	require.NoError(t, err)
	s := newSession(t, editor.WithSchema(doc))

	snap := s.Snapshot()
	assert.True(t, snap.Form.AllowID)
	assert.Equal(t, []string{vcschema.VCv2ContextURI, "https://example.org/x"}, snap.Contexts.URIs())
	name, ok := snap.Form.Properties.Get("Name")
	require.True(t, ok)
	assert.True(t, name.Required)
	assert.NotEmpty(t, name.ID)
	id, _ := snap.Example.Get("id")
	assert.Equal(t, example.CredentialID, id)
}
