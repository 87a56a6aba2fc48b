package vcschema_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/jsonschema"
)

func ptr[T any](v T) *T { return &v }

func fields(kv ...any) *vcschema.Fields {
	f := &vcschema.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Set(kv[i].(string), kv[i+1].(*vcschema.FormProperty))
	}
	return f
}

func required(p *vcschema.FormProperty) *vcschema.FormProperty {
	p.Required = true
	return p
}

func degreeForm() vcschema.FormData {
	return vcschema.FormData{
		Title:      "Degree",
		Properties: fields("name", required(vcschema.NewField("Name", vcschema.TypeString))),
	}
}

func TestExport_DegreeScenario(t *testing.T) {
	doc := vcschema.Export(degreeForm(), vcschema.DefaultContexts())

	assert.Equal(t, "Degree", doc.Title)
	assert.Equal(t, []string{"VerifiableCredential", "Degree"}, doc.Properties.Type.Consts())
	assert.Equal(t, []string{vcschema.VCv2ContextURI}, doc.Properties.Context.Consts())
	name, ok := doc.Properties.CredentialSubject.Properties.Get("name")
	require.True(t, ok)
	assert.Equal(t, "string", name.Type)
	assert.Equal(t, []string{"Name"}, doc.Properties.CredentialSubject.Required)
	assert.Nil(t, doc.Properties.ID)
	assert.Equal(t, []string{"@context", "type", "credentialSubject"}, doc.Required)
}

func TestExport_EmptyRequiredIsOmitted(t *testing.T) {
	form := degreeForm()
	form.Properties.Delete("name")
	doc := vcschema.Export(form, nil)

	b, err := jsonschema.Marshal(doc)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	subject := raw["properties"].(map[string]any)["credentialSubject"].(map[string]any)
	assert.Equal(t, map[string]any{}, subject["properties"])
	_, has := subject["required"]
	assert.False(t, has, "required must be omitted when empty")
}

func TestExport_WireShape(t *testing.T) {
	form := degreeForm()
	form.Comment = "University degree"
	form.AllowID = true
	b, err := jsonschema.Marshal(vcschema.Export(form, vcschema.DefaultContexts()))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "Degree",
		"$comment": "University degree",
		"type": "object",
		"properties": {
			"@context": {"type":"array","items":{"type":"string"},"minItems":1,
				"prefixItems":[{"type":"string","const":"https://www.w3.org/ns/credentials/v2"}]},
			"id": {"type":"string","format":"uri"},
			"type": {"type":"array","items":{"type":"string"},
				"prefixItems":[{"type":"string","const":"VerifiableCredential"},{"type":"string","const":"Degree"}],
				"maxItems":2},
			"credentialSubject": {"type":"object",
				"properties":{"name":{"title":"Name","type":"string"}},
				"required":["Name"]}
		},
		"required": ["@context","type","credentialSubject"]
	}`, string(b))
}

func TestFormToSchema_RequiredStaysAtItsLevel(t *testing.T) {
	street := required(vcschema.NewField("Street", vcschema.TypeString))
	address := vcschema.NewObject("Address", fields("street", street, "city", vcschema.NewField("City", vcschema.TypeString)))
	props, req := vcschema.FormToSchema(fields(
		"address", address,
		"age", required(vcschema.NewField("Age", vcschema.TypeNumber)),
	))

	assert.Equal(t, []string{"Age"}, req)
	addr, _ := props.Get("address")
	assert.Equal(t, []string{"Street"}, addr.Required)
	city, _ := addr.Properties.Get("city")
	assert.Nil(t, city.Required)
}

func TestFormToSchema_RequiredFallsBackToKey(t *testing.T) {
	_, req := vcschema.FormToSchema(fields("nick", required(vcschema.NewField("", vcschema.TypeString))))
	assert.Equal(t, []string{"nick"}, req)
}

func TestFormToSchema_EmptyExampleIsDropped(t *testing.T) {
	f := vcschema.NewField("Name", vcschema.TypeString)
	f.Example = ""
	g := vcschema.NewField("Active", vcschema.TypeBoolean)
	g.Example = false
	props, _ := vcschema.FormToSchema(fields("name", f, "active", g))

	name, _ := props.Get("name")
	assert.Nil(t, name.Example)
	active, _ := props.Get("active")
	assert.Equal(t, false, active.Example)
}

func TestRoundTrip_FormSchemaForm(t *testing.T) {
	point := vcschema.NewArray("Point", vcschema.Tuple{Items: []*vcschema.FormProperty{
		vcschema.NewField("Lat", vcschema.TypeNumber),
		vcschema.NewField("Lng", vcschema.TypeNumber),
	}})
	point.Array().MinItems = ptr(2)
	point.Array().MaxItems = ptr(2)

	member := vcschema.NewObject("", fields("role", required(vcschema.NewField("Role", vcschema.TypeString))))
	members := vcschema.NewArray("Members", vcschema.Homogeneous{Item: member})
	members.Array().UniqueItems = ptr(true)

	name := required(vcschema.NewField("Name", vcschema.TypeString))
	name.Comment = "Full name"
	name.Example = "Alice"

	in := fields(
		"name", name,
		"address", vcschema.NewObject("Address", fields(
			"street", required(vcschema.NewField("Street", vcschema.TypeString)),
			"zip", vcschema.NewField("Zip", vcschema.TypeNumber),
		)),
		"point", point,
		"members", members,
		"tags", vcschema.NewArray("Tags", nil),
		"empty", vcschema.NewObject("Empty", nil),
	)

	props, req := vcschema.FormToSchema(in)
	out, diag := vcschema.SchemaToForm(props, req)
	assert.Empty(t, diag.Warnings)
	assert.Equal(t, in, out)
	assert.Equal(t, in.Keys(), out.Keys())
}

func TestRoundTrip_ThroughJSON(t *testing.T) {
	form := degreeForm()
	form.Properties.Set("scores", vcschema.NewArray("Scores", vcschema.Tuple{Items: []*vcschema.FormProperty{
		vcschema.NewField("First", vcschema.TypeNumber),
		vcschema.NewField("Second", vcschema.TypeString),
	}}))
	ctxs, err := vcschema.DefaultContexts().Add("https://example.org/ctx/degree.json")
	require.NoError(t, err)

	b, err := jsonschema.MarshalIndent(vcschema.Export(form, ctxs))
	require.NoError(t, err)
	back, backCtx, _, err := vcschema.ImportJSON(b)
	require.NoError(t, err)

	assert.Equal(t, form.Properties, back.Properties)
	assert.Equal(t, ctxs.URIs(), backCtx.URIs())
	assert.Equal(t, "degree", backCtx[1].Prefix)

	scores, _ := back.Properties.Get("scores")
	tuple, ok := scores.Array().Items.(vcschema.Tuple)
	require.True(t, ok, "tuple items must stay a tuple")
	assert.Len(t, tuple.Items, 2)
}

func TestSchemaToForm_UnwrapsPropertiesWrapper(t *testing.T) {
	var props jsonschema.Properties
	src := `{"properties":{"name":{"title":"Name","type":"string"},"age":{"title":"Age","type":"number"}},"required":["Name"]}`
	require.NoError(t, json.Unmarshal([]byte(src), &props))

	out, diag := vcschema.SchemaToForm(&props, nil)
	assert.Equal(t, []string{"name", "age"}, out.Keys())
	name, _ := out.Get("name")
	assert.True(t, name.Required)
	age, _ := out.Get("age")
	assert.False(t, age.Required)
	require.Len(t, diag.Warnings, 1)
	assert.Equal(t, vcschema.CodeUnwrappedProperties, diag.Warnings[0].Code)
	assert.Equal(t, "/properties/credentialSubject/properties/properties", diag.Warnings[0].Path)
}

func TestSchemaToForm_TitleBecomesResolvedKey(t *testing.T) {
	props := jsonschema.NewProperties()
	props.Set("given_name", &jsonschema.Property{Type: "string"})
	out, _ := vcschema.SchemaToForm(props, []string{"given_name"})
	p, _ := out.Get("given_name")
	assert.Equal(t, "given_name", p.Title)
	assert.True(t, p.Required)
}

func TestImport_MissingCredentialSubject(t *testing.T) {
	_, _, _, err := vcschema.Import(&jsonschema.Document{Title: "X"})
	require.Error(t, err)
	assert.ErrorIs(t, err, vcschema.ErrParse)
	iss, ok := vcschema.AsIssues(err)
	require.True(t, ok)
	assert.True(t, iss.HasCode(vcschema.CodeMissingCredentialSubject))
}

func TestImport_ForcesVCv2First(t *testing.T) {
	doc := vcschema.Export(degreeForm(), nil)
	doc.Properties.Context.PrefixItems = []jsonschema.ConstString{
		{Type: "string", Const: "https://example.org/a"},
		{Type: "string", Const: vcschema.VCv2ContextURI},
	}
	_, ctxs, _, err := vcschema.Import(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{vcschema.VCv2ContextURI, "https://example.org/a"}, ctxs.URIs())
	assert.Equal(t, "vc", ctxs[0].Prefix)
}
