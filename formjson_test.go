package vcschema_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vcschema "github.com/credkit/vcschema"
)

const formJSON = `{
  "title": "Degree",
  "$comment": "University degree",
  "allowId": true,
  "properties": {
    "name": {"title":"Name","type":"string","required":true,"example":"Alice"},
    "address": {"title":"Address","type":"object","required":false,"properties":{
      "street": {"title":"Street","type":"string","required":true}
    }},
    "tags": {"title":"Tags","type":"array","required":false,"items":{"title":"Tag","type":"string","required":false},"uniqueItems":true},
    "point": {"title":"Point","type":"array","required":false,"items":[
      {"title":"Lat","type":"number","required":false},
      {"title":"Lng","type":"number","required":false}
    ]},
    "active": {"title":"Active","type":"boolean","required":false,"example":false}
  }
}`

func TestFormData_JSON(t *testing.T) {
	var form vcschema.FormData
	require.NoError(t, json.Unmarshal([]byte(formJSON), &form))

	assert.Equal(t, "Degree", form.Title)
	assert.True(t, form.AllowID)
	assert.Equal(t, []string{"name", "address", "tags", "point", "active"}, form.Properties.Keys())

	tags, _ := form.Properties.Get("tags")
	h, ok := tags.Array().Items.(vcschema.Homogeneous)
	require.True(t, ok)
	assert.Equal(t, "Tag", h.Item.Title)
	assert.Equal(t, true, *tags.Array().UniqueItems)

	point, _ := form.Properties.Get("point")
	tu, ok := point.Array().Items.(vcschema.Tuple)
	require.True(t, ok)
	assert.Len(t, tu.Items, 2)

	active, _ := form.Properties.Get("active")
	assert.Equal(t, false, active.Example)

	b, err := json.Marshal(form)
	require.NoError(t, err)
	assert.JSONEq(t, formJSON, string(b))
}

func TestFormProperty_UnknownType(t *testing.T) {
	var p vcschema.FormProperty
	assert.Error(t, json.Unmarshal([]byte(`{"title":"X","type":"date"}`), &p))
}

func TestFormProperty_PayloadFollowsType(t *testing.T) {
	var p vcschema.FormProperty
	require.NoError(t, json.Unmarshal([]byte(`{"title":"X","type":"string","properties":{"a":{"title":"A","type":"string"}}}`), &p))
	assert.Nil(t, p.Object())
	assert.Equal(t, vcschema.TypeString, p.Type())
}
