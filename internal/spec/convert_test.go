package spec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToV2_RefsUseDefinitions(t *testing.T) {
	t.Parallel()
	doc := Assemble([]*ServiceSpec{userServiceSpec()}, Info{Title: "Gateway", Version: "1.0.0"})

	v2doc, warnings, err := ConvertToV2(doc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "2.0", v2doc.Swagger)
	require.Contains(t, v2doc.Definitions, "User")

	raw, err := json.Marshal(v2doc)
	require.NoError(t, err)
	out := string(raw)
	assert.NotContains(t, out, "#/components/", "no v3 reference syntax may survive")

	// Every $ref resolves to a definitions key.
	for _, ref := range collectRefs(t, raw) {
		name := strings.TrimPrefix(ref, "#/definitions/")
		assert.NotEqual(t, ref, name, "ref %s must use #/definitions/", ref)
		assert.Contains(t, v2doc.Definitions, name)
	}
}

func TestConvertToV2_BodyParameterCarriesSchema(t *testing.T) {
	t.Parallel()
	doc := Assemble([]*ServiceSpec{userServiceSpec()}, Info{Title: "Gateway", Version: "1.0.0"})

	v2doc, _, err := ConvertToV2(doc)
	require.NoError(t, err)

	post := v2doc.Paths["/users"].Post
	require.NotNil(t, post)
	var bodies int
	for _, p := range post.Parameters {
		if p.In == "body" {
			bodies++
			require.NotNil(t, p.Schema)
			assert.Equal(t, "#/definitions/User", p.Schema.Ref)
		}
	}
	assert.Equal(t, 1, bodies, "request body becomes a single body parameter")
}

func TestConvertToV2_MapMemberRefIsRewritten(t *testing.T) {
	t.Parallel()
	ss := userServiceSpec()
	ss.Schemas["Roster"] = openapi3.NewSchemaRef("", &openapi3.Schema{
		Type: "object",
		Properties: openapi3.Schemas{
			"byName": openapi3.NewSchemaRef("", &openapi3.Schema{
				Type:                 "object",
				AdditionalProperties: openapi3.AdditionalProperties{Schema: openapi3.NewSchemaRef("#/components/schemas/User", nil)},
			}),
		},
	})

	doc := Assemble([]*ServiceSpec{ss}, Info{Title: "Gateway", Version: "1.0.0"})
	v2doc, _, err := ConvertToV2(doc)
	require.NoError(t, err)

	roster := v2doc.Definitions["Roster"]
	require.NotNil(t, roster)
	byName := roster.Value.Properties["byName"].Value
	require.NotNil(t, byName.AdditionalProperties.Schema)
	assert.Equal(t, "#/definitions/User", byName.AdditionalProperties.Schema.Ref)
}

// collectRefs walks arbitrary JSON for "$ref" string values.
func collectRefs(t *testing.T, raw []byte) []string {
	t.Helper()
	var tree any
	require.NoError(t, json.Unmarshal(raw, &tree))
	var refs []string
	var walk func(node any)
	walk = func(node any) {
		switch v := node.(type) {
		case map[string]any:
			for key, val := range v {
				if key == "$ref" {
					if s, ok := val.(string); ok {
						refs = append(refs, s)
					}
					continue
				}
				walk(val)
			}
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	walk(tree)
	return refs
}
