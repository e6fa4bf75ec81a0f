package spec

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func enhancedFixture(t *testing.T) *openapi2.T {
	t.Helper()
	v2doc := convertedFixture(t)
	return Enhance(v2doc, testBackends(), Platform{
		Title: "Gateway", Version: "1.0.0", Protocol: "https", RateLimit: 5000,
	})
}

func TestMarshal_Deterministic(t *testing.T) {
	t.Parallel()
	doc := enhancedFixture(t)

	first, err := Marshal(doc, false)
	require.NoError(t, err)
	second, err := Marshal(doc, false)
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated marshal must be byte-identical")

	firstJSON, err := Marshal(doc, true)
	require.NoError(t, err)
	secondJSON, err := Marshal(doc, true)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestMarshal_YAMLCarriesExtensions(t *testing.T) {
	t.Parallel()
	doc := enhancedFixture(t)

	data, err := Marshal(doc, false)
	require.NoError(t, err)

	var tree map[string]any
	require.NoError(t, yaml.Unmarshal(data, &tree))
	assert.Equal(t, "2.0", tree["swagger"])
	assert.Contains(t, tree, "x-google-management")

	paths, ok := tree["paths"].(map[string]any)
	require.True(t, ok)
	item, ok := paths["/users/health"].(map[string]any)
	require.True(t, ok)
	get, ok := item["get"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, get, "x-google-backend")
}

func TestWrite_FormatByExtension(t *testing.T) {
	t.Parallel()
	doc := enhancedFixture(t)
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "out", "openapi.json")
	require.NoError(t, Write(doc, jsonPath))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Equal(t, byte('\n'), data[len(data)-1])

	yamlPath := filepath.Join(dir, "nested", "deep", "openapi.yaml")
	require.NoError(t, Write(doc, yamlPath))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var tree map[string]any
	assert.NoError(t, yaml.Unmarshal(data, &tree))
}
