package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureGraph = `{
  "graph": {
    "nodes": {
      "users": {"name": "users", "type": "app", "data": {"root": "apps/users", "tags": ["gateway:expose"]}},
      "admin": {"name": "admin", "type": "app", "data": {"root": "apps/admin", "tags": []}},
      "models": {"name": "models", "type": "lib", "data": {"root": "libs/models", "tags": []}},
      "auth": {"name": "auth", "type": "lib", "data": {"root": "libs/auth", "tags": []}}
    },
    "dependencies": {
      "users": [
        {"source": "users", "target": "models", "type": "static"},
        {"source": "users", "target": "npm:express", "type": "static"},
        {"source": "users", "target": "missing", "type": "static"}
      ],
      "models": [
        {"source": "models", "target": "auth", "type": "static"}
      ]
    }
  }
}`

func TestParseGraph(t *testing.T) {
	t.Parallel()
	g, err := ParseGraph([]byte(fixtureGraph))
	require.NoError(t, err)
	require.Len(t, g.Projects, 4)

	users := g.Projects["users"]
	require.NotNil(t, users)
	assert.Equal(t, KindApplication, users.Kind)
	assert.Equal(t, "apps/users", users.Root)
	assert.True(t, users.HasTag(ExposeTag))
	// npm: and unknown targets are dropped.
	assert.Equal(t, []string{"models"}, users.DependsOn)

	assert.Equal(t, KindLibrary, g.Projects["models"].Kind)
}

func TestParseGraph_Invalid(t *testing.T) {
	t.Parallel()
	_, err := ParseGraph([]byte("not json"))
	require.Error(t, err)

	_, err = ParseGraph([]byte(`{"graph": {"nodes": {}}}`))
	require.Error(t, err, "empty graph is a discovery error")
}

func TestGraphArgv(t *testing.T) {
	t.Parallel()
	argv := graphArgv("", "/tmp/out.json")
	assert.Equal(t, []string{"npx", "nx", "graph", "--file=/tmp/out.json"}, argv)

	argv = graphArgv("nx graph --file={file}", "/tmp/out.json")
	assert.Equal(t, []string{"nx", "graph", "--file=/tmp/out.json"}, argv)

	argv = graphArgv("make project-graph", "/tmp/out.json")
	assert.Equal(t, []string{"make", "project-graph", "--file=/tmp/out.json"}, argv)
}
