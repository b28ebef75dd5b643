package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupAndImports(t *testing.T) {
	c := New("db", []string{"User", "Invoice"}, []string{"Role"})
	k, ok := c.Lookup("Role")
	require.True(t, ok)
	assert.Equal(t, Enum, k)
	assert.Equal(t, "enums", k.Module())

	line, ok := c.ImportFor("User")
	require.True(t, ok)
	assert.Equal(t, "from db.models import User", line)

	_, ok = c.ImportFor("Nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"Invoice", "Role", "User"}, c.Names())
	assert.Equal(t, DefaultSentinel, c.Sentinel())
}

func TestNilContext(t *testing.T) {
	var c *Context
	_, ok := c.Lookup("User")
	assert.False(t, ok)
	assert.Equal(t, DefaultNamespace, c.NS())
	assert.Equal(t, DefaultSentinel, c.Sentinel())
	assert.Nil(t, c.Names())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: db\ntables: [User]\nenums: [Role]\nuntyped: JsonValue\n"), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db", c.NS())
	assert.Equal(t, "JsonValue", c.Sentinel())
	k, ok := c.Lookup("User")
	require.True(t, ok)
	assert.Equal(t, Table, k)
}

func TestParseRejectsAmbiguousNames(t *testing.T) {
	_, err := Parse([]byte("tables: [Status]\nenums: [Status]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Status"`)
}

func TestKindForModule(t *testing.T) {
	k, ok := KindForModule("enums")
	assert.True(t, ok)
	assert.Equal(t, Enum, k)
	_, ok = KindForModule("client")
	assert.False(t, ok)
}
