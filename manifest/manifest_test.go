package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		line string
		name string
		spec string
	}{
		{"fastapi", "fastapi", ""},
		{"pydantic==2.6.0", "pydantic", "==2.6.0"},
		{"httpx >= 0.27, < 1", "httpx", ">=0.27,<1"},
		{"uvicorn[standard]~=0.29", "uvicorn[standard]", "~=0.29"},
		{`pywin32; sys_platform == "win32"`, "pywin32", `; sys_platform == "win32"`},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			p, err := ParseRequirement(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.name, p.Name)
			assert.Equal(t, tt.spec, p.Specifier)
		})
	}

	_, err := ParseRequirement("==1.0")
	assert.Error(t, err)
}

func TestFirstSeenWins(t *testing.T) {
	m := New()
	assert.True(t, m.Add(Package{Name: "requests", Specifier: "==2.31.0"}))
	assert.False(t, m.Add(Package{Name: "Requests", Specifier: "==2.0.0"}))
	assert.True(t, m.Add(Package{Name: "python_dateutil"}))
	assert.False(t, m.Add(Package{Name: "python-dateutil", Specifier: ">=2"}))

	require.Equal(t, 2, m.Len())
	assert.Equal(t, "==2.31.0", m.Lookup("requests").Specifier)
	assert.Equal(t, "requests==2.31.0\npython_dateutil\n", m.String())
}

func TestMerge(t *testing.T) {
	a := Of(Package{Name: "fastapi"}, Package{Name: "pydantic", Specifier: "==2"})
	b := Of(Package{Name: "pydantic", Specifier: "==1"}, Package{Name: "httpx"})
	a.Merge(b)
	a.Merge(nil)
	assert.Equal(t, []Package{
		{Name: "fastapi"},
		{Name: "pydantic", Specifier: "==2"},
		{Name: "httpx"},
	}, a.List())
}

func TestParseBlock(t *testing.T) {
	block := `# generated
requests==2.31.0

-r base.txt
numpy  # math
requests>=1
`
	m, err := Parse(block)
	require.NoError(t, err)
	assert.Equal(t, "requests==2.31.0\nnumpy\n", m.String())

	_, err = Parse("ok\n!!bad\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requirements:2")
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	m, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())

	require.NoError(t, os.WriteFile(path, []byte("# pinned\nfastapi==0.110.0\n"), 0644))
	m, err = Read(path)
	require.NoError(t, err)
	assert.Equal(t, []Package{{Name: "fastapi", Specifier: "==0.110.0"}}, m.List())

	require.NoError(t, os.WriteFile(path, []byte("!!bad\n"), 0644))
	_, err = Read(path)
	assert.Error(t, err)
}
