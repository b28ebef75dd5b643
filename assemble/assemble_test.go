package assemble

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/compiler"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/manifest"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/schema"
)

func addUnit() *compiler.CompiledUnit {
	return &compiler.CompiledUnit{
		Route: "Add Numbers",
		Root:  "add",
		Contract: graph.Contract{
			Name:        "add",
			Description: "Adds two numbers.",
			Args:        []graph.Arg{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
			Return:      graph.Return{Type: "int"},
		},
		FunctionBlocks: []string{"def add(a: int, b: int) -> int:\n    return a + b"},
		Packages:       manifest.New(),
	}
}

func houseUnit() *compiler.CompiledUnit {
	return &compiler.CompiledUnit{
		Route: "listHouses",
		Root:  "list_houses",
		Async: true,
		Contract: graph.Contract{
			Name:   "list_houses",
			Args:   []graph.Arg{{Name: "since", Type: "Optional[datetime]"}, {Name: "owner", Type: "User"}},
			Return: graph.Return{Type: "List[House]"},
		},
		Imports:        []string{"from datetime import datetime", "from pydantic import BaseModel", "from prisma.models import User"},
		TypeBlocks:     []string{"class House(BaseModel):\n    rooms: int"},
		TypeNames:      []string{"House"},
		FunctionBlocks: []string{"async def list_houses(since: datetime | None, owner: User) -> list[House]:\n    return []"},
		Packages:       manifest.Of(manifest.Package{Name: "pydantic", Specifier: ">=2"}, manifest.Package{Name: "requests"}),
	}
}

func newAssembler() *Assembler {
	return &Assembler{
		Name:        "Calculator",
		Description: "Adds things.",
		Schema:      schema.New("prisma", []string{"User"}, nil),
		Log:         logr.Discard(),
	}
}

func TestAssembleSingleRoute(t *testing.T) {
	app, err := newAssembler().Assemble(context.Background(), []Route{
		{Name: "Add Numbers", Method: "POST", Path: "/add", Unit: addUnit()},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, app.ID)

	var paths []string
	for _, f := range app.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		"project/__init__.py",
		"project/add_numbers/__init__.py",
		"project/add_numbers/service.py",
		"project/server.py",
		"requirements.txt",
	}, paths)

	svc, ok := app.File("project/add_numbers/service.py")
	require.True(t, ok)
	assert.Equal(t, "def add(a: int, b: int) -> int:\n    return a + b\n", svc.Content)

	s := app.Server
	assert.Contains(t, s, "from project.add_numbers import service as add_numbers_service\n")
	assert.Contains(t, s, "db_client = prisma.Prisma(auto_register=True)")
	assert.Contains(t, s, `title="Calculator",`)
	assert.Contains(t, s, "@app.post(\"/add\", response_model=int)\n"+
		"async def api_post_add(a: int, b: int) -> int | Response:\n"+
		"    \"Adds two numbers.\"\n"+
		"    try:\n"+
		"        res = add_numbers_service.add(a=a, b=b)\n")
	assert.Contains(t, s, `return JSONResponse(content={"error": str(e)}, status_code=500)`)

	req, _ := app.File("requirements.txt")
	assert.Equal(t, "fastapi\nuvicorn\nprisma\npydantic\n", req.Content)
}

func TestAssembleMergesRoutes(t *testing.T) {
	app, err := newAssembler().Assemble(context.Background(), []Route{
		{Name: "Add Numbers", Method: "post", Path: "/add", Unit: addUnit()},
		{Name: "listHouses", Method: "get", Path: "/houses", Unit: houseUnit()},
	})
	require.NoError(t, err)
	require.Len(t, app.Units, 2)

	s := app.Server
	assert.Contains(t, s, "from datetime import datetime\n")
	assert.Contains(t, s, "from prisma.models import User\n")
	assert.Contains(t, s, "from project.list_houses import service as list_houses_service\n")
	assert.Contains(t, s, "async def api_get_list_houses(since: datetime | None, owner: User) -> list[list_houses_service.House] | Response:")
	assert.Contains(t, s, "res = await list_houses_service.list_houses(since=since, owner=owner)")
	assert.Less(t, strings.Index(s, "api_post_add"), strings.Index(s, "api_get_list_houses"))
	assert.Equal(t, 1, strings.Count(s, "import prisma\n"))

	assert.Equal(t, []string{"fastapi", "uvicorn", "prisma", "pydantic", "requests"}, names(app.Manifest))
	assert.Empty(t, app.Manifest.Lookup("pydantic").Specifier)
}

func names(m *manifest.Manifest) []string {
	var out []string
	for _, p := range m.List() {
		out = append(out, p.Name)
	}
	return out
}

func TestAssembleRejectsConflicts(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
		errMsg string
	}{
		{"none", nil, "no routes"},
		{"module", []Route{
			{Name: "Add Numbers", Method: "post", Path: "/add", Unit: addUnit()},
			{Name: "add_numbers", Method: "post", Path: "/add2", Unit: addUnit()},
		}, `both map to module "add_numbers"`},
		{"endpoint", []Route{
			{Name: "one", Method: "post", Path: "/add", Unit: addUnit()},
			{Name: "two", Method: "POST", Path: "/add", Unit: houseUnit()},
		}, "both serve POST /add"},
		{"handler", []Route{
			{Name: "one", Method: "post", Path: "/a", Unit: addUnit()},
			{Name: "two", Method: "post", Path: "/b", Unit: addUnit()},
		}, "both define handler api_post_add"},
		{"method", []Route{{Name: "one", Method: "trace", Path: "/a", Unit: addUnit()}}, `unsupported method "trace"`},
		{"path", []Route{{Name: "one", Method: "get", Path: "a", Unit: addUnit()}}, "must start with /"},
		{"unit", []Route{{Name: "one", Method: "get", Path: "/a"}}, "no compiled unit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAssembler().Assemble(context.Background(), tt.routes)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWriteTo(t *testing.T) {
	app, err := newAssembler().Assemble(context.Background(), []Route{
		{Name: "Add Numbers", Method: "post", Path: "/add", Unit: addUnit()},
	})
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, app.WriteTo(dir))

	data, err := os.ReadFile(filepath.Join(dir, "project", "server.py"))
	require.NoError(t, err)
	assert.Equal(t, app.Server, string(data))
	_, err = os.Stat(filepath.Join(dir, "project", "add_numbers", "__init__.py"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "requirements.txt"))
	assert.NoError(t, err)
}

func TestModuleName(t *testing.T) {
	tests := map[string]string{
		"Add Numbers":    "add_numbers",
		"addNumbers":     "add_numbers",
		"get-user/by-id": "get_user_by_id",
		"42 things":      "route_42_things",
		"":               "route",
		"already_snake":  "already_snake",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ModuleName(in))
		})
	}
}

func TestRenderType(t *testing.T) {
	q := func(n string) string {
		if n == "House" {
			return "svc.House"
		}
		return n
	}
	assert.Equal(t, "dict[str, list[svc.House]]", renderType("Dict[str, List[House]]", q))
	assert.Equal(t, "svc.House | None", renderType("Optional[House]", q))
	assert.Equal(t, "svc.House | None", renderType("None | House", q))
	assert.Equal(t, "int | str | None", renderType("Union[None, str, int]", q))
	assert.Equal(t, "list[svc.House | None]", renderType("List[Optional[House]]", q))
	assert.Equal(t, "None", renderType("", q))
	assert.Equal(t, "None", renderType("None", q))
}

func TestPyQuote(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"", `""`},
		{"Calculator", `"Calculator"`},
		{`say "hi"`, `"say \"hi\""`},
		{`C:\tmp`, `"C:\\tmp"`},
		{"two\nlines\tx\r", `"two\nlines\tx\r"`},
		{"bell\x07del\x7f", `"bell\x07del\x7f"`},
		{"café ✓", `"café ✓"`},
		{"bad\xffbyte", "\"bad\uFFFDbyte\""},
	} {
		assert.Equal(t, tc.want, pyQuote(tc.in), "input %q", tc.in)
	}
}
