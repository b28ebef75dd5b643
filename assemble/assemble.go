// Package assemble merges the compiled units of every route into one
// deployable FastAPI application: a service module per route, a server
// module with the scaffold and one HTTP wrapper per route, and a single
// requirements file.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/lithammer/dedent"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/ast"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/compiler"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/manifest"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/modules"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/schema"
)

// ProjectPackage is the Python package every generated module lives in.
const ProjectPackage = "project"

// ScaffoldPackages are required by the server scaffold itself and lead the
// merged manifest.
var ScaffoldPackages = []manifest.Package{
	{Name: "fastapi"},
	{Name: "uvicorn"},
	{Name: "prisma"},
	{Name: "pydantic"},
}

var methods = []string{"get", "post", "put", "patch", "delete"}

// ErrNoRoutes is returned when there is nothing to assemble.
var ErrNoRoutes = errors.New("no routes to assemble")

// Route exposes one compiled unit over HTTP.
type Route struct {
	Name   string
	Method string
	Path   string
	Unit   *compiler.CompiledUnit
}

// Module returns the Python package name of the route's service.
func (r Route) Module() string {
	return ModuleName(r.Name)
}

// File is one generated file, Path relative to the output directory with
// forward slashes.
type File struct {
	Path    string
	Content string
}

// CompiledApplication is the final artifact of a run.
type CompiledApplication struct {
	ID          uuid.UUID
	Name        string
	Description string
	Routes      []Route
	Units       []*compiler.CompiledUnit
	Server      string
	Manifest    *manifest.Manifest
	Files       []File
}

// File returns the generated file at p.
func (a *CompiledApplication) File(p string) (File, bool) {
	for _, f := range a.Files {
		if f.Path == p {
			return f, true
		}
	}
	return File{}, false
}

// WriteTo writes every file of the application below dir.
func (a *CompiledApplication) WriteTo(dir string) error {
	for _, f := range a.Files {
		dst := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("writing application: %w", err)
		}
		if err := os.WriteFile(dst, []byte(f.Content), 0644); err != nil {
			return fmt.Errorf("writing application: %w", err)
		}
	}
	return nil
}

// Assembler builds applications. Schema supplies the database namespace
// and resolves schema entity names used in route signatures.
type Assembler struct {
	Name        string
	Description string
	Schema      *schema.Context
	Cache       *ast.Cache
	Log         logr.Logger
}

// Assemble merges routes into one application. Route names must map to
// distinct modules and method/path pairs must be unique.
func (a *Assembler) Assemble(ctx context.Context, routes []Route) (*CompiledApplication, error) {
	log := a.Log
	if log.GetSink() == nil {
		log = logr.FromContextOrDiscard(ctx)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	if err := checkRoutes(routes); err != nil {
		return nil, err
	}

	app := &CompiledApplication{
		ID:          uuid.New(),
		Name:        a.Name,
		Description: a.Description,
		Routes:      routes,
		Manifest:    manifest.Of(ScaffoldPackages...),
	}
	app.Files = append(app.Files, File{Path: path.Join(ProjectPackage, "__init__.py")})
	for _, r := range routes {
		app.Units = append(app.Units, r.Unit)
		app.Manifest.Merge(r.Unit.Packages)
		mod := path.Join(ProjectPackage, r.Module())
		app.Files = append(app.Files,
			File{Path: path.Join(mod, "__init__.py")},
			File{Path: path.Join(mod, "service.py"), Content: r.Unit.Source()},
		)
	}

	server := a.server(routes)
	if _, err := a.Cache.Parse(ctx, server); err != nil {
		return nil, fmt.Errorf("assembled server module: %w", err)
	}
	app.Server = server
	app.Files = append(app.Files,
		File{Path: path.Join(ProjectPackage, "server.py"), Content: server},
		File{Path: "requirements.txt", Content: app.Manifest.String()},
	)
	log.Info("assembled application", "id", app.ID, "name", app.Name,
		"routes", len(routes), "packages", app.Manifest.Len())
	return app, nil
}

func checkRoutes(routes []Route) error {
	modulesSeen := make(map[string]string)
	endpoints := make(map[string]string)
	wrappers := make(map[string]string)
	for _, r := range routes {
		if r.Unit == nil {
			return fmt.Errorf("route %q has no compiled unit", r.Name)
		}
		method := strings.ToLower(r.Method)
		if !slices.Contains(methods, method) {
			return fmt.Errorf("route %q: unsupported method %q", r.Name, r.Method)
		}
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("route %q: path %q must start with /", r.Name, r.Path)
		}
		if prev, ok := modulesSeen[r.Module()]; ok {
			return fmt.Errorf("routes %q and %q both map to module %q", prev, r.Name, r.Module())
		}
		modulesSeen[r.Module()] = r.Name
		ep := strings.ToUpper(method) + " " + r.Path
		if prev, ok := endpoints[ep]; ok {
			return fmt.Errorf("routes %q and %q both serve %s", prev, r.Name, ep)
		}
		endpoints[ep] = r.Name
		w := wrapperName(r)
		if prev, ok := wrappers[w]; ok {
			return fmt.Errorf("routes %q and %q both define handler %s", prev, r.Name, w)
		}
		wrappers[w] = r.Name
	}
	return nil
}

func wrapperName(r Route) string {
	return "api_" + strings.ToLower(r.Method) + "_" + r.Unit.Root
}

func serviceAlias(r Route) string {
	return r.Module() + "_service"
}

const header = `import logging
from contextlib import asynccontextmanager

from fastapi import FastAPI
from fastapi.responses import JSONResponse, Response
`

var body = dedent.Dedent(`
	logger = logging.getLogger(__name__)

	db_client = %[1]s.Prisma(auto_register=True)


	@asynccontextmanager
	async def lifespan(app: FastAPI):
	    await db_client.connect()
	    yield
	    await db_client.disconnect()


	app = FastAPI(
	    title=%[2]s,
	    lifespan=lifespan,
	    description=%[3]s,
	)
`)

var wrapper = dedent.Dedent(`
	@app.%[1]s(%[2]s, response_model=%[3]s)
	async def %[4]s(%[5]s) -> %[3]s | Response:
	    %[6]s
	    try:
	        res = %[7]s%[8]s(%[9]s)
	        return res
	    except Exception as e:
	        logger.exception("Error processing request")
	        return JSONResponse(content={"error": str(e)}, status_code=500)
`)

func (a *Assembler) server(routes []Route) string {
	ns := a.Schema.NS()
	imports := newImportSet(strings.Split(strings.TrimSpace(header), "\n"))
	imports.add("import " + ns)

	var wrappers []string
	for _, r := range routes {
		alias := serviceAlias(r)
		imports.add(fmt.Sprintf("from %s.%s import service as %s", ProjectPackage, r.Module(), alias))

		qualify := func(name string) string {
			if slices.Contains(r.Unit.TypeNames, name) {
				return alias + "." + name
			}
			a.importType(imports, name)
			return name
		}
		c := r.Unit.Contract
		var params, call []string
		for _, arg := range c.Args {
			params = append(params, arg.Name+": "+renderType(arg.Type, qualify))
			call = append(call, arg.Name+"="+arg.Name)
		}
		ret := renderType(c.Return.Type, qualify)
		await := ""
		if r.Unit.Async {
			await = "await "
		}
		doc := c.Description
		if doc == "" {
			doc = r.Name
		}
		wrappers = append(wrappers, strings.TrimSpace(fmt.Sprintf(wrapper,
			strings.ToLower(r.Method), pyQuote(r.Path), ret, wrapperName(r),
			strings.Join(params, ", "), pyQuote(doc),
			await, alias+"."+r.Unit.Root, strings.Join(call, ", "),
		)))
	}

	var sb strings.Builder
	sb.WriteString(imports.String())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(body, ns, pyQuote(a.Name), pyQuote(a.Description)))
	for _, w := range wrappers {
		sb.WriteString("\n\n")
		sb.WriteString(w)
		sb.WriteString("\n")
	}
	return sb.String()
}

// importType adds the import that binds a type name used in a route
// signature. Builtins need none; dotted names import their module.
func (a *Assembler) importType(imports *importSet, name string) {
	if mod, _, ok := cutLast(name, "."); ok {
		imports.add("import " + mod)
		return
	}
	if line, ok := modules.ImportFor(name); ok {
		imports.add(line)
		return
	}
	if line, ok := a.Schema.ImportFor(name); ok {
		imports.add(line)
	}
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

// importSet keeps import lines unique in first-seen order.
type importSet struct {
	lines []string
	seen  map[string]bool
}

func newImportSet(initial []string) *importSet {
	s := &importSet{seen: make(map[string]bool)}
	for _, l := range initial {
		s.add(l)
	}
	return s
}

func (s *importSet) add(line string) {
	if line == "" || s.seen[line] {
		return
	}
	s.seen[line] = true
	s.lines = append(s.lines, line)
}

func (s *importSet) String() string {
	return strings.Join(s.lines, "\n") + "\n"
}
