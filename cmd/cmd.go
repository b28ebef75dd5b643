package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ddddddO/gtree"
	"github.com/go-logr/logr"
	"github.com/urfave/cli/v3"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/assemble"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/develop"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/manifest"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/validate"
)

// Execute runs the codex CLI with the given version string.
func Execute(version string) {
	cmd := &cli.Command{
		Name:                   "codex",
		Usage:                  "Validate, compile and assemble generated Python functions",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schema", Aliases: []string{"s"}, Usage: "Schema file listing database tables and enums"},
			&cli.StringFlag{Name: "analyzer", Usage: "Static analyzer: builtin or pyright"},
			&cli.StringFlag{Name: "analyzer-cmd", Usage: "Path of the pyright executable"},
			&cli.IntFlag{Name: "fix-iterations", Usage: "Maximum automatic fix passes per candidate"},
			&cli.IntFlag{Name: "attempts", Usage: "Generation attempts per function"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "Functions validated concurrently"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "no-color", Aliases: []string{"C"}, Usage: "Disable ANSI color output"},
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate one candidate against a function contract",
				ArgsUsage: "<candidate.py>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Aliases: []string{"c"}, Usage: "Contract file (YAML)", Required: true},
					&cli.StringFlag{Name: "requirements", Aliases: []string{"r"}, Usage: "Dependency block of the candidate"},
				},
				Action: validateAction,
			},
			{
				Name:      "develop",
				Usage:     "Build every route of a project and write the application",
				ArgsUsage: "<project.yaml>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory", Value: "out"},
				},
				Action: developAction,
			},
			{
				Name:      "emit",
				Usage:     "Print the generated application files",
				ArgsUsage: "<project.yaml>",
				Action:    emitAction,
			},
			{
				Name:      "tree",
				Usage:     "Show the function tree of every route",
				ArgsUsage: "<project.yaml>",
				Action:    treeAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func oneArg(cmd *cli.Command) (string, error) {
	if cmd.NArg() != 1 {
		return "", fmt.Errorf("usage: codex %s %s", cmd.Name, cmd.ArgsUsage)
	}
	return cmd.Args().First(), nil
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	path, err := oneArg(cmd)
	if err != nil {
		return err
	}
	e, err := newEngine(cmd)
	if err != nil {
		return err
	}
	contract, err := loadContract(cmd.String("contract"))
	if err != nil {
		return err
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading candidate: %w", err)
	}
	cand := validate.Candidate{Code: string(code)}
	if req := cmd.String("requirements"); req != "" {
		m, err := manifest.Read(req)
		if err != nil {
			return err
		}
		cand.Requirements = m.String()
	}

	ctx = logr.NewContext(ctx, e.log)
	res, err := e.validator.Validate(ctx, validate.Request{Contract: contract, Candidate: cand})
	if err != nil {
		return err
	}
	printResult(os.Stderr, contract.Name, res)
	fmt.Fprintln(os.Stdout, res.Source)
	return nil
}

func printResult(w io.Writer, name string, res *validate.Result) {
	fmt.Fprintln(w, okHeader("accepted %q in %d pass(es)", name, res.Passes))
	for _, a := range res.Added {
		fmt.Fprintf(w, "  + %s\n", a)
	}
	for _, r := range res.Rewrites {
		fmt.Fprintf(w, "  ~ %s\n", r)
	}
	for _, c := range res.Implementation.NewFunctions {
		fmt.Fprintf(w, "  new function %s\n", c.Signature())
	}
	for _, t := range res.Implementation.NewTypes {
		fmt.Fprintf(w, "  new %s %s\n", t.Kind, t.Name)
	}
	for _, p := range res.Implementation.Packages {
		fmt.Fprintf(w, "  requires %s\n", p)
	}
}

func runProject(ctx context.Context, cmd *cli.Command) (*assemble.CompiledApplication, error) {
	path, err := oneArg(cmd)
	if err != nil {
		return nil, err
	}
	e, err := newEngine(cmd)
	if err != nil {
		return nil, err
	}
	p, err := develop.LoadProject(path)
	if err != nil {
		return nil, err
	}
	d := e.driver(develop.NewStaticGenerator(p.Candidates))
	return d.Run(logr.NewContext(ctx, e.log), p)
}

func developAction(ctx context.Context, cmd *cli.Command) error {
	app, err := runProject(ctx, cmd)
	if err != nil {
		return err
	}
	out := cmd.String("output")
	if err := app.WriteTo(out); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, okHeader("assembled %q: %d route(s), %d package(s) in %s",
		app.Name, len(app.Routes), app.Manifest.Len(), out))
	fmt.Fprintf(os.Stderr, "  id %s\n", app.ID)
	return nil
}

func emitAction(ctx context.Context, cmd *cli.Command) error {
	app, err := runProject(ctx, cmd)
	if err != nil {
		return err
	}
	for _, f := range app.Files {
		if f.Content == "" {
			continue
		}
		fmt.Printf("# === %s ===\n%s\n", f.Path, f.Content)
	}
	return nil
}

func treeAction(ctx context.Context, cmd *cli.Command) error {
	path, err := oneArg(cmd)
	if err != nil {
		return err
	}
	e, err := newEngine(cmd)
	if err != nil {
		return err
	}
	p, err := develop.LoadProject(path)
	if err != nil {
		return err
	}
	d := e.driver(develop.NewStaticGenerator(p.Candidates))
	ctx = logr.NewContext(ctx, e.log)

	// Every route is grown even when an earlier one fails so the tree
	// shows where each stopped.
	var roots []graph.FuncID
	var errs []error
	for _, rs := range p.Routes {
		root := d.Arena.AddRoot(rs.Function)
		roots = append(roots, root)
		if err := d.Grow(ctx, rs.Name, root); err != nil {
			errs = append(errs, err)
		}
	}
	if err := renderTree(os.Stdout, p, d.Arena, roots); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// renderTree prints one branch per route with the functions below it.
func renderTree(w io.Writer, p *develop.Project, arena *graph.Arena, roots []graph.FuncID) error {
	root := gtree.NewRoot(p.Name)
	for i, rs := range p.Routes {
		branch := root.Add(fmt.Sprintf("%s %s (%s)", strings.ToUpper(rs.Method), rs.Path, rs.Name))
		addFunction(branch, arena, roots[i], make(map[graph.FuncID]bool))
	}
	return gtree.OutputFromRoot(w, root)
}

func addFunction(parent *gtree.Node, arena *graph.Arena, id graph.FuncID, onPath map[graph.FuncID]bool) {
	n, ok := arena.Function(id)
	if !ok {
		return
	}
	label := fmt.Sprintf("%s [%s]", n.Contract.Signature(), n.State)
	if onPath[id] {
		parent.Add(label + " (cycle)")
		return
	}
	node := parent.Add(label)
	for _, tid := range n.Types {
		if t, ok := arena.Type(tid); ok {
			node.Add(fmt.Sprintf("%s %s", t.Kind, t.Name))
		}
	}
	onPath[id] = true
	for _, c := range n.Children {
		addFunction(node, arena, c, onPath)
	}
	delete(onPath, id)
}
