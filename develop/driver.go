// Package develop drives a whole run in process: it grows each route's
// function tree by asking a Generator for candidates until every node is
// written, then compiles every tree and assembles the application.
package develop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/assemble"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/compiler"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/validate"
)

const (
	DefaultAttempts     = 3
	DefaultWorkers      = 4
	DefaultMaxFunctions = 64
)

// FailedError reports a node that exhausted its generation attempts. The
// node is FAILED in the arena and its route is aborted.
type FailedError struct {
	Route    string
	Function string
	Attempts int
	Errors   []string
}

func (e *FailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "route %q: function %q failed after %d attempt(s)", e.Route, e.Function, e.Attempts)
	for _, m := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(strings.ReplaceAll(m, "\n", "\n    "))
	}
	return sb.String()
}

// Driver runs projects. Arena, Validator, Compiler, Assembler and
// Generator are required.
type Driver struct {
	Arena     *graph.Arena
	Validator *validate.Validator
	Compiler  *compiler.Compiler
	Assembler *assemble.Assembler
	Generator Generator

	Attempts     int // generation attempts per node
	Workers      int // nodes validated concurrently
	MaxFunctions int // upper bound on nodes per tree
	Log          logr.Logger
}

func (d *Driver) logger(ctx context.Context) logr.Logger {
	if d.Log.GetSink() != nil {
		return d.Log
	}
	return logr.FromContextOrDiscard(ctx)
}

// Run builds every route of p and assembles the application. The first
// failing route aborts the run.
func (d *Driver) Run(ctx context.Context, p *Project) (*assemble.CompiledApplication, error) {
	routes, err := d.Build(ctx, p)
	if err != nil {
		return nil, err
	}
	d.Assembler.Name = p.Name
	d.Assembler.Description = p.Description
	return d.Assembler.Assemble(ctx, routes)
}

// Build grows and compiles every route of p without assembling them.
func (d *Driver) Build(ctx context.Context, p *Project) ([]assemble.Route, error) {
	var routes []assemble.Route
	for _, rs := range p.Routes {
		root := d.Arena.AddRoot(rs.Function)
		if err := d.Grow(ctx, rs.Name, root); err != nil {
			return nil, err
		}
		unit, err := d.Compiler.Compile(ctx, root, rs.Name)
		if err != nil {
			return nil, err
		}
		routes = append(routes, assemble.Route{Name: rs.Name, Method: rs.Method, Path: rs.Path, Unit: unit})
	}
	return routes, nil
}

// Grow implements the tree rooted at root wave by wave: every DEFINITION
// node of the tree is implemented concurrently, and the children those
// implementations declare form the next wave.
func (d *Driver) Grow(ctx context.Context, route string, root graph.FuncID) error {
	log := d.logger(ctx).WithValues("route", route)
	maxFuncs := d.MaxFunctions
	if maxFuncs <= 0 {
		maxFuncs = DefaultMaxFunctions
	}
	workers := d.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	for wave := 1; ; wave++ {
		pending := d.Arena.Pending(root)
		if len(pending) == 0 {
			return nil
		}
		if n := len(d.Arena.Tree(root)); n > maxFuncs {
			return fmt.Errorf("route %q: tree has %d functions, limit is %d", route, n, maxFuncs)
		}
		log.V(1).Info("implementing wave", "wave", wave, "functions", len(pending))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, id := range pending {
			g.Go(func() error {
				return d.implement(gctx, route, id)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
}

// implement asks for candidates until one is accepted, feeding back the
// previous rejection. Exhausting the attempts fails the node.
func (d *Driver) implement(ctx context.Context, route string, id graph.FuncID) error {
	node, ok := d.Arena.Function(id)
	if !ok {
		return fmt.Errorf("implement node %d: %w", id, graph.ErrUnknownNode)
	}
	name := node.Contract.Name
	log := d.logger(ctx).WithValues("route", route, "function", name)
	attempts := d.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var feedback []string
	tried := 0
	for tried < attempts {
		cand, err := d.Generator.Generate(ctx, node.Contract, feedback)
		if errors.Is(err, ErrExhausted) {
			break
		}
		if err != nil {
			return fmt.Errorf("route %q: generating %q: %w", route, name, err)
		}
		tried++
		_, err = d.Validator.Implement(ctx, d.Arena, id, cand)
		if err == nil {
			return nil
		}
		ve, ok := validate.AsValidationError(err)
		if !ok {
			return err
		}
		feedback = ve.Messages
		log.Info("candidate rejected", "attempt", tried, "errors", len(feedback))
	}
	if len(feedback) == 0 {
		feedback = []string{"no candidate was generated"}
	}
	if err := d.Arena.Fail(id, feedback); err != nil {
		return err
	}
	return &FailedError{Route: route, Function: name, Attempts: tried, Errors: feedback}
}
