package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-logr/logr"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/assemble"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/ast"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/compiler"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/config"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/develop"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/fixer"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/graph"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/schema"
	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/validate"
)

// engine is the wired set of components every command works with.
type engine struct {
	cfg       config.Config
	log       logr.Logger
	schema    *schema.Context
	cache     *ast.Cache
	validator *validate.Validator
}

func newEngine(cmd *cli.Command) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return nil, err
	}
	colored := setupColor(cmd.Bool("no-color"))
	log := newLogger(os.Stderr, cfg.LogLevel, colored)

	sc := schema.New("", nil, nil)
	if path := cmd.String("schema"); path != "" {
		if sc, err = schema.Load(path); err != nil {
			return nil, err
		}
	}
	cache, err := ast.NewCache(cfg.ParseCacheSize)
	if err != nil {
		return nil, err
	}

	var analyzer fixer.Analyzer = fixer.BuiltinAnalyzer{}
	if cfg.Analyzer == config.AnalyzerPyright {
		analyzer = &fixer.PyrightAnalyzer{Command: cfg.AnalyzerCommand}
	}
	pool := fixer.NewPool(analyzer, cfg.AnalyzerWorkers, cfg.AnalyzerTimeout)
	log.V(1).Info("engine configured", "analyzer", cfg.Analyzer, "schema", sc.Names(),
		"fixIterations", cfg.FixIterations, "attempts", cfg.Attempts)

	return &engine{
		cfg:    cfg,
		log:    log,
		schema: sc,
		cache:  cache,
		validator: &validate.Validator{
			Cache:     cache,
			Fixer:     &fixer.Fixer{Analyzer: pool, Schema: sc},
			Schema:    sc,
			MaxPasses: cfg.FixIterations,
			Log:       log,
		},
	}, nil
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cli.Command, cfg *config.Config) error {
	if cmd.IsSet("analyzer") {
		cfg.Analyzer = cmd.String("analyzer")
		if cfg.Analyzer != config.AnalyzerBuiltin && cfg.Analyzer != config.AnalyzerPyright {
			return fmt.Errorf("unknown analyzer %q", cfg.Analyzer)
		}
	}
	if cmd.IsSet("analyzer-cmd") {
		cfg.AnalyzerCommand = cmd.String("analyzer-cmd")
	}
	if cmd.IsSet("fix-iterations") {
		cfg.FixIterations = cmd.Int("fix-iterations")
	}
	if cmd.IsSet("attempts") {
		cfg.Attempts = cmd.Int("attempts")
	}
	if cmd.IsSet("workers") {
		cfg.ValidationWorkers = cmd.Int("workers")
	}
	if cmd.IsSet("log-level") {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		cfg.LogLevel = lvl
	}
	return nil
}

func (e *engine) driver(gen develop.Generator) *develop.Driver {
	arena := graph.NewArena()
	return &develop.Driver{
		Arena:        arena,
		Validator:    e.validator,
		Compiler:     compiler.New(arena, e.cache, e.log),
		Assembler:    &assemble.Assembler{Schema: e.schema, Cache: e.cache, Log: e.log},
		Generator:    gen,
		Attempts:     e.cfg.Attempts,
		Workers:      e.cfg.ValidationWorkers,
		MaxFunctions: e.cfg.MaxFunctions,
		Log:          e.log,
	}
}

func loadContract(path string) (graph.Contract, error) {
	var c graph.Contract
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading contract: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("%s: decoding contract: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
