// Package config loads engine settings from the environment. A .env file
// in the working directory is read first; variables already set in the
// environment win over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AnalyzerBuiltin = "builtin"
	AnalyzerPyright = "pyright"
)

// Config holds every engine setting.
type Config struct {
	Analyzer          string        // CODEX_ANALYZER
	AnalyzerCommand   string        // CODEX_ANALYZER_CMD
	AnalyzerTimeout   time.Duration // CODEX_ANALYZER_TIMEOUT
	AnalyzerWorkers   int           // CODEX_ANALYZER_WORKERS
	FixIterations     int           // CODEX_FIX_ITERATIONS
	ParseCacheSize    int           // CODEX_PARSE_CACHE_SIZE
	Attempts          int           // CODEX_GENERATION_ATTEMPTS
	ValidationWorkers int           // CODEX_VALIDATION_WORKERS
	MaxFunctions      int           // CODEX_MAX_FUNCTIONS
	LogLevel          slog.Level    // CODEX_LOG_LEVEL
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Analyzer:          AnalyzerBuiltin,
		AnalyzerCommand:   "pyright",
		AnalyzerTimeout:   30 * time.Second,
		AnalyzerWorkers:   4,
		FixIterations:     4,
		ParseCacheSize:    512,
		Attempts:          3,
		ValidationWorkers: 4,
		MaxFunctions:      64,
		LogLevel:          slog.LevelInfo,
	}
}

// Load reads .env if present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, falling back to Default for unset
// or empty variables.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}
	c.Analyzer = p.str("CODEX_ANALYZER", c.Analyzer)
	c.AnalyzerCommand = p.str("CODEX_ANALYZER_CMD", c.AnalyzerCommand)
	c.AnalyzerTimeout = p.duration("CODEX_ANALYZER_TIMEOUT", c.AnalyzerTimeout)
	c.AnalyzerWorkers = p.positive("CODEX_ANALYZER_WORKERS", c.AnalyzerWorkers)
	c.FixIterations = p.positive("CODEX_FIX_ITERATIONS", c.FixIterations)
	c.ParseCacheSize = p.positive("CODEX_PARSE_CACHE_SIZE", c.ParseCacheSize)
	c.Attempts = p.positive("CODEX_GENERATION_ATTEMPTS", c.Attempts)
	c.ValidationWorkers = p.positive("CODEX_VALIDATION_WORKERS", c.ValidationWorkers)
	c.MaxFunctions = p.positive("CODEX_MAX_FUNCTIONS", c.MaxFunctions)
	if v, ok := p.get("CODEX_LOG_LEVEL"); ok {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			p.errs = append(p.errs, fmt.Errorf("CODEX_LOG_LEVEL: %w", err))
		}
	}
	switch c.Analyzer {
	case AnalyzerBuiltin, AnalyzerPyright:
	default:
		p.errs = append(p.errs, fmt.Errorf("CODEX_ANALYZER: unknown analyzer %q", c.Analyzer))
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) str(key, def string) string {
	if v, ok := p.get(key); ok {
		return v
	}
	return def
}

func (p *parser) positive(key string, def int) int {
	v, ok := p.get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		p.errs = append(p.errs, fmt.Errorf("%s: want a positive integer, got %q", key, v))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.get(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: want a positive duration, got %q", key, v))
		return def
	}
	return d
}
