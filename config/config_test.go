package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, AnalyzerBuiltin, c.Analyzer)
	assert.Equal(t, 30*time.Second, c.AnalyzerTimeout)
	assert.Equal(t, 4, c.FixIterations)
}

func TestFromEnvOverrides(t *testing.T) {
	c, err := FromEnv(env(map[string]string{
		"CODEX_ANALYZER":            "pyright",
		"CODEX_ANALYZER_CMD":        "/opt/bin/pyright",
		"CODEX_ANALYZER_TIMEOUT":    "5s",
		"CODEX_ANALYZER_WORKERS":    "2",
		"CODEX_FIX_ITERATIONS":      "6",
		"CODEX_PARSE_CACHE_SIZE":    "16",
		"CODEX_GENERATION_ATTEMPTS": " 5 ",
		"CODEX_VALIDATION_WORKERS":  "8",
		"CODEX_MAX_FUNCTIONS":       "10",
		"CODEX_LOG_LEVEL":           "debug",
	}))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Analyzer:          AnalyzerPyright,
		AnalyzerCommand:   "/opt/bin/pyright",
		AnalyzerTimeout:   5 * time.Second,
		AnalyzerWorkers:   2,
		FixIterations:     6,
		ParseCacheSize:    16,
		Attempts:          5,
		ValidationWorkers: 8,
		MaxFunctions:      10,
		LogLevel:          slog.LevelDebug,
	}, c)
}

func TestFromEnvErrors(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"CODEX_ANALYZER":         "mypy",
		"CODEX_FIX_ITERATIONS":   "0",
		"CODEX_ANALYZER_TIMEOUT": "soon",
		"CODEX_LOG_LEVEL":        "loud",
	}))
	require.Error(t, err)
	for _, want := range []string{
		`unknown analyzer "mypy"`,
		`CODEX_FIX_ITERATIONS: want a positive integer, got "0"`,
		`CODEX_ANALYZER_TIMEOUT: want a positive duration, got "soon"`,
		"CODEX_LOG_LEVEL",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CODEX_FIX_ITERATIONS=7\n"), 0644))
	t.Chdir(dir)
	t.Setenv("CODEX_GENERATION_ATTEMPTS", "9")
	// godotenv.Load sets the variable in the process; restore it afterwards.
	t.Setenv("CODEX_FIX_ITERATIONS", "")
	require.NoError(t, os.Unsetenv("CODEX_FIX_ITERATIONS"))

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, c.FixIterations)
	assert.Equal(t, 9, c.Attempts)
}
