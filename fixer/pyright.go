package fixer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// PyrightAnalyzer runs the pyright type checker as a subprocess.
type PyrightAnalyzer struct {
	// Command is the pyright executable. Defaults to "pyright".
	Command string
}

type pyrightReport struct {
	GeneralDiagnostics []struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Rule     string `json:"rule"`
		Range    struct {
			Start struct {
				Line      int `json:"line"`
				Character int `json:"character"`
			} `json:"start"`
		} `json:"range"`
	} `json:"generalDiagnostics"`
}

func (p *PyrightAnalyzer) Analyze(ctx context.Context, src string) ([]Diagnostic, error) {
	command := p.Command
	if command == "" {
		command = "pyright"
	}
	dir, err := os.MkdirTemp("", "codex-pyright-*")
	if err != nil {
		return nil, fmt.Errorf("creating analysis dir: %w", err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "main.py")
	if err := os.WriteFile(file, []byte(src), 0644); err != nil {
		return nil, fmt.Errorf("writing analysis input: %w", err)
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, command, "--outputjson", file)
	c.Dir = dir
	c.Stdout = &stdout
	c.Stderr = &stderr
	runErr := c.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// pyright exits 1 when it reports errors; only a missing report is fatal.
	if stdout.Len() == 0 {
		if runErr != nil {
			return nil, fmt.Errorf("running %s: %w: %s", command, runErr, stderr.String())
		}
		return nil, nil
	}
	return parsePyright(stdout.Bytes())
}

func parsePyright(data []byte) ([]Diagnostic, error) {
	var report pyrightReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding pyright output: %w", err)
	}
	diags := make([]Diagnostic, 0, len(report.GeneralDiagnostics))
	for _, d := range report.GeneralDiagnostics {
		diags = append(diags, Diagnostic{
			Line:     d.Range.Start.Line + 1,
			Column:   d.Range.Start.Character + 1,
			Message:  d.Message,
			Rule:     d.Rule,
			Severity: d.Severity,
		})
	}
	return diags, nil
}
