// Package runner invokes vendor CLIs (gcloud, gsutil, az, aws, oci,
// bq, kubectl) and returns their raw output for the providers to
// parse. It never interprets provider semantics.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output captures one completed CLI invocation.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Combined returns stdout and stderr joined, the text the failure
// classifier matches patterns against.
func (o Output) Combined() string {
	if o.Stderr == "" {
		return o.Stdout
	}
	if o.Stdout == "" {
		return o.Stderr
	}
	return o.Stdout + "\n" + o.Stderr
}

// Runner executes one external command. Providers depend on this
// interface so tests can substitute canned output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
}

// CallError is returned when a command exits nonzero. It carries the
// combined output so the classifier can pattern-match it.
type CallError struct {
	Cmd    string
	Output Output
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Cmd, e.Output.ExitCode)
}

// CombinedOutput returns the failed call's stdout+stderr.
func (e *CallError) CombinedOutput() string { return e.Output.Combined() }

// Code returns the exit code.
func (e *CallError) Code() int { return e.Output.ExitCode }

// ExecRunner runs commands on the host. Extra environment entries are
// appended to the process environment, which providers use to force
// quiet/non-interactive mode.
type ExecRunner struct {
	env    []string
	logger zerolog.Logger
}

// NewExecRunner creates a runner with extra environment entries in
// KEY=VALUE form.
func NewExecRunner(logger zerolog.Logger, env ...string) *ExecRunner {
	return &ExecRunner{env: env, logger: logger}
}

// Run executes the command and waits for it to finish or for ctx to be
// cancelled. On cancellation the process receives a kill; if it
// ignores the kill the caller's worker slot is still reclaimed by the
// pool, so Run may be abandoned mid-flight.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = nil

	start := time.Now()
	err := cmd.Run()
	out := Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	r.logger.Debug().
		Str("cmd", name).
		Str("args", strings.Join(args, " ")).
		Dur("duration", out.Duration).
		Err(err).
		Msg("cli call finished")

	if err == nil {
		return out, nil
	}

	if ctx.Err() != nil {
		return out, fmt.Errorf("%s: %w", name, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, &CallError{Cmd: name, Output: out}
	}

	return out, fmt.Errorf("run %s: %w", name, err)
}
