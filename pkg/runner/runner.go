// Package runner executes one shell command per swap set on a bounded
// worker pool. Commands start in table order and run independently: a
// failure is recorded in its Outcome and never cancels siblings.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/logging"
	"github.com/arthur-debert/dirwand/pkg/placeholder"
	"github.com/arthur-debert/dirwand/pkg/types"
)

// DefaultShell runs every command unless Options overrides it
const DefaultShell = "/bin/sh"

// Environment variables exported to every command
const (
	EnvCopyIndex = "WAND_COPY_INDEX"
	EnvCopyRoot  = "WAND_COPY_ROOT"
)

// Options configures a Runner
type Options struct {
	// Shell is invoked as `Shell -c command`
	Shell string
	// Jobs limits concurrently running commands; 0 or less is unbounded
	Jobs int
	Sink types.Sink
}

// Runner spawns commands
type Runner struct {
	shell  string
	jobs   int
	sink   types.Sink
	logger zerolog.Logger
}

// Outcome is the result of one command.
type Outcome struct {
	Index    int
	Command  string
	Dir      string
	ExitCode int
	Err      error
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Failed reports whether the command could not be spawned or exited non-zero.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// New creates a Runner
func New(opts Options) *Runner {
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell
	}
	return &Runner{
		shell:  shell,
		jobs:   opts.Jobs,
		sink:   opts.Sink,
		logger: logging.GetLogger("runner"),
	}
}

// Targets substitutes each row of table into command. When roots is nil
// every command runs in the current working directory; otherwise roots[i]
// is the working directory of row i.
func Targets(command string, table types.SwapTable, roots []string) ([]types.RunTarget, error) {
	if roots != nil && len(roots) != len(table.Rows) {
		return nil, errors.Newf(errors.ErrInternal,
			"%d working directories for %d rows", len(roots), len(table.Rows))
	}

	targets := make([]types.RunTarget, 0, len(table.Rows))
	for i, row := range table.Rows {
		cmd, err := Target(command, row, "")
		if err != nil {
			return nil, err
		}
		if roots != nil {
			cmd.Dir = roots[i]
		}
		targets = append(targets, cmd)
	}
	return targets, nil
}

// Target substitutes a single row into command.
func Target(command string, row types.SwapSet, dir string) (types.RunTarget, error) {
	resolved, err := placeholder.Substitute(command, row)
	if err != nil {
		var wandErr *errors.WandError
		if errors.As(err, &wandErr) {
			wandErr.WithDetail("command", command).WithDetail("copy", row.Index)
		}
		return types.RunTarget{}, err
	}
	return types.RunTarget{
		Index:   row.Index,
		Dir:     dir,
		Command: resolved,
		Swaps:   row,
	}, nil
}

// Dispatch starts one task per target in order and returns their futures
// without waiting for completion.
func (r *Runner) Dispatch(ctx context.Context, targets []types.RunTarget) []*Future {
	pool := r.Start(ctx)
	futures := make([]*Future, len(targets))
	for i, target := range targets {
		futures[i] = pool.Submit(target)
	}
	pool.Close()
	return futures
}

// Run dispatches every target and waits for all of them.
func (r *Runner) Run(ctx context.Context, targets []types.RunTarget) Report {
	pool := r.Start(ctx)
	for _, target := range targets {
		pool.Submit(target)
	}
	return pool.Wait()
}

// execute runs one command to completion. ctx only ends the process when
// the caller cancels it; there is no timeout.
func (r *Runner) execute(ctx context.Context, target types.RunTarget) Outcome {
	out := Outcome{
		Index:   target.Index,
		Command: target.Command,
		Dir:     target.Dir,
	}

	logging.LogCommand(r.logger, target.Index, target.Command, target.Dir)
	r.emit(types.Event{
		Kind:    types.EventCommandStarted,
		Index:   target.Index,
		Swaps:   target.Swaps,
		Command: target.Command,
		Dir:     target.Dir,
	})

	cmd := exec.CommandContext(ctx, r.shell, "-c", target.Command)
	cmd.Dir = target.Dir
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d", EnvCopyIndex, target.Index))
	if target.Dir != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", EnvCopyRoot, target.Dir))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out.Duration = time.Since(start)
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()

	if err != nil {
		out.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		}
		out.Err = errors.Wrapf(err, errors.ErrCommandFailed, "command for copy %d failed: %s", target.Index, target.Command).
			WithDetail("command", target.Command).
			WithDetail("dir", target.Dir).
			WithDetail("exit_code", out.ExitCode).
			WithDetail("copy", target.Index)

		r.logger.Error().
			Err(err).
			Int("copy", target.Index).
			Str("command", target.Command).
			Int("exit_code", out.ExitCode).
			Str("stderr", out.Stderr).
			Msg("Command execution failed")
		r.emit(r.event(types.EventCommandFailed, target, out))
		return out
	}

	r.logger.Info().
		Int("copy", target.Index).
		Str("command", target.Command).
		Dur("duration", out.Duration).
		Msg("Command executed successfully")
	r.emit(r.event(types.EventCommandDone, target, out))
	return out
}

func (r *Runner) event(kind types.EventKind, target types.RunTarget, out Outcome) types.Event {
	return types.Event{
		Kind:     kind,
		Index:    target.Index,
		Swaps:    target.Swaps,
		Command:  target.Command,
		Dir:      target.Dir,
		ExitCode: out.ExitCode,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		Duration: out.Duration,
		Err:      out.Err,
	}
}

func (r *Runner) emit(e types.Event) {
	if r.sink != nil {
		r.sink.Event(e)
	}
}
