// Package wand ties value resolution, the template walker and the command
// runner together into a single run.
//
// A run has two modes. With a swapfile but neither a template nor a command,
// the values given on the command line are expanded as a cartesian product
// and written to the swapfile. Otherwise the swapfile (if any) is merged
// with the command line values into a direct table, each row is copied from
// the template in order, and each row's command is dispatched as soon as
// its copy is written.
package wand

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/filesystem"
	"github.com/arthur-debert/dirwand/pkg/logging"
	"github.com/arthur-debert/dirwand/pkg/placeholder"
	"github.com/arthur-debert/dirwand/pkg/progress"
	"github.com/arthur-debert/dirwand/pkg/runner"
	"github.com/arthur-debert/dirwand/pkg/swapfile"
	"github.com/arthur-debert/dirwand/pkg/swaps"
	"github.com/arthur-debert/dirwand/pkg/types"
	"github.com/arthur-debert/dirwand/pkg/values"
	"github.com/arthur-debert/dirwand/pkg/walker"
)

// DefaultRoot is where copies are written when Options.RootPath is empty.
const DefaultRoot = "."

// Mode is the kind of work a run performs
type Mode string

const (
	// ModeGenerate writes a cartesian swapfile and nothing else
	ModeGenerate Mode = "generate"
	// ModeReplicate copies the template and/or runs the command per row
	ModeReplicate Mode = "replicate"
)

// Options describes one invocation.
type Options struct {
	TemplatePath string
	RunCommand   string
	SwapfilePath string

	// RootPath is the directory copies are written into
	RootPath string

	// Silent drops every progress event
	Silent bool

	// Specs are the values given on the command line, in order
	Specs []types.ValueSpec

	Jobs         int
	Shell        string
	OnExists     walker.ExistsPolicy
	FailFast     bool
	CacheEntries int

	// FileSystem is used for template reads, copies and value files
	// (optional, defaults to the OS filesystem). Commands always run
	// against the real filesystem.
	FileSystem types.FS

	// Sink receives progress events (optional)
	Sink types.Sink
}

// Result is everything a run produced.
type Result struct {
	Mode  Mode
	Table types.SwapTable

	// Copies holds the copies written successfully, in table order
	Copies []walker.CopyResult
	// Failures holds per-copy errors, in table order
	Failures []error
	// Skipped counts rows never attempted because of FailFast
	Skipped int
	// Unused lists table keys the template never references
	Unused []string

	Commands runner.Report

	// Swapfile is the file written in ModeGenerate
	Swapfile string
}

// Failed counts failed copies and failed commands.
func (r *Result) Failed() int {
	return len(r.Failures) + len(r.Commands.Failed())
}

// Err joins every copy and command failure, or returns nil.
func (r *Result) Err() error {
	errs := append([]error{}, r.Failures...)
	if err := r.Commands.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ModeFor reports which mode opts select.
func ModeFor(opts Options) Mode {
	if opts.TemplatePath == "" && opts.RunCommand == "" && opts.SwapfilePath != "" {
		return ModeGenerate
	}
	return ModeReplicate
}

// Validate checks that opts ask for some work.
func (o Options) Validate() error {
	if o.TemplatePath == "" && o.RunCommand == "" && o.SwapfilePath == "" {
		return errors.New(errors.ErrInvalidInput,
			"nothing to do: give a template, a command to run or a swapfile")
	}
	if o.Jobs < 0 {
		return errors.Newf(errors.ErrInvalidInput, "jobs must not be negative, got %d", o.Jobs)
	}
	if _, err := walker.ParseExistsPolicy(string(o.OnExists)); err != nil {
		return err
	}
	return nil
}

// Run performs one invocation. The returned error covers failures that
// stop the run before any copy or command starts (bad input, unreadable
// swapfile, missing template). Per-copy and per-command failures are
// collected in the Result; check Result.Err.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("wand")

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.FileSystem == nil {
		opts.FileSystem = filesystem.NewOS()
	}
	if opts.RootPath == "" {
		opts.RootPath = DefaultRoot
	}

	mode := ModeFor(opts)
	logger.Debug().
		Str("mode", string(mode)).
		Str("template", opts.TemplatePath).
		Str("root", opts.RootPath).
		Str("run", opts.RunCommand).
		Str("swapfile", opts.SwapfilePath).
		Int("specs", len(opts.Specs)).
		Msg("Starting run")
	done := logging.LogOperationStart(logger, string(mode))
	defer done()

	if mode == ModeGenerate {
		return generate(opts, logger)
	}
	return replicate(ctx, opts, logger)
}

// generate expands the command line values into every combination and
// writes them to the swapfile.
func generate(opts Options, logger zerolog.Logger) (*Result, error) {
	if len(opts.Specs) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no values given to write to the swapfile").
			WithDetail("swapfile", opts.SwapfilePath)
	}

	table, err := swaps.BuildCartesian(opts.Specs, values.NewResolver(opts.FileSystem))
	if err != nil {
		return nil, err
	}
	if err := swapfile.Save(opts.FileSystem, opts.SwapfilePath, table); err != nil {
		return nil, err
	}

	logger.Info().
		Str("swapfile", opts.SwapfilePath).
		Strs("keys", table.Keys).
		Int("rows", table.Len()).
		Msg("Swapfile written")
	return &Result{Mode: ModeGenerate, Table: table, Swapfile: opts.SwapfilePath}, nil
}

// plan holds everything resolved before the first write.
type plan struct {
	table  types.SwapTable
	tree   *walker.Tree
	walker *walker.Walker
}

// prepare resolves values and the template. Nothing is written.
func prepare(opts Options, sink types.Sink, logger zerolog.Logger) (*plan, error) {
	var fileSpecs []types.ValueSpec
	if opts.SwapfilePath != "" {
		loaded, err := swapfile.Load(opts.FileSystem, opts.SwapfilePath)
		if err != nil {
			return nil, err
		}
		fileSpecs = loaded
	}

	specs, err := swaps.Merge(opts.Specs, fileSpecs)
	if err != nil {
		return nil, err
	}
	table, err := swaps.BuildDirect(specs, values.NewResolver(opts.FileSystem))
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("table", swaps.Describe(table)).Msg("Values resolved")

	if err := checkCommand(opts.RunCommand, table); err != nil {
		return nil, err
	}

	p := &plan{table: table}
	if opts.TemplatePath == "" {
		return p, nil
	}

	tree, err := walker.Scan(opts.FileSystem, opts.TemplatePath)
	if err != nil {
		return nil, err
	}
	w, err := walker.New(walker.Options{
		FS:           opts.FileSystem,
		Sink:         sink,
		OnExists:     opts.OnExists,
		CacheEntries: opts.CacheEntries,
	})
	if err != nil {
		return nil, err
	}
	p.tree = tree
	p.walker = w
	return p, nil
}

// checkCommand rejects a command that names a key the table lacks. Every
// row has the same keys, so this would otherwise fail once per row.
func checkCommand(command string, table types.SwapTable) error {
	if command == "" {
		return nil
	}
	known := make(map[string]bool, len(table.Keys))
	for _, k := range table.Keys {
		known[k] = true
	}
	var missing []string
	for _, k := range placeholder.FindTokens(command) {
		if !known[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.Newf(errors.ErrUnresolvedPlaceholder, "command uses placeholder(s) with no values: %v", missing).
		WithDetail("command", command).
		WithDetail("missing", missing)
}

// unusedKeys returns the table keys absent from used, in table order.
func unusedKeys(keys, used []string) []string {
	seen := make(map[string]bool, len(used))
	for _, k := range used {
		seen[k] = true
	}
	var unused []string
	for _, k := range keys {
		if !seen[k] {
			unused = append(unused, k)
		}
	}
	return unused
}

func replicate(ctx context.Context, opts Options, logger zerolog.Logger) (*Result, error) {
	sink := opts.Sink
	if sink == nil || opts.Silent {
		sink = progress.Nop()
	}

	p, err := prepare(opts, sink, logger)
	if err != nil {
		return nil, err
	}

	result := &Result{Mode: ModeReplicate, Table: p.table}
	if p.tree != nil {
		used, err := p.walker.Placeholders(p.tree)
		if err != nil {
			return nil, err
		}
		result.Unused = unusedKeys(p.table.Keys, used)
		if len(result.Unused) > 0 {
			logger.Warn().Strs("keys", result.Unused).Str("template", p.tree.Root).
				Msg("Template does not use every key")
		}
		if p.table.Len() > 1 && !placeholder.HasTokens(p.tree.Name) {
			logger.Warn().Str("template", p.tree.Root).
				Msg("Template name has no placeholders, every copy targets the same directory")
		}
	}

	sink.Event(types.Event{Kind: types.EventRunStarted, Keys: p.table.Keys, Total: p.table.Len()})

	var pool *runner.Pool
	if opts.RunCommand != "" {
		pool = runner.New(runner.Options{Shell: opts.Shell, Jobs: opts.Jobs, Sink: sink}).Start(ctx)
	}

	for i, row := range p.table.Rows {
		dir := ""
		if p.tree != nil {
			copied, err := p.walker.Copy(p.tree, opts.RootPath, row)
			if err != nil {
				result.Failures = append(result.Failures, err)
				if opts.FailFast {
					result.Skipped = p.table.Len() - i - 1
					logger.Warn().Int("copy", row.Index).Int("skipped", result.Skipped).
						Msg("Stopping after failed copy")
					break
				}
				continue
			}
			result.Copies = append(result.Copies, copied)
			dir = copied.Root
		}

		if pool == nil {
			continue
		}
		if dir != "" {
			// WAND_COPY_ROOT is always absolute
			if abs, err := filepath.Abs(dir); err == nil {
				dir = abs
			}
		}
		target, err := runner.Target(opts.RunCommand, row, dir)
		if err != nil {
			// checkCommand has already seen every key
			result.Failures = append(result.Failures, err)
			continue
		}
		pool.Submit(target)
	}

	if pool != nil {
		result.Commands = pool.Wait()
	}

	failed := result.Failed()
	sink.Event(types.Event{Kind: types.EventRunFinished, Total: p.table.Len(), Failed: failed})

	logger.Info().
		Int("rows", p.table.Len()).
		Int("copies", len(result.Copies)).
		Int("commands", len(result.Commands.Outcomes)).
		Int("failed", failed).
		Int("skipped", result.Skipped).
		Msg("Run finished")
	return result, nil
}
