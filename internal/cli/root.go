package cli

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arthur-debert/dirwand/internal/version"
	"github.com/arthur-debert/dirwand/pkg/cobrax/topics"
	"github.com/arthur-debert/dirwand/pkg/config"
	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/filesystem"
	"github.com/arthur-debert/dirwand/pkg/logging"
	"github.com/arthur-debert/dirwand/pkg/progress"
	"github.com/arthur-debert/dirwand/pkg/style"
	"github.com/arthur-debert/dirwand/pkg/types"
	"github.com/arthur-debert/dirwand/pkg/ui"
	"github.com/arthur-debert/dirwand/pkg/wand"
)

//go:embed help/*.md
var helpFiles embed.FS

// rootOptions holds the root command's flags and the placeholder values
// extracted before cobra parses the rest.
type rootOptions struct {
	verbosity  int
	template   string
	root       string
	run        string
	swapfile   string
	silent     bool
	jobs       int
	onExists   string
	failFast   bool
	shell      string
	format     string
	configFile string

	specs []types.ValueSpec
}

// reportedError marks a failure whose details the progress output has
// already shown.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// NewRootCmd creates the root command. Placeholder values are not flags
// cobra knows about; use Execute, which extracts them first.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "wand [flags] [--KEY VALUE]... [-KEY V1 V2...]...",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Example: MsgRootExample,
		Version: version.Version,
		Args:    cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWand(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", MsgFlagConfig)

	flags := rootCmd.Flags()
	flags.StringVar(&opts.template, "template", "", MsgFlagTemplate)
	flags.StringVar(&opts.root, "root", wand.DefaultRoot, MsgFlagRoot)
	flags.StringVar(&opts.run, "run", "", MsgFlagRun)
	flags.StringVar(&opts.swapfile, "swapfile", "", MsgFlagSwapfile)
	flags.BoolVar(&opts.silent, "silent", false, MsgFlagSilent)
	flags.IntVar(&opts.jobs, "jobs", 0, MsgFlagJobs)
	flags.StringVar(&opts.onExists, "on-exists", "", MsgFlagOnExists)
	flags.BoolVar(&opts.failFast, "fail-fast", false, MsgFlagFailFast)
	flags.StringVar(&opts.shell, "shell", "", MsgFlagShell)
	flags.StringVar(&opts.format, "format", "", MsgFlagFormat)

	_ = rootCmd.MarkFlagDirname("template")
	_ = rootCmd.MarkFlagDirname("root")
	_ = rootCmd.MarkFlagFilename("swapfile", "yaml", "yml", "toml")
	_ = rootCmd.RegisterFlagCompletionFunc("on-exists", fixedCompletion("error", "overwrite"))
	_ = rootCmd.RegisterFlagCompletionFunc("format", fixedCompletion("auto", "term", "text", "json"))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newGenConfigCmd())

	helpFS, err := fs.Sub(helpFiles, "help")
	if err == nil {
		renderer := topics.NewPlainGlamourRenderer()
		if ui.Resolve(ui.FormatAuto, os.Stdout) == ui.FormatTerminal {
			renderer = topics.NewGlamourRenderer()
		}
		tm, err := topics.InitializeWithOptions(rootCmd, helpFS, topics.Options{
			Extensions: []string{".md"},
			Renderer:   renderer,
		})
		if err == nil {
			rootCmd.AddCommand(newTopicsCmd(tm))
		}
	}

	return rootCmd
}

// Execute runs wand with args (without the program name) and returns the
// process exit status.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{}
	rootCmd := newRootCmd(opts)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if len(args) == 0 {
		_ = rootCmd.Help()
		return 0
	}

	if !isSubcommand(rootCmd, args) {
		specs, rest, err := ExtractSwapArgs(filesystem.NewOS(), knownFlags(rootCmd), args)
		if err != nil {
			printError(stderr, err)
			return 1
		}
		opts.specs = specs
		args = rest
	}
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			printError(stderr, err)
		}
		return 1
	}
	return 0
}

// isSubcommand reports whether args name one of the root's subcommands.
func isSubcommand(rootCmd *cobra.Command, args []string) bool {
	if len(args) == 0 || len(args[0]) == 0 || args[0][0] == '-' {
		return false
	}
	rootCmd.InitDefaultHelpCmd()
	sub, _, err := rootCmd.Find(args)
	return err == nil && sub != rootCmd
}

// knownFlags merges every flag the root command accepts, including the
// help and version flags cobra adds at execution time.
func knownFlags(rootCmd *cobra.Command) *pflag.FlagSet {
	rootCmd.InitDefaultHelpFlag()
	rootCmd.InitDefaultVersionFlag()

	known := pflag.NewFlagSet(rootCmd.Name(), pflag.ContinueOnError)
	known.AddFlagSet(rootCmd.Flags())
	known.AddFlagSet(rootCmd.PersistentFlags())
	return known
}

// printError renders err on w. Input errors are raised before anything is
// written, so they get a pointer to the usage text.
func printError(w io.Writer, err error) {
	var renderer style.Renderer = style.NewPlainRenderer()
	if ui.Resolve(ui.FormatAuto, w) == ui.FormatTerminal {
		renderer = style.NewTerminalRenderer()
	}
	_, _ = fmt.Fprintln(w, renderer.Error(err))
	if errors.IsInputError(err) {
		_, _ = fmt.Fprintln(w, MsgUsageHint)
	}
}

// newSink returns the progress sink for w. From -vv on, events are also
// written to the debug log unless w already receives them as JSON.
func newSink(w io.Writer, format ui.Format, verbosity int) types.Sink {
	sink := progress.New(w, format)
	if verbosity < 2 || ui.Resolve(format, w) == ui.FormatJSON {
		return sink
	}
	return progress.Multi(sink, progress.NewLogSink(logging.GetLogger("events")))
}

func fixedCompletion(choices ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return choices, cobra.ShellCompDirectiveNoFileComp
	}
}

// loadConfig reads the configuration layers and applies the flags the user
// set explicitly on top.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: opts.configFile})
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("jobs") {
		cfg.Jobs = opts.jobs
	}
	if flags.Changed("shell") {
		cfg.Shell = opts.shell
	}
	if flags.Changed("on-exists") {
		cfg.OnExists = opts.onExists
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = opts.failFast
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid flag value")
	}
	return cfg, nil
}

func runWand(cmd *cobra.Command, opts *rootOptions) error {
	logger := logging.GetLogger("cli")

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger.Debug().
		Str("shell", cfg.Shell).
		Int("jobs", cfg.Jobs).
		Str("on_exists", cfg.OnExists).
		Bool("fail_fast", cfg.FailFast).
		Str("format", cfg.Format).
		Msg("Configuration loaded")

	sink := newSink(cmd.OutOrStdout(), cfg.OutputFormat(), opts.verbosity)

	result, err := wand.Run(cmd.Context(), wand.Options{
		TemplatePath: opts.template,
		RootPath:     opts.root,
		RunCommand:   opts.run,
		SwapfilePath: opts.swapfile,
		Silent:       opts.silent,
		Specs:        opts.specs,
		Jobs:         cfg.Jobs,
		Shell:        cfg.Shell,
		OnExists:     cfg.ExistsPolicy(),
		FailFast:     cfg.FailFast,
		CacheEntries: cfg.CacheEntries,
		Sink:         sink,
	})
	if err != nil {
		return err
	}

	if err := result.Err(); err != nil {
		if opts.silent {
			return err
		}
		return &reportedError{err: err}
	}
	return nil
}
