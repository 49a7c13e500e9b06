package cli

import (
	_ "embed"
	"strings"
)

const (
	// Command descriptions
	MsgRootShort       = "Replicate a template directory once per set of placeholder values"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
	MsgGenConfigShort  = "Print or write the default configuration"
	MsgGenConfigLong   = "Print the default configuration with every value commented out.\n\nWith -w, write it to the user configuration file instead, refusing to\nreplace an existing file."
	MsgTopicsShort     = "Display available documentation topics"

	// Flag descriptions
	MsgFlagTemplate = "Template directory to copy; its name may contain placeholders"
	MsgFlagRoot     = "Directory the copies are written into"
	MsgFlagRun      = "Command to run once per row, inside the copy when one is made"
	MsgFlagSwapfile = "Swapfile to read values from, or to write when there is no template or command"
	MsgFlagSilent   = "Print nothing but errors"
	MsgFlagJobs     = "Maximum commands running at once (0 means no limit)"
	MsgFlagOnExists = "What to do when a copy already exists: error or overwrite"
	MsgFlagFailFast = "Stop copying after the first failed copy"
	MsgFlagShell    = "Shell used to run commands"
	MsgFlagFormat   = "Output format: auto, term, text or json"
	MsgFlagVerbose  = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig   = "Configuration file to use instead of the user file"
	MsgFlagWrite    = "Write the configuration to the user configuration file"

	// Output
	MsgVersionFormat   = "wand version %s\n  commit: %s\n  built:  %s\n"
	MsgConfigWritten   = "Wrote default configuration to %s\n"
	MsgErrConfigExists = "%s already exists"
	MsgUsageHint       = "Run 'wand --help' for usage."
)

var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/root-example.txt
	msgRootExampleRaw string
	MsgRootExample    = strings.TrimRight(msgRootExampleRaw, "\n")
)
