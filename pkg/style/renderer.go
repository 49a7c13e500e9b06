package style

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
)

// Status labels a copy or command line
type Status string

const (
	StatusCopied Status = "copied"
	StatusFailed Status = "failed"
	StatusRan    Status = "ran"
	StatusExited Status = "exited"
)

// StatusStyle returns the pterm style used for a status badge
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusCopied, StatusRan:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgWhite)
	case StatusFailed:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	case StatusExited:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// Renderer formats progress lines. Every method returns a single line
// without a trailing newline, except Output which may span several.
type Renderer interface {
	Header(keys []string, total int) string
	Copy(index int, swaps types.SwapSet, root string) string
	CopyFailed(index int, root string, err error) string
	Command(index int, command string) string
	CommandFailed(index int, command string, exitCode int) string
	Output(text string) string
	Summary(total, failed int) string
	Error(err error) string
}

// TerminalRenderer styles lines with lipgloss and pterm
type TerminalRenderer struct{}

// NewTerminalRenderer creates a new terminal renderer
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{}
}

func (r *TerminalRenderer) Header(keys []string, total int) string {
	styled := make([]string, len(keys))
	for i, k := range keys {
		styled[i] = KeyStyle.Render(k)
	}
	return fmt.Sprintf("%s %s %s",
		TitleStyle.Render(fmt.Sprintf("%d cop%s", total, plural(total, "y", "ies"))),
		MutedStyle.Render("over"),
		strings.Join(styled, MutedStyle.Render(", ")))
}

func (r *TerminalRenderer) Copy(index int, swaps types.SwapSet, root string) string {
	line := fmt.Sprintf("%s %s %s",
		badge(StatusCopied),
		MutedStyle.Render(fmt.Sprintf("#%d", index)),
		r.swaps(swaps))
	if root != "" {
		line += " " + MutedStyle.Render("→") + " " + PathStyle.Render(root)
	}
	return line
}

func (r *TerminalRenderer) CopyFailed(index int, root string, err error) string {
	line := fmt.Sprintf("%s %s", badge(StatusFailed), MutedStyle.Render(fmt.Sprintf("#%d", index)))
	if root != "" {
		line += " " + PathStyle.Render(root)
	}
	return line + " " + ErrorStyle.Render(err.Error())
}

func (r *TerminalRenderer) Command(index int, command string) string {
	return fmt.Sprintf("%s %s %s",
		badge(StatusRan),
		MutedStyle.Render(fmt.Sprintf("#%d", index)),
		CommandStyle.Render(command))
}

func (r *TerminalRenderer) CommandFailed(index int, command string, exitCode int) string {
	return fmt.Sprintf("%s %s %s %s",
		badge(StatusExited),
		MutedStyle.Render(fmt.Sprintf("#%d", index)),
		CommandStyle.Render(command),
		ErrorStyle.Render(fmt.Sprintf("exit %d", exitCode)))
}

func (r *TerminalRenderer) Output(text string) string {
	return OutputStyle.Render(strings.TrimRight(text, "\n"))
}

func (r *TerminalRenderer) Summary(total, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("%s %s", SuccessIndicator, SuccessStyle.Render(fmt.Sprintf("%d done", total)))
	}
	return fmt.Sprintf("%s %s", ErrorIndicator,
		ErrorStyle.Render(fmt.Sprintf("%d of %d failed", failed, total)))
}

// Error renders an error, including its code for coded errors
func (r *TerminalRenderer) Error(err error) string {
	if err == nil {
		return ""
	}
	var wandErr *errors.WandError
	if errors.As(err, &wandErr) {
		return fmt.Sprintf("%s Error [%s]: %s",
			pterm.Error.Prefix.Text,
			pterm.Error.MessageStyle.Sprint(string(wandErr.Code)),
			wandErr.Describe())
	}
	return fmt.Sprintf("%s %s", pterm.Error.Prefix.Text, pterm.Error.MessageStyle.Sprint(err.Error()))
}

func (r *TerminalRenderer) swaps(s types.SwapSet) string {
	parts := make([]string, 0, s.Len())
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		parts = append(parts, KeyStyle.Render(k)+MutedStyle.Render("=")+ValueStyle.Render(v))
	}
	return strings.Join(parts, " ")
}

func badge(s Status) string {
	return StatusStyle(s).Sprint(" " + string(s) + " ")
}

// PlainRenderer implements Renderer with plain text output (no styling)
type PlainRenderer struct{}

// NewPlainRenderer creates a new plain text renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

func (r *PlainRenderer) Header(keys []string, total int) string {
	return fmt.Sprintf("%d cop%s over %s", total, plural(total, "y", "ies"), strings.Join(keys, ", "))
}

func (r *PlainRenderer) Copy(index int, swaps types.SwapSet, root string) string {
	line := fmt.Sprintf("copied #%d %s", index, swaps.String())
	if root != "" {
		line += " -> " + root
	}
	return line
}

func (r *PlainRenderer) CopyFailed(index int, root string, err error) string {
	line := fmt.Sprintf("failed #%d", index)
	if root != "" {
		line += " " + root
	}
	return line + ": " + err.Error()
}

func (r *PlainRenderer) Command(index int, command string) string {
	return fmt.Sprintf("ran #%d %s", index, command)
}

func (r *PlainRenderer) CommandFailed(index int, command string, exitCode int) string {
	return fmt.Sprintf("exited #%d %s: exit %d", index, command, exitCode)
}

func (r *PlainRenderer) Output(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

func (r *PlainRenderer) Summary(total, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("%d done", total)
	}
	return fmt.Sprintf("%d of %d failed", failed, total)
}

// Error renders a plain error message
func (r *PlainRenderer) Error(err error) string {
	if err == nil {
		return ""
	}
	var wandErr *errors.WandError
	if errors.As(err, &wandErr) {
		return "Error: " + wandErr.Describe()
	}
	return fmt.Sprintf("Error: %s", err.Error())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
