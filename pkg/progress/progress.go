// Package progress reports what a run is doing as it happens.
//
// Producers emit types.Event values into a types.Sink. The sinks here print
// styled lines for people, JSON lines for tools, or nothing at all when
// running silently. All sinks are safe for concurrent use.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dirwand/pkg/style"
	"github.com/arthur-debert/dirwand/pkg/types"
	"github.com/arthur-debert/dirwand/pkg/ui"
)

type nopSink struct{}

func (nopSink) Event(types.Event) {}

// Nop returns a sink that discards every event
func Nop() types.Sink {
	return nopSink{}
}

type multiSink []types.Sink

func (m multiSink) Event(e types.Event) {
	for _, s := range m {
		s.Event(e)
	}
}

// Multi fans events out to every non-nil sink in order.
func Multi(sinks ...types.Sink) types.Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// New returns the sink for format on w. FormatAuto is resolved against w.
func New(w io.Writer, format ui.Format) types.Sink {
	switch ui.Resolve(format, w) {
	case ui.FormatJSON:
		return NewLogSink(zerolog.New(w).With().Timestamp().Logger())
	case ui.FormatTerminal:
		return NewConsole(w, style.NewTerminalRenderer())
	default:
		return NewConsole(w, style.NewPlainRenderer())
	}
}

// LogSink writes events as structured log entries.
type LogSink struct {
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs through logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Event(e types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Log bypasses the global level, which only governs diagnostics.
	ev := s.logger.Log()
	switch e.Kind {
	case types.EventCopyFailed, types.EventCommandFailed:
		ev = ev.Str(zerolog.LevelFieldName, zerolog.LevelErrorValue).Err(e.Err)
	case types.EventCopyStarted, types.EventCommandStarted:
		ev = ev.Str(zerolog.LevelFieldName, zerolog.LevelDebugValue)
	default:
		ev = ev.Str(zerolog.LevelFieldName, zerolog.LevelInfoValue)
	}

	ev = ev.Str("event", string(e.Kind))
	switch e.Kind {
	case types.EventRunStarted:
		ev = ev.Strs("keys", e.Keys).Int("total", e.Total)
	case types.EventRunFinished:
		ev = ev.Int("total", e.Total).Int("failed", e.Failed)
	default:
		ev = ev.Int("copy", e.Index).Interface("swaps", e.Swaps.Map())
	}
	if e.Path != "" {
		ev = ev.Str("path", e.Path)
	}
	if e.Command != "" {
		ev = ev.Str("command", e.Command).Str("dir", e.Dir)
	}
	if e.Kind == types.EventCommandDone || e.Kind == types.EventCommandFailed {
		ev = ev.Int("exit_code", e.ExitCode).
			Dur("duration", e.Duration).
			Str("stdout", e.Stdout).
			Str("stderr", e.Stderr)
	}
	ev.Send()
}

// Console prints one line per copy and per command through a style
// renderer. Command output is printed when the command completes, so the
// output of concurrent commands never interleaves line by line.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	renderer style.Renderer
}

// NewConsole creates a console sink writing to w
func NewConsole(w io.Writer, renderer style.Renderer) *Console {
	return &Console{w: w, renderer: renderer}
}

func (c *Console) Event(e types.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.renderer
	switch e.Kind {
	case types.EventRunStarted:
		c.println(r.Header(e.Keys, e.Total))
	case types.EventCopyDone:
		c.println(r.Copy(e.Index, e.Swaps, e.Path))
	case types.EventCopyFailed:
		c.println(r.CopyFailed(e.Index, e.Path, e.Err))
	case types.EventCommandDone:
		c.println(r.Command(e.Index, e.Command))
		c.output(e)
	case types.EventCommandFailed:
		c.println(r.CommandFailed(e.Index, e.Command, e.ExitCode))
		c.output(e)
	case types.EventRunFinished:
		c.println(r.Summary(e.Total, e.Failed))
	}
}

func (c *Console) output(e types.Event) {
	if e.Stdout != "" {
		c.println(c.renderer.Output(e.Stdout))
	}
	if e.Stderr != "" {
		c.println(c.renderer.Output(e.Stderr))
	}
}

func (c *Console) println(line string) {
	_, _ = fmt.Fprintln(c.w, line)
}
