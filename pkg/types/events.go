package types

import "time"

// EventKind identifies a progress event
type EventKind string

const (
	EventRunStarted     EventKind = "run_started"
	EventCopyStarted    EventKind = "copy_started"
	EventCopyDone       EventKind = "copy_done"
	EventCopyFailed     EventKind = "copy_failed"
	EventCommandStarted EventKind = "command_started"
	EventCommandDone    EventKind = "command_done"
	EventCommandFailed  EventKind = "command_failed"
	EventRunFinished    EventKind = "run_finished"
)

// Event is a single progress notification emitted by the walker, the
// runner or the orchestrator.
type Event struct {
	Kind  EventKind
	Index int
	Swaps SwapSet

	// Keys and Total are set on EventRunStarted
	Keys  []string
	Total int

	// Path is the copy root for copy events
	Path string

	Command  string
	Dir      string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration

	// Failed counts failures on EventRunFinished
	Failed int

	Err error
}

// Sink receives progress events. Implementations must be safe for
// concurrent use since command events arrive from many goroutines.
type Sink interface {
	Event(e Event)
}
