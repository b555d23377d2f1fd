// Package shell runs one command line in a platform shell, streams its
// decoded output and controls the whole process tree it spawns.
package shell

import (
	"errors"
	"time"
)

const (
	// DefaultTimeout applies when a request does not set one.
	DefaultTimeout = 2 * time.Minute
	// MaxTimeout caps every request's timeout.
	MaxTimeout = 10 * time.Minute
	// DefaultMaxOutputBytes is the raw output ceiling per execution.
	DefaultMaxOutputBytes int64 = 100 << 20
	// SniffLength is how much combined output is inspected for NUL bytes.
	SniffLength = 4096
)

// Abort reasons reported in Result.AbortReason.
const (
	AbortTimeout     = "timeout"
	AbortOutputLimit = "output limit exceeded"
	AbortCanceled    = "context canceled"
	AbortRequested   = "aborted"
)

// ErrEmptyCommand is returned for blank command lines; nothing is spawned.
var ErrEmptyCommand = errors.New("command cannot be empty")

// Config holds engine settings.
type Config struct {
	// Shell overrides $SHELL on POSIX systems.
	Shell          string        `mapstructure:"shell"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	MaxTimeout     time.Duration `mapstructure:"max_timeout"`
	MaxOutputBytes int64         `mapstructure:"max_output_bytes"`
	KillGrace      time.Duration `mapstructure:"kill_grace"`
}

// DefaultConfig returns the built-in engine settings.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: DefaultTimeout,
		MaxTimeout:     MaxTimeout,
		MaxOutputBytes: DefaultMaxOutputBytes,
		KillGrace:      200 * time.Millisecond,
	}
}

// EventType identifies an OutputEvent.
type EventType string

const (
	// EventData carries a decoded, ANSI-stripped text chunk.
	EventData EventType = "data"
	// EventBinaryDetected is sent once when a NUL byte is seen.
	EventBinaryDetected EventType = "binary_detected"
	// EventBinaryProgress replaces EventData after binary detection.
	EventBinaryProgress EventType = "binary_progress"
)

// Stream names the pipe a chunk came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// OutputEvent is delivered to Request.OnOutput in the order the OS
// produced the bytes.
type OutputEvent struct {
	Type   EventType
	Stream Stream
	Text   string
	// BytesReceived is the raw byte count so far (binary events).
	BytesReceived int64
}

// Request describes one execution.
type Request struct {
	Command string
	Dir     string
	// Timeout is capped at Config.MaxTimeout; zero means the default.
	Timeout  time.Duration
	OnOutput func(OutputEvent)
}

// Result is produced exactly once per execution.
type Result struct {
	RawOutput []byte
	// Output is stdout and stderr interleaved in arrival order.
	Output string
	Stdout string
	Stderr string
	// ExitCode is nil when the process was killed by a signal or never ran.
	ExitCode *int
	Signal   string
	// Error holds spawn failures.
	Error          error
	PID            int
	Cancelled      bool
	AbortReason    string
	BackgroundPIDs []int
	BinaryDetected bool
	Duration       time.Duration
}

// Succeeded reports a clean zero exit.
func (r *Result) Succeeded() bool {
	return r.Error == nil && !r.Cancelled && r.ExitCode != nil && *r.ExitCode == 0
}

// Handle is the caller's view of a running execution.
type Handle struct {
	pid     int
	started time.Time
	done    chan struct{}
	result  *Result
	abort   func(reason string)
}

// PID returns the shell's process id, or 0 if spawning failed.
func (h *Handle) PID() int { return h.pid }

// Started returns the spawn time.
func (h *Handle) Started() time.Time { return h.started }

// Done is closed once the result is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the execution resolves.
func (h *Handle) Wait() *Result {
	<-h.done
	return h.result
}

// Result returns the result if the execution has resolved.
func (h *Handle) Result() (*Result, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return nil, false
	}
}

// Abort terminates the process tree. It is safe to call more than once
// and after completion.
func (h *Handle) Abort() {
	if h.abort != nil {
		h.abort(AbortRequested)
	}
}

func resolved(result *Result) *Handle {
	h := &Handle{done: make(chan struct{}), result: result, started: time.Now()}
	close(h.done)
	return h
}
