// Package proc terminates process trees.
//
// Both the shell engine (timeout, memory ceiling) and the background
// registry (explicit kill) go through Terminate, so the escalation policy
// lives in exactly one place:
//
//   - POSIX: SIGTERM to the process group (negative pid), wait a grace
//     window, then SIGKILL the group if anything is still alive. When the
//     group cannot be signalled the direct child is signalled instead.
//   - Windows: taskkill /pid <pid> /f /t.
package proc

import (
	"errors"
	"time"
)

// DefaultGrace is the window between SIGTERM and SIGKILL.
const DefaultGrace = 200 * time.Millisecond

// ErrInvalidPID is returned for pids that can never name a real process.
var ErrInvalidPID = errors.New("invalid pid")

// Terminator ends a process tree rooted at pid.
type Terminator interface {
	Terminate(pid int) error
}

// TerminatorFunc adapts a function to Terminator.
type TerminatorFunc func(pid int) error

// Terminate calls f(pid).
func (f TerminatorFunc) Terminate(pid int) error { return f(pid) }

// Tree is the platform Terminator with a configurable grace window.
type Tree struct {
	Grace time.Duration
}

// Terminate signals the tree rooted at pid. It returns once the first
// signal has been delivered (or failed); escalation happens in the
// background, so a nil error means "delivered", not "dead".
func (t Tree) Terminate(pid int) error {
	grace := t.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	return Terminate(pid, grace)
}
