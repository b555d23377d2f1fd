//go:build !windows

package proc

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Terminate sends SIGTERM to the process group of pid and schedules a
// SIGKILL after grace if the group is still alive.
func Terminate(pid int, grace time.Duration) error {
	if pid <= 0 {
		return ErrInvalidPID
	}

	target := -pid
	if err := unix.Kill(target, unix.SIGTERM); err != nil {
		// Group is gone or was never created; fall back to the child.
		if err := unix.Kill(pid, unix.SIGTERM); err != nil {
			return fmt.Errorf("failed to signal process %d: %w", pid, err)
		}
		target = pid
	}

	go func() {
		time.Sleep(grace)
		if alive(target) {
			_ = unix.Kill(target, unix.SIGKILL)
		}
	}()
	return nil
}

// Alive reports whether pid (or its group, when negative) still exists.
func Alive(pid int) bool {
	if pid == 0 {
		return false
	}
	return alive(pid)
}

func alive(target int) bool {
	err := unix.Kill(target, 0)
	return err == nil || err == unix.EPERM
}

// ProcessGroup returns the process group id of pid, or pid itself when it
// cannot be determined.
func ProcessGroup(pid int) int {
	pgid, err := unix.Getpgid(pid)
	if err != nil || pgid <= 0 {
		return pid
	}
	return pgid
}
