//go:build windows

package proc

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Terminate runs taskkill over the whole tree. Windows has no graceful
// group signal, so grace is unused.
func Terminate(pid int, _ time.Duration) error {
	if pid <= 0 {
		return ErrInvalidPID
	}

	out, err := exec.Command("taskkill", "/pid", strconv.Itoa(pid), "/f", "/t").CombinedOutput()
	if err != nil {
		// taskkill refuses when the tree is partially gone; kill the child directly.
		p, findErr := os.FindProcess(pid)
		if findErr != nil {
			return fmt.Errorf("taskkill failed: %w: %s", err, out)
		}
		if killErr := p.Kill(); killErr != nil {
			return fmt.Errorf("taskkill failed: %w: %s", err, out)
		}
	}
	return nil
}

// Alive reports whether pid still exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	out, err := exec.Command("tasklist", "/fi", "PID eq "+strconv.Itoa(pid), "/nh").Output()
	if err != nil {
		return false
	}
	return len(out) > 0 && containsPID(string(out), pid)
}

func containsPID(listing string, pid int) bool {
	want := strconv.Itoa(pid)
	for _, field := range strings.Fields(listing) {
		if field == want {
			return true
		}
	}
	return false
}

// ProcessGroup has no Windows equivalent; the pid stands in for the tree.
func ProcessGroup(pid int) int {
	return pid
}
