package shell

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

type shellKind int

const (
	kindPOSIX shellKind = iota
	kindFish
	kindCmd
)

type shellInfo struct {
	path string
	kind shellKind
}

// resolveShell picks cmd.exe on Windows, otherwise override, $SHELL or
// /bin/bash in that order.
func resolveShell(override string) shellInfo {
	if runtime.GOOS == "windows" {
		return shellInfo{path: windowsShell(), kind: kindCmd}
	}

	path := override
	if path == "" {
		path = os.Getenv("SHELL")
	}
	if path == "" {
		path = "/bin/bash"
	}
	kind := kindPOSIX
	if strings.Contains(filepath.Base(path), "fish") {
		kind = kindFish
	}
	return shellInfo{path: path, kind: kind}
}

func windowsShell() string {
	if comspec := os.Getenv("ComSpec"); comspec != "" {
		return comspec
	}
	return "cmd.exe"
}

func (s shellInfo) listsPIDs() bool {
	return s.kind != kindCmd
}

// command builds the exec.Cmd for command line, placing it in its own
// process group where the platform supports that.
func (s shellInfo) command(line, pidFile string) *exec.Cmd {
	if s.kind == kindCmd {
		cmd := exec.Command(s.path)
		setCommandLine(cmd, fmt.Sprintf(`%s /d /s /c "%s"`, s.path, line))
		return cmd
	}
	cmd := exec.Command(s.path, "-c", wrapCommand(s.kind, line, pidFile))
	setProcessGroup(cmd)
	return cmd
}

// wrapCommand appends the pid listing to line while preserving the exit
// code of line itself. The group is closed on its own line so a trailing
// comment or heredoc in line cannot swallow it.
func wrapCommand(kind shellKind, line, pidFile string) string {
	line = strings.TrimSpace(line)
	if pidFile == "" {
		return line
	}
	target := quoteSingle(pidFile)
	if kind == kindFish {
		return fmt.Sprintf("begin; %s\nend; set __code $status; pgrep -g 0 >%s 2>&1; exit $__code;", line, target)
	}
	return fmt.Sprintf("{ %s\n}; __code=$?; pgrep -g 0 >%s 2>&1; exit $__code;", line, target)
}

func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
