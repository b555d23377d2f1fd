//go:build windows

package shell

import (
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(*exec.Cmd) {}

// setCommandLine passes line to cmd.exe verbatim; the default argument
// quoting does not survive cmd's own parsing.
func setCommandLine(cmd *exec.Cmd, line string) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CmdLine: line}
}

func signalName(*os.ProcessState) string { return "" }
