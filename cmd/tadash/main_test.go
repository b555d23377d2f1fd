package main

import (
	"bytes"
	"strings"
	"testing"
)

// runCLI executes the command tree against a throwaway home directory.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TADASH_SHELL_SHELL", "/bin/sh")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	for _, name := range []string{"exec", "shell", "check", "mcp", "tasks", "config", "version"} {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("Expected subcommand %s, got %v (%v)", name, found, err)
		}
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	cmd := newRootCommand()

	for _, flag := range []string{"config", "log-level"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Expected persistent flag '%s'", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "tadash "+version) {
		t.Errorf("Unexpected version output: %q", out)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("TADASH_SECURITY_COMMAND_LEVEL", "sometimes")

	if _, err := runCLI(t, "", "check", "ls"); err == nil {
		t.Error("Expected invalid command level to fail")
	}
}

func TestExitError(t *testing.T) {
	err := &exitError{code: 3}
	if err.Error() != "exit status 3" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}
