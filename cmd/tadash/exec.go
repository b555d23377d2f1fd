package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/tadash/internal/core"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/security"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/shell"
	"github.com/Lin-Jiong-HDU/tadash/internal/terminal"
)

var (
	execTimeout int
	execDir     string
	execYes     bool
)

func getExecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Run one command through the security gate",
		Long: `Run a single shell command in the foreground.

Output is streamed as it arrives and the command's exit status becomes
tadash's exit status. Commands that need approval are confirmed on the
terminal unless --yes is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}

	cmd.Flags().IntVarP(&execTimeout, "timeout", "t", 0, "timeout in milliseconds (default from config)")
	cmd.Flags().StringVarP(&execDir, "dir", "d", "", "working directory")
	cmd.Flags().BoolVarP(&execYes, "yes", "y", false, "approve commands that need confirmation")

	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, appLogger, nil, false)
	if err != nil {
		return err
	}

	// Nobody is left to poll a background task once this process exits.
	policy := appConfig.Security
	policy.AllowBackground = false

	var approver security.Approver = terminal.Confirmer{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
	if execYes {
		approver = security.AllowApprover{}
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	engine := a.engine(&policy, approver, core.WithOutput(func(ev shell.OutputEvent) {
		switch {
		case ev.Type == shell.EventBinaryDetected:
			fmt.Fprintln(stderr, "[binary output detected]")
		case ev.Type != shell.EventData:
		case ev.Stream == shell.Stderr:
			fmt.Fprint(stderr, ev.Text)
		default:
			fmt.Fprint(stdout, ev.Text)
		}
	}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := engine.Execute(ctx, core.ExecuteParams{
		Command:   strings.Join(args, " "),
		Timeout:   execTimeout,
		Directory: execDir,
	})
	if res.Result == nil {
		return errors.New(res.LLMContent)
	}

	result := res.Result
	switch {
	case result.Error != nil:
		return result.Error
	case result.Cancelled:
		return fmt.Errorf("command cancelled (%s)", result.AbortReason)
	case result.Signal != "":
		return fmt.Errorf("command killed by %s", result.Signal)
	case result.ExitCode != nil && *result.ExitCode != 0:
		return &exitError{code: *result.ExitCode}
	}
	return nil
}
