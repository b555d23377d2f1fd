package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/tadash/internal/core"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/execution"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/tui"
	"github.com/Lin-Jiong-HDU/tadash/internal/terminal"
)

var shellNoRender bool

func getShellCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive console",
		Long: `Run commands interactively.

You approve risky commands as they come up. Commands that keep producing
output past the background threshold can be moved to the background, then
inspected with /tasks, /output and /kill.`,
		Args: cobra.NoArgs,
		RunE: runShell,
	}

	cmd.Flags().BoolVar(&shellNoRender, "no-render", false, "disable markdown rendering")

	return cmd
}

func runShell(cmd *cobra.Command, args []string) error {
	notifier := execution.NewChannelNotifier(0)
	a, err := newApp(appConfig, appLogger, notifier, appConfig.UI.PersistTasks)
	if err != nil {
		return err
	}

	repl := terminal.NewREPL(cmd.OutOrStdout(), notifier.Events())
	if appConfig.UI.RenderMarkdown && !shellNoRender {
		renderer, err := terminal.NewRenderer(100)
		if err != nil {
			appLogger.Warn("markdown renderer unavailable", zap.Error(err))
		} else {
			repl.SetRenderer(renderer)
		}
	}

	repl.SetEngine(a.engine(&appConfig.Security, repl.Approver(), core.WithOutput(repl.OnOutput)))
	repl.SetTaskViewer(func() error { return tui.Run(a.registry) })

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	appLogger.Info("console started", zap.String("session_id", a.session.ID))
	return repl.Run(ctx, terminal.NewLineReader(cmd.InOrStdin()))
}
