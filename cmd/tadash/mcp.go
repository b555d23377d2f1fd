package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/security"
	tadashmcp "github.com/Lin-Jiong-HDU/tadash/internal/mcp"
)

var mcpInstructions bool

func getMCPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over MCP on stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

There is no human in the loop, so commands that need approval are refused.
Lower security.command_level to "never" to let non-risky commands run
without confirmation; high-risk commands are always refused here.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}

	cmd.Flags().BoolVar(&mcpInstructions, "instructions", false, "print the model instructions and exit")

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	if mcpInstructions {
		_, err := cmd.OutOrStdout().Write([]byte(tadashmcp.Instructions + "\n"))
		return err
	}

	a, err := newApp(appConfig, appLogger, nil, appConfig.UI.PersistTasks)
	if err != nil {
		return err
	}
	engine := a.engine(&appConfig.Security, security.DenyApprover{})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("mcp server started", zap.String("session_id", a.session.ID))
	return tadashmcp.Serve(ctx, tadashmcp.NewServer(engine, version))
}
