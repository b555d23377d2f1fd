package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/tadash/internal/logger"
	"github.com/Lin-Jiong-HDU/tadash/internal/storage"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	logLevel   string

	appConfig *storage.Config
	appLogger = logger.Nop()
)

var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tadash",
		Short: "Safe, observable shell execution for LLM agents",
		Long: `tadash runs shell commands on behalf of an agent.

Commands are classified for risk before they run, risky ones need approval,
and long-running ones can be moved to tracked background tasks.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.tadash/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")

	cmd.AddCommand(
		getExecCommand(),
		getShellCommand(),
		getCheckCommand(),
		getMCPCommand(),
		getTasksCommand(),
		getConfigCommand(),
		getVersionCommand(),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := storage.InitConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	appConfig = cfg
	appLogger = log
	appLogger.Debug("config loaded", zap.String("command", cmd.Name()), zap.String("config", configPath))
	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = appLogger.Sync()
	if err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// exitError carries a command's exit status out of exec without printing.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
