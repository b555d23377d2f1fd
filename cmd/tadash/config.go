package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/tadash/internal/storage"
)

var configForce bool

func getConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		dir, err := storage.GetConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, storage.ConfigFileName+"."+storage.ConfigFileType)
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	written, err := storage.SaveConfig(appConfig, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", written)
	return nil
}
