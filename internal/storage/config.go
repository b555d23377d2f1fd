package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/execution"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/security"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/shell"
	"github.com/Lin-Jiong-HDU/tadash/internal/logger"
)

const (
	ConfigFileName = "config"
	ConfigFileType = "yaml"
	TadashDirName  = ".tadash"
	EnvPrefix      = "TADASH"
)

// Config holds the application configuration
type Config struct {
	Security security.SecurityPolicy `mapstructure:"security"`
	Shell    ShellConfig             `mapstructure:"shell"`
	Log      logger.Config           `mapstructure:"log"`
	UI       UIConfig                `mapstructure:"ui"`
}

// ShellConfig holds execution settings
type ShellConfig struct {
	Shell               string        `mapstructure:"shell"`
	DefaultTimeout      time.Duration `mapstructure:"default_timeout"`
	MaxTimeout          time.Duration `mapstructure:"max_timeout"`
	BackgroundThreshold time.Duration `mapstructure:"background_threshold"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	MaxOutputBytes      int64         `mapstructure:"max_output_bytes"`
	KillGrace           time.Duration `mapstructure:"kill_grace"`
}

// Engine returns the shell engine settings.
func (c ShellConfig) Engine() shell.Config {
	return shell.Config{
		Shell:          c.Shell,
		DefaultTimeout: c.DefaultTimeout,
		MaxTimeout:     c.MaxTimeout,
		MaxOutputBytes: c.MaxOutputBytes,
		KillGrace:      c.KillGrace,
	}
}

// Controller returns the background transition settings.
func (c ShellConfig) Controller() execution.Config {
	return execution.Config{
		Threshold:    c.BackgroundThreshold,
		PollInterval: c.PollInterval,
	}
}

// UIConfig holds console settings
type UIConfig struct {
	RenderMarkdown bool `mapstructure:"render_markdown"`
	PersistTasks   bool `mapstructure:"persist_tasks"`
}

// GetConfigDir returns the tadash config directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, TadashDirName), nil
}

func setDefaults(v *viper.Viper) {
	// Security defaults
	policy := security.DefaultPolicy()
	v.SetDefault("security.command_level", string(policy.CommandLevel))
	v.SetDefault("security.allow_shell", policy.AllowShell)
	v.SetDefault("security.allow_background", policy.AllowBackground)
	v.SetDefault("security.restricted_paths", []string{})
	v.SetDefault("security.readonly_paths", []string{})

	// Shell defaults
	engine := shell.DefaultConfig()
	controller := execution.DefaultConfig()
	v.SetDefault("shell.shell", "")
	v.SetDefault("shell.default_timeout", engine.DefaultTimeout)
	v.SetDefault("shell.max_timeout", engine.MaxTimeout)
	v.SetDefault("shell.background_threshold", controller.Threshold)
	v.SetDefault("shell.poll_interval", controller.PollInterval)
	v.SetDefault("shell.max_output_bytes", engine.MaxOutputBytes)
	v.SetDefault("shell.kill_grace", engine.KillGrace)

	// Log defaults
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")

	// UI defaults
	v.SetDefault("ui.render_markdown", true)
	v.SetDefault("ui.persist_tasks", true)
}

// InitConfig loads the configuration from path, or from config.yaml in the
// tadash directory when path is empty. A missing file is not an error.
// Every key can be overridden with TADASH_<SECTION>_<KEY>.
func InitConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(ConfigFileType)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		configDir, err := GetConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(configDir)
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not exists)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !cfg.Security.CommandLevel.Valid() {
		return nil, fmt.Errorf("invalid security.command_level %q (want always, dangerous or never)", cfg.Security.CommandLevel)
	}

	return &cfg, nil
}

// SaveConfig writes cfg to path, or to the default location when path is
// empty, and returns the path written.
func SaveConfig(cfg *Config, path string) (string, error) {
	if path == "" {
		configDir, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(configDir, ConfigFileName+"."+ConfigFileType)
	}

	// Create config directory if not exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(ConfigFileType)

	// Save security config
	v.Set("security.command_level", string(cfg.Security.CommandLevel))
	v.Set("security.allow_shell", cfg.Security.AllowShell)
	v.Set("security.allow_background", cfg.Security.AllowBackground)
	v.Set("security.restricted_paths", cfg.Security.RestrictedPaths)
	v.Set("security.readonly_paths", cfg.Security.ReadOnlyPaths)

	v.Set("shell.shell", cfg.Shell.Shell)
	v.Set("shell.default_timeout", cfg.Shell.DefaultTimeout.String())
	v.Set("shell.max_timeout", cfg.Shell.MaxTimeout.String())
	v.Set("shell.background_threshold", cfg.Shell.BackgroundThreshold.String())
	v.Set("shell.poll_interval", cfg.Shell.PollInterval.String())
	v.Set("shell.max_output_bytes", cfg.Shell.MaxOutputBytes)
	v.Set("shell.kill_grace", cfg.Shell.KillGrace.String())

	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)

	v.Set("ui.render_markdown", cfg.UI.RenderMarkdown)
	v.Set("ui.persist_tasks", cfg.UI.PersistTasks)

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
