package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// ErrInvalidRestoreMode is returned for a restore.mode other than shell or builtin.
var ErrInvalidRestoreMode = errors.New("invalid restore mode")

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RestoreConfig configures how the restoration log is executed.
type RestoreConfig struct {
	Mode    string        `mapstructure:"mode"`
	Shell   string        `mapstructure:"shell"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// HistoryConfig configures the run history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	DefaultTarget string        `mapstructure:"default_target"`
	ScriptName    string        `mapstructure:"script_name"`
	Joiner        string        `mapstructure:"joiner"`
	Restore       RestoreConfig `mapstructure:"restore"`
	History       HistoryConfig `mapstructure:"history"`
	Logging       LoggingConfig `mapstructure:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Load loads configuration from file and environment variables into a
// fresh viper instance. See LoadWith.
func Load(configFile string) (*Config, error) {
	return LoadWith(viper.New(), configFile)
}

// LoadWith loads configuration through v, so callers can bind command-line
// flags to keys before loading. When configFile is empty the file is
// searched in:
//   - $XDG_CONFIG_HOME/flatten/config.yaml
//   - $HOME/.config/flatten/config.yaml
//
// Environment variables are prefixed with FLATTEN_ (e.g. FLATTEN_JOINER,
// FLATTEN_RESTORE_MODE).
func LoadWith(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("FLATTEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.History.Path == "" {
		cfg.History.Path = HistoryDir()
	}
	expanded, err := ExpandPath(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	cfg.History.Path = expanded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_target", DefaultTarget)
	v.SetDefault("script_name", DefaultScriptName)
	v.SetDefault("joiner", DefaultJoiner)

	v.SetDefault("restore.mode", RestoreModeShell)
	v.SetDefault("restore.shell", DefaultShell)
	v.SetDefault("restore.timeout", DefaultRestoreTimeout)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means HistoryDir()
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means the logging package default
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", DefaultLogMaxAge)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
}

// Validate checks values that cannot be used as given.
func (c *Config) Validate() error {
	switch c.Restore.Mode {
	case RestoreModeShell, RestoreModeBuiltin:
	default:
		return fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidRestoreMode, c.Restore.Mode, RestoreModeShell, RestoreModeBuiltin)
	}

	if c.ScriptName == "" || strings.ContainsAny(c.ScriptName, `/\`) {
		return fmt.Errorf("invalid script_name %q: must be a plain file name", c.ScriptName)
	}
	if c.Joiner == "" {
		return errors.New("joiner cannot be empty")
	}
	if strings.ContainsAny(c.Joiner, `/\`) {
		return fmt.Errorf("invalid joiner %q: must not contain a path separator", c.Joiner)
	}

	return nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", appName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/flatten/.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/flatten/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// HistoryDir returns the default run history directory.
func HistoryDir() string {
	return filepath.Join(DataDir(), "history")
}

// WriteDefault writes a commented default config file if none exists and
// returns its path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# flatten configuration

# Directory flattened when no --input is given
default_target: %s

# Name of the restoration log written into the target
script_name: "%s"

# Replaces "/" in flattened file names
joiner: "%s"

restore:
  # shell runs the log with the system shell, builtin replays it in-process
  mode: %s
  shell: %s
  timeout: %s

# Run history
history:
  enabled: true
  # Empty means the default: %s
  path: ""
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Empty means the default: $XDG_STATE_HOME/flatten/flatten.log
  path: ""
  rotation:
    max_size: %s
    max_age: %d       # days
    max_backups: %d
`, DefaultTarget, DefaultScriptName, DefaultJoiner,
		RestoreModeShell, DefaultShell, DefaultRestoreTimeout,
		HistoryDir(), DefaultRetentionDays,
		DefaultLogMaxSize, DefaultLogMaxAge, DefaultLogMaxBackups)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
