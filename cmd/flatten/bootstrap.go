package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/flatten/pkg/flatten/config"
	"github.com/jamesainslie/flatten/pkg/flatten/logging"
)

// appConfig is the configuration loaded by initializeLogging.
var appConfig *config.Config

// initializeLogging is the PersistentPreRunE hook. It loads the
// configuration, creates the XDG directories and starts logging.
func initializeLogging(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadWith(viper.GetViper(), cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	appConfig = cfg

	if err := ensureDirectories(); err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:    cfg.Logging.Level,
		Path:     cfg.Logging.Path,
		Rotation: parseRotationConfig(cfg.Logging.Rotation),
	}
	if logCfg.Path == "" {
		logCfg.Path = logging.DefaultLogPath()
	}
	if getVerbose() {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	printVerbose("Config file: %s", configFileLabel(cfg))
	printVerbose("Log file: %s", logCfg.Path)
	return nil
}

// ensureDirectories creates the config, data and state directories.
func ensureDirectories() error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	for _, dir := range []string{configDir, config.DataDir(), config.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// parseRotationConfig converts the configured rotation settings. An empty or
// unparseable max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxSize:    logging.DefaultMaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
	}

	if rc.MaxSize != "" {
		size, err := humanize.ParseBytes(rc.MaxSize)
		if err == nil && size > 0 {
			out.MaxSize = int64(size)
		}
	}

	return out
}

func configFileLabel(cfg *config.Config) string {
	if cfg.File == "" {
		return "(none, using defaults)"
	}
	return cfg.File
}
