package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/flatten/pkg/flatten/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage flatten configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/flatten/config.yaml (if set)
  2. ~/.config/flatten/config.yaml

Environment variables can override config file settings using the FLATTEN_ prefix:
  FLATTEN_DEFAULT_TARGET=~/inbox
  FLATTEN_JOINER=--
  FLATTEN_RESTORE_MODE=builtin`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// envOverrides lists the environment variables config show reports.
var envOverrides = []string{
	"FLATTEN_DEFAULT_TARGET",
	"FLATTEN_SCRIPT_NAME",
	"FLATTEN_JOINER",
	"FLATTEN_RESTORE_MODE",
	"FLATTEN_RESTORE_SHELL",
	"FLATTEN_RESTORE_TIMEOUT",
	"FLATTEN_HISTORY_ENABLED",
	"FLATTEN_HISTORY_PATH",
	"FLATTEN_HISTORY_RETENTION_DAYS",
	"FLATTEN_LOGGING_LEVEL",
	"FLATTEN_LOGGING_PATH",
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := appConfig

	if cfg.File != "" {
		fmt.Printf("Config file: %s\n\n", cfg.File)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("default_target:          %s\n", cfg.DefaultTarget)
	fmt.Printf("script_name:             %s\n", cfg.ScriptName)
	fmt.Printf("joiner:                  %s\n", cfg.Joiner)
	fmt.Printf("restore.mode:            %s\n", cfg.Restore.Mode)
	fmt.Printf("restore.shell:           %s\n", cfg.Restore.Shell)
	fmt.Printf("restore.timeout:         %s\n", cfg.Restore.Timeout)
	fmt.Printf("history.enabled:         %t\n", cfg.History.Enabled)
	fmt.Printf("history.path:            %s\n", cfg.History.Path)
	fmt.Printf("history.retention:       %d days\n", cfg.History.RetentionDays)
	fmt.Printf("logging.level:           %s\n", cfg.Logging.Level)
	fmt.Printf("logging.rotation.size:   %s\n", cfg.Logging.Rotation.MaxSize)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	anyOverrides := false
	for _, name := range envOverrides {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
