package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/flatten/pkg/flatten/config"
	"github.com/jamesainslie/flatten/pkg/flatten/logging"
)

func TestParseRotationConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    config.RotationConfig
		expected logging.RotationConfig
	}{
		{
			name: "default values",
			input: config.RotationConfig{
				MaxSize:    "10MiB",
				MaxAge:     30,
				MaxBackups: 5,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     30,
				MaxBackups: 5,
			},
		},
		{
			name: "decimal units",
			input: config.RotationConfig{
				MaxSize:    "1G",
				MaxAge:     7,
				MaxBackups: 3,
			},
			expected: logging.RotationConfig{
				MaxSize:    1000 * 1000 * 1000,
				MaxAge:     7,
				MaxBackups: 3,
			},
		},
		{
			name: "empty max_size uses default",
			input: config.RotationConfig{
				MaxSize:    "",
				MaxAge:     14,
				MaxBackups: 2,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     14,
				MaxBackups: 2,
			},
		},
		{
			name: "invalid max_size uses default",
			input: config.RotationConfig{
				MaxSize:    "invalid",
				MaxAge:     21,
				MaxBackups: 4,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     21,
				MaxBackups: 4,
			},
		},
		{
			name: "zero max_size uses default",
			input: config.RotationConfig{
				MaxSize: "0",
			},
			expected: logging.RotationConfig{
				MaxSize: 10 * 1024 * 1024,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseRotationConfig(tt.input)

			if result.MaxSize != tt.expected.MaxSize {
				t.Errorf("MaxSize = %d, want %d", result.MaxSize, tt.expected.MaxSize)
			}
			if result.MaxAge != tt.expected.MaxAge {
				t.Errorf("MaxAge = %d, want %d", result.MaxAge, tt.expected.MaxAge)
			}
			if result.MaxBackups != tt.expected.MaxBackups {
				t.Errorf("MaxBackups = %d, want %d", result.MaxBackups, tt.expected.MaxBackups)
			}
		})
	}
}

func TestInitializeLoggingEnsuresDirectories(t *testing.T) {
	// XDG data and state paths are cached at package init time, so only the
	// config directory and the log file can be redirected.
	configHome := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "logs", "flatten.log")
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("FLATTEN_LOGGING_PATH", logPath)

	err := initializeLogging(nil, nil)
	if err != nil {
		t.Fatalf("initializeLogging() returned error: %v", err)
	}
	defer func() { _ = logging.Close() }()

	if appConfig == nil {
		t.Fatal("initializeLogging() did not load the configuration")
	}
	if appConfig.DefaultTarget != config.DefaultTarget {
		t.Errorf("DefaultTarget = %q, want %q", appConfig.DefaultTarget, config.DefaultTarget)
	}

	flattenConfigDir := filepath.Join(configHome, "flatten")
	if _, err := os.Stat(flattenConfigDir); os.IsNotExist(err) {
		t.Errorf("config directory was not created: %s", flattenConfigDir)
	}

	if _, err := os.Stat(config.DataDir()); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", config.DataDir())
	}

	if _, err := os.Stat(config.StateDir()); os.IsNotExist(err) {
		t.Errorf("state directory was not created: %s", config.StateDir())
	}

	logging.Get("test").Info("hello")
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Errorf("log file was not created: %s", logPath)
	}
}

func TestInitializeLoggingInvalidConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FLATTEN_RESTORE_MODE", "python")

	if err := initializeLogging(nil, nil); err == nil {
		t.Error("initializeLogging() expected error for invalid restore mode")
	}
}
