// Package config provides configuration management for the flatten tool.
package config

import "time"

// Default configuration values for flatten.
const (
	// DefaultTarget is the directory flattened when none is given.
	DefaultTarget = "in"

	// DefaultScriptName is the restoration log name inside the target.
	DefaultScriptName = "#restore.sh"

	// DefaultJoiner replaces path separators in flat names.
	DefaultJoiner = "__"

	// RestoreModeShell runs the restoration log with the system shell.
	RestoreModeShell = "shell"

	// RestoreModeBuiltin replays the restoration log in-process.
	RestoreModeBuiltin = "builtin"

	// DefaultShell interprets the restoration log in shell mode.
	DefaultShell = "sh"

	// DefaultRestoreTimeout bounds a restore run.
	DefaultRestoreTimeout = 10 * time.Minute

	// DefaultRetentionDays is the default number of days to keep history.
	DefaultRetentionDays = 30

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MiB"

	// DefaultLogMaxAge is the number of days rotated logs are kept.
	DefaultLogMaxAge = 30

	// DefaultLogMaxBackups is the number of rotated logs kept.
	DefaultLogMaxBackups = 5

	// appName names the XDG subdirectories.
	appName = "flatten"
)
