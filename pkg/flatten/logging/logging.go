// Package logging gives each part of flatten a named logger. Records go to a
// size-rotated logfmt file under the XDG state directory and, with
// --verbose, to stderr as well.
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	log := logging.Get("flattener").With("root", "/home/user/in")
//	log.Info("flatten planned", "files", 12)
//
// Loggers may be obtained before Init, typically in package variables; they
// drop records until Init runs and pick up the sinks it installs.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned for a level other than debug, info, warn or error.
var ErrInvalidLevel = errors.New("invalid log level")

// Config configures Init.
type Config struct {
	// Level is the minimum level written to the log file.
	Level string

	// Path is the log file. Empty uses DefaultLogPath.
	Path string

	// Rotation bounds the size and number of log files.
	Rotation RotationConfig

	// ConsoleLevel mirrors records at or above this level to stderr.
	// Empty keeps stderr quiet.
	ConsoleLevel string
}

// parseLevel accepts the level names used in the config file.
func parseLevel(s string) (log.Level, error) {
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	lvl, err := log.ParseLevel(s)
	if err != nil || lvl == log.FatalLevel {
		return log.InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return lvl, nil
}

// sinks is the output installed by Init: the log file and, optionally,
// stderr. A nil *sinks drops every record.
type sinks struct {
	writer  *RotatingWriter
	file    *log.Logger
	console *log.Logger
}

var (
	mu      sync.RWMutex
	current *sinks
)

func active() *sinks {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Logger writes records for one component. The zero value is not usable;
// obtain loggers with Get.
type Logger struct {
	component string
	fields    []interface{}
}

// Get returns the logger for component.
func Get(component string) *Logger {
	return &Logger{component: component}
}

// With returns a logger that adds keyvals to every record.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(keyvals))
	fields = append(fields, l.fields...)
	fields = append(fields, keyvals...)
	return &Logger{component: l.component, fields: fields}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.emit(log.DebugLevel, msg, keyvals) }

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) { l.emit(log.InfoLevel, msg, keyvals) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) { l.emit(log.WarnLevel, msg, keyvals) }

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.emit(log.ErrorLevel, msg, keyvals) }

func (l *Logger) emit(level log.Level, msg string, keyvals []interface{}) {
	s := active()
	if s == nil {
		return
	}

	kv := make([]interface{}, 0, 2+len(l.fields)+len(keyvals))
	kv = append(kv, "component", l.component)
	kv = append(kv, l.fields...)
	kv = append(kv, keyvals...)

	s.file.Log(level, msg, kv...)
	if s.console != nil {
		s.console.Log(level, msg, kv...)
	}
}

// Init opens the log file and starts routing records to it, replacing any
// earlier configuration.
func Init(cfg Config) error {
	fileLevel, err := parseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	var console *log.Logger
	if cfg.ConsoleLevel != "" {
		lvl, err := parseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("console level: %w", err)
		}
		console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           lvl,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		})
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return err
	}

	next := &sinks{
		writer: writer,
		file: log.NewWithOptions(writer, log.Options{
			Level:           fileLevel,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Formatter:       log.LogfmtFormatter,
		}),
		console: console,
	}

	mu.Lock()
	prev := current
	current = next
	mu.Unlock()

	if prev != nil {
		_ = prev.writer.Close()
	}
	return nil
}

// Close stops logging and closes the log file.
func Close() error {
	mu.Lock()
	prev := current
	current = nil
	mu.Unlock()

	if prev == nil {
		return nil
	}
	if err := prev.writer.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/flatten/flatten.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "flatten", "flatten.log")
}
