package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/flatten/pkg/flatten/config"
	"github.com/jamesainslie/flatten/pkg/flatten/flattener"
	"github.com/jamesainslie/flatten/pkg/flatten/logging"
	"github.com/jamesainslie/flatten/pkg/flatten/manifest"
	"github.com/jamesainslie/flatten/pkg/flatten/output"
	"github.com/jamesainslie/flatten/pkg/flatten/runner"
	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

var logger = logging.Get("cli")

// runSettings selects what a run does.
type runSettings struct {
	Restore   bool
	Builtin   bool
	DryRun    bool
	Format    string
	List      bool
	NoHistory bool
	Quiet     bool
}

// settingsFromFlags collects the run settings from flags and viper.
func settingsFromFlags() runSettings {
	return runSettings{
		Restore:   restoreFlag,
		Builtin:   builtinFlag,
		DryRun:    viper.GetBool("dry_run"),
		Format:    viper.GetString("format"),
		List:      viper.GetBool("list"),
		NoHistory: viper.GetBool("no_history"),
		Quiet:     getQuiet(),
	}
}

// runRoot is the root command handler.
func runRoot(_ *cobra.Command, args []string) error {
	target := appConfig.DefaultTarget
	if len(args) > 0 {
		target = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, appConfig, target, settingsFromFlags(), os.Stdout)
}

// run flattens or restores target and writes the status lines and summary
// to w.
func run(ctx context.Context, cfg *config.Config, target string, s runSettings, w io.Writer) error {
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return fmt.Errorf("failed to expand path: %w", err)
	}
	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	formatter, format, err := resolveFormatter(s.Format, w)
	if err != nil {
		return err
	}

	op := output.OpFlatten
	if s.Restore {
		op = output.OpRestore
	}

	// Status lines would corrupt machine-readable output.
	machine := format == "json" || format == "yaml"
	reporter := output.NewReporter(w, s.Quiet || machine)
	reporter.Start(op, absPath)

	opts := buildOptions(cfg, s)
	opts.OnPhase = reporter.Phase
	opts.OnProgress = func(p types.Progress) {
		if !p.Current.Skip {
			printVerbose("[%d/%d] %s -> %s", p.Done, p.Total, p.Current.From, p.Current.To)
		}
	}

	var res *types.Result
	if s.Restore {
		res, err = flattener.NewRestorer(opts).Restore(ctx, absPath)
	} else {
		res, err = flattener.New(opts).Flatten(ctx, absPath)
	}
	if err != nil {
		reporter.Fail(op)
		explain(reporter, err)
		return err
	}

	reporter.Done(op, res.DryRun)

	report := output.NewReport(op, res)
	report.ShowMoves = s.List
	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if !s.Quiet || machine {
		_, _ = io.Copy(w, &buf)
	}

	if !res.DryRun && cfg.History.Enabled && !s.NoHistory {
		recordHistory(cfg, op, res)
	}

	return nil
}

// buildOptions maps the configuration onto flattener options.
func buildOptions(cfg *config.Config, s runSettings) flattener.Options {
	opts := flattener.Options{
		ScriptName: cfg.ScriptName,
		Joiner:     cfg.Joiner,
		DryRun:     s.DryRun,
	}

	if s.Builtin || cfg.Restore.Mode == config.RestoreModeBuiltin {
		opts.Runner = runner.Replayer{}
	} else {
		opts.Runner = runner.Shell{
			Shell:   cfg.Restore.Shell,
			Timeout: cfg.Restore.Timeout,
		}
	}

	return opts
}

// resolveFormatter returns the formatter for name. An empty name picks
// pretty on a terminal and plain otherwise.
func resolveFormatter(name string, w io.Writer) (output.Formatter, string, error) {
	if name == "" {
		name = "plain"
		if output.IsTerminal(w) {
			name = "pretty"
		}
	}

	f, err := output.Get(name)
	if err != nil {
		return nil, "", fmt.Errorf("unknown format %q: available formats are %v", name, output.Available())
	}
	return f, name, nil
}

// explain prints a hint for errors the user can act on.
func explain(reporter *output.Reporter, err error) {
	var collision *types.CollisionError
	var replay *types.ReplayError
	var move *types.MoveError

	switch {
	case errors.As(err, &collision):
		reporter.Warn("nothing was moved; rename the colliding files and run again")
	case errors.As(err, &replay):
		reporter.Warn("the restoration log was kept at %s; fix the problem and run with -r again", replay.Script)
	case errors.As(err, &move):
		reporter.Warn("the tree is partially flattened; run with -r to undo the moves made so far")
	case errors.Is(err, context.Canceled):
		reporter.Warn("interrupted; every completed move is recorded in the restoration log")
	}
}

// recordHistory stores the run in the history. Failures are logged, not
// returned: the run itself succeeded.
func recordHistory(cfg *config.Config, op output.Operation, res *types.Result) {
	m, err := manifest.New(cfg.History.Path)
	if err == nil {
		err = m.EnsureDir()
	}
	if err != nil {
		logger.Warn("history unavailable", "path", cfg.History.Path, "error", err)
		return
	}

	var entry *manifest.Entry
	if op == output.OpRestore {
		entry, err = m.LogRestore(res)
	} else {
		entry, err = m.LogFlatten(res)
	}
	if err != nil {
		logger.Warn("failed to record history", "error", err)
		return
	}
	printVerbose("Recorded history entry %s", entry.ID)

	if removed, err := m.Cleanup(cfg.History.RetentionDays); err != nil {
		logger.Warn("history cleanup failed", "error", err)
	} else if removed > 0 {
		logger.Debug("history cleanup", "removed", removed)
	}
}
