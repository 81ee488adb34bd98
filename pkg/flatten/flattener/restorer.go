package flattener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/jamesainslie/flatten/pkg/flatten/types"
	"github.com/jamesainslie/flatten/pkg/flatten/undolog"
)

// Restorer rebuilds a flattened tree from its restoration log.
type Restorer struct {
	opts Options
	err  error
}

// NewRestorer creates a Restorer. Invalid options are reported by Restore.
func NewRestorer(opts Options) *Restorer {
	err := opts.Validate()
	return &Restorer{opts: opts, err: err}
}

// Restore replays the restoration log in dir and deletes it once the replay
// succeeds. A failed replay returns a *types.ReplayError and keeps the log
// so the restore can be retried.
//
// The returned Result describes the moves and directories the log records.
func (r *Restorer) Restore(ctx context.Context, dir string) (*types.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	start := time.Now()

	root, err := r.validateRoot(dir)
	if err != nil {
		return nil, err
	}

	script := filepath.Join(root, r.opts.ScriptName)
	if _, err := r.opts.FS.Stat(script); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("restoration log %s: %w", script, types.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %w", types.ErrIO, err)
	}

	res := r.summarize(root, script)
	res.DryRun = r.opts.DryRun

	if r.opts.DryRun {
		res.Elapsed = time.Since(start)
		return res, nil
	}

	r.opts.phase(types.PhaseRestore)

	logger.Info("replaying restoration log", "script", script, "moves", len(res.Moves))
	if err := r.opts.Runner.Run(ctx, script); err != nil {
		logger.Error("replay failed, keeping restoration log", "script", script, "error", err)
		return nil, &types.ReplayError{Script: script, Err: err}
	}

	if err := r.opts.FS.Remove(script); err != nil {
		return nil, fmt.Errorf("%w: removing %s: %w", types.ErrIO, script, err)
	}

	res.Elapsed = time.Since(start)
	logger.Info("restore complete", "root", root, "moves", len(res.Moves), "elapsed", res.Elapsed)

	return res, nil
}

func (r *Restorer) validateRoot(dir string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	info, err := r.opts.FS.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("target directory %s: %w", root, types.ErrNotFound)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("target %s: %w", root, types.ErrNotDirectory)
	}
	return root, nil
}

// summarize reads the log into a Result. The log is only replayed by the
// Runner, so an unreadable log yields an empty summary rather than an error.
func (r *Restorer) summarize(root, script string) *types.Result {
	res := &types.Result{Root: root}

	data, err := r.opts.FS.ReadFile(script)
	if err != nil {
		logger.Warn("could not read restoration log", "script", script, "error", err)
		return res
	}
	records, err := undolog.Parse(bytes.NewReader(data))
	if err != nil {
		logger.Warn("could not parse restoration log", "script", script, "error", err)
		return res
	}

	for _, rec := range records {
		switch rec.Kind {
		case undolog.KindMkdir:
			res.Directories = append(res.Directories, rec.Args[0])
		case undolog.KindMove:
			m := types.Move{From: rec.Args[1], To: rec.Args[0]}
			if info, err := r.opts.FS.Stat(filepath.Join(root, filepath.FromSlash(m.To))); err == nil {
				m.Size = info.Size()
			}
			res.Moves = append(res.Moves, m)
		}
	}
	return res
}
