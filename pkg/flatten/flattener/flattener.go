package flattener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/jamesainslie/flatten/pkg/flatten/logging"
	"github.com/jamesainslie/flatten/pkg/flatten/naming"
	"github.com/jamesainslie/flatten/pkg/flatten/scanner"
	"github.com/jamesainslie/flatten/pkg/flatten/types"
	"github.com/jamesainslie/flatten/pkg/flatten/undolog"
)

var logger = logging.Get("flattener")

// Flattener relocates every file of a tree to its root.
type Flattener struct {
	opts Options
	err  error
}

// New creates a Flattener. Invalid options are reported by Flatten.
func New(opts Options) *Flattener {
	err := opts.Validate()
	return &Flattener{opts: opts, err: err}
}

// Flatten moves every file below dir to dir itself, renamed to its flat
// name, records how to undo each move in the restoration log, and removes
// the emptied directories.
//
// Nothing is changed when the plan has a collision. Once moves start, the
// first failure aborts the batch; every move made up to that point is
// already recorded in the log.
func (f *Flattener) Flatten(ctx context.Context, dir string) (res *types.Result, err error) {
	if f.err != nil {
		return nil, f.err
	}
	start := time.Now()

	f.opts.phase(types.PhaseRead)

	listing, err := scanner.New(scanner.Options{
		Root:    dir,
		FS:      f.opts.FS,
		Exclude: []string{f.opts.ScriptName},
	}).Scan(ctx)
	if err != nil {
		return nil, err
	}

	moves, err := naming.Plan(listing.Files, f.opts.Joiner)
	if err != nil {
		return nil, err
	}
	if err := checkDirClash(moves, listing.Dirs); err != nil {
		return nil, err
	}

	res = &types.Result{
		Root:        listing.Root,
		Moves:       moves,
		Directories: listing.DirRels(),
		DryRun:      f.opts.DryRun,
	}
	for _, m := range moves {
		if m.Skip {
			res.Skipped++
		}
	}

	log := logger.With("root", res.Root)
	log.Info("flatten planned",
		"files", len(moves),
		"skipped", res.Skipped,
		"dirs", len(res.Directories),
		"dry_run", f.opts.DryRun)

	if f.opts.DryRun {
		res.Elapsed = time.Since(start)
		return res, nil
	}

	f.opts.phase(types.PhaseFlatten)

	w, created, err := f.openLog(res.Root, res.Directories)
	if err != nil {
		return nil, err
	}
	res.LogCreated = created
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %w", types.ErrIO, f.opts.ScriptName, cerr)
		}
	}()

	if err := f.moveAll(ctx, w, res); err != nil {
		return nil, err
	}

	if err := f.removeDirs(listing.Dirs); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	log.Info("flatten complete",
		"moved", len(moves)-res.Skipped,
		"bytes", res.MovedBytes(),
		"elapsed", res.Elapsed)

	return res, nil
}

// openLog opens the restoration log for appending. A new log gets the header
// and a mkdir record for every directory; an existing one gets mkdir records
// for the directories it does not list yet.
func (f *Flattener) openLog(root string, dirs []string) (*undolog.Writer, bool, error) {
	path := filepath.Join(root, f.opts.ScriptName)

	recorded, existed, err := f.recordedDirs(path)
	if err != nil {
		return nil, false, err
	}

	file, err := f.opts.FS.OpenAppend(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: opening %s: %w", types.ErrIO, path, err)
	}
	w := undolog.NewWriter(file)

	if !existed {
		if err := w.WriteHeader(); err != nil {
			_ = w.Close()
			return nil, false, fmt.Errorf("%w: %w", types.ErrIO, err)
		}
	}

	added := 0
	for _, rel := range dirs {
		if _, ok := recorded[rel]; ok {
			continue
		}
		if err := w.Append(undolog.Mkdir(rel)); err != nil {
			_ = w.Close()
			return nil, false, fmt.Errorf("%w: %w", types.ErrIO, err)
		}
		added++
	}

	logger.Debug("restoration log opened", "path", path, "existed", existed, "mkdir_records", added)
	return w, !existed, nil
}

// recordedDirs reads the directories already listed in the log at path.
// An absent or empty log counts as new.
func (f *Flattener) recordedDirs(path string) (map[string]struct{}, bool, error) {
	if _, err := f.opts.FS.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %w", types.ErrIO, err)
	}

	data, err := f.opts.FS.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %w", types.ErrIO, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	records, err := undolog.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("existing restoration log %s: %w", path, err)
	}
	return undolog.RecordedDirs(records), true, nil
}

// moveAll appends each undo record, then performs the move it undoes.
func (f *Flattener) moveAll(ctx context.Context, w *undolog.Writer, res *types.Result) error {
	total := len(res.Moves)

	for i, m := range res.Moves {
		if err := ctx.Err(); err != nil {
			logger.Warn("flatten cancelled", "done", i, "total", total)
			return err
		}

		if !m.Skip {
			if err := w.Append(undolog.Move(m.To, m.From)); err != nil {
				return fmt.Errorf("%w: %w", types.ErrIO, err)
			}

			src := filepath.Join(res.Root, filepath.FromSlash(m.From))
			dst := filepath.Join(res.Root, m.To)
			if err := f.opts.FS.Move(src, dst); err != nil {
				logger.Error("move failed", "from", m.From, "to", m.To, "error", err)
				return &types.MoveError{From: m.From, To: m.To, Err: err}
			}
			logger.Debug("moved", "from", m.From, "to", m.To)
		}

		f.opts.progress(types.Progress{Done: i + 1, Total: total, Current: m})
	}

	return nil
}

// removeDirs removes the listed directories deepest-first. Each must be
// empty by then.
func (f *Flattener) removeDirs(dirs []types.Entry) error {
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if err := f.opts.FS.RemoveDir(d.Path); err != nil {
			logger.Error("remove failed", "dir", d.Rel, "error", err)
			return &types.RemoveError{Path: d.Rel, Err: err}
		}
	}
	return nil
}

// checkDirClash reports flat names that equal a top-level directory. Such a
// move could only succeed after the directory is gone, which is too late.
func checkDirClash(moves []types.Move, dirs []types.Entry) error {
	top := make(map[string]struct{})
	for _, d := range dirs {
		if d.IsTopLevel() {
			top[d.Rel] = struct{}{}
		}
	}

	var clashes map[string][]string
	for _, m := range moves {
		if m.Skip {
			continue
		}
		if _, ok := top[m.To]; !ok {
			continue
		}
		if clashes == nil {
			clashes = make(map[string][]string)
		}
		clashes[m.To] = append(clashes[m.To], m.From)
	}
	if clashes == nil {
		return nil
	}

	for name, rels := range clashes {
		rels = append(rels, name+"/")
		sort.Strings(rels)
		clashes[name] = rels
	}
	return &types.CollisionError{Collisions: clashes}
}
