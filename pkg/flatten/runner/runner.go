// Package runner executes a restoration log.
//
// Two runners are provided: [Shell] hands the script to the system shell,
// and [Replayer] parses it and applies each record through an fsys.FS
// without spawning a process.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/flatten/pkg/flatten/fsys"
	"github.com/jamesainslie/flatten/pkg/flatten/logging"
	"github.com/jamesainslie/flatten/pkg/flatten/undolog"
)

var logger = logging.Get("runner")

// DefaultShell is the interpreter used by Shell when none is set.
const DefaultShell = "sh"

// DefaultTimeout bounds a single restoration run.
const DefaultTimeout = 10 * time.Minute

// ErrUnsafePath is returned when a record points outside the script directory.
var ErrUnsafePath = errors.New("path escapes the restoration directory")

// Runner executes the restoration log at scriptPath.
type Runner interface {
	Run(ctx context.Context, scriptPath string) error
}

// replayPrelude is evaluated by the shell before it sources the log. It
// shadows mkdir and mv so that records already applied are skipped: the
// directories of a flatten that stopped part way still exist, and the last
// logged move may never have happened. The log itself is sourced as $0 so
// its $p line resolves to the log's directory.
const replayPrelude = `mkdir() {
	if [ $# -eq 1 ] && [ -d "$1" ]; then
		return 0
	fi
	command mkdir "$@"
}
mv() {
	if [ $# -eq 2 ] && [ ! -e "$1" ] && [ ! -L "$1" ] && { [ -e "$2" ] || [ -L "$2" ]; }; then
		return 0
	fi
	command mv "$@"
}
. "$0"
`

// Shell runs the log with a POSIX shell in errexit mode, so execution stops
// at the first failing command. Records that were already applied, an
// existing directory or a move whose source is gone and whose destination
// exists, are skipped, which makes a replay safe to repeat.
type Shell struct {
	// Shell is the interpreter name or path. Empty uses DefaultShell.
	Shell string

	// Timeout bounds the run. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Run implements Runner.
func (s Shell) Run(ctx context.Context, scriptPath string) error {
	shell := s.Shell
	if shell == "" {
		shell = DefaultShell
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// The prelude sources $0, which must not be looked up in PATH.
	if abs, err := filepath.Abs(scriptPath); err == nil {
		scriptPath = abs
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-e", "-c", replayPrelude, scriptPath)
	cmd.Dir = filepath.Dir(scriptPath)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	logger.Debug("running restoration log", "shell", shell, "script", scriptPath)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", shell, scriptPath, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", shell, scriptPath, err, msg)
		}
		return fmt.Errorf("%s %s: %w", shell, scriptPath, err)
	}

	return nil
}

// Replayer applies the log's records directly through FS. Like the shell
// runner it stops at the first failing record.
type Replayer struct {
	FS fsys.FS
}

// Run implements Runner.
func (r Replayer) Run(ctx context.Context, scriptPath string) error {
	files := r.FS
	if files == nil {
		files = fsys.NewOS()
	}

	data, err := files.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", scriptPath, err)
	}

	records, err := undolog.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", scriptPath, err)
	}

	dir := filepath.Dir(scriptPath)
	logger.Debug("replaying restoration log", "script", scriptPath, "records", len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := apply(files, dir, rec); err != nil {
			return fmt.Errorf("record %d (%s): %w", i+1, rec.Line(), err)
		}
	}

	return nil
}

func apply(files fsys.FS, dir string, rec undolog.Record) error {
	paths := make([]string, len(rec.Args))
	for i, rel := range rec.Args {
		p, err := resolve(dir, rel)
		if err != nil {
			return err
		}
		paths[i] = p
	}

	switch rec.Kind {
	case undolog.KindMkdir:
		return mkdir(files, paths[0])
	case undolog.KindMove:
		return move(files, paths[0], paths[1])
	default:
		return fmt.Errorf("%w: unknown command %q", undolog.ErrMalformed, rec.Kind)
	}
}

// mkdir creates path, accepting a directory that already exists.
func mkdir(files fsys.FS, path string) error {
	err := files.Mkdir(path)
	if err == nil || !errors.Is(err, fs.ErrExist) {
		return err
	}
	if info, statErr := files.Stat(path); statErr == nil && info.IsDir() {
		return nil
	}
	return err
}

// move puts a flattened file back. A move whose source is gone and whose
// destination exists has already been applied, by an earlier partial replay
// or because the flatten stopped between logging the move and making it.
func move(files fsys.FS, src, dst string) error {
	err := files.Move(src, dst)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if _, statErr := files.Stat(dst); statErr == nil {
		logger.Debug("move already applied", "dst", dst)
		return nil
	}
	return err
}

// resolve joins a slash-separated relative path onto dir.
func resolve(dir, rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	return filepath.Join(dir, local), nil
}
