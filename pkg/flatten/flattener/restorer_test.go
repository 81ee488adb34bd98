package flattener

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/flatten/pkg/flatten/fsys"
	"github.com/jamesainslie/flatten/pkg/flatten/runner"
	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

// stubRunner records the scripts it is asked to run.
type stubRunner struct {
	err     error
	scripts []string
}

func (s *stubRunner) Run(_ context.Context, script string) error {
	s.scripts = append(s.scripts, script)
	return s.err
}

// Scenario B: restoring Scenario A recreates sub/ and moves y.txt back.
func TestRestore_RoundTripInMemory(t *testing.T) {
	tree := map[string]string{
		"x.txt":          "x",
		".hidden":        "h",
		"sub/y.txt":      "y",
		"sub/deep/z.txt": "z",
		"sub/empty/":     "",
		"other/w.txt":    "w",
	}
	mem := memTree(t, tree)
	before := snapshot(t, mem)

	_, err := New(Options{FS: mem}).Flatten(context.Background(), root)
	require.NoError(t, err)
	require.NotEqual(t, before, snapshot(t, mem))

	var phases []types.Phase
	res, err := NewRestorer(Options{
		FS:      mem,
		Runner:  runner.Replayer{FS: mem},
		OnPhase: func(p types.Phase) { phases = append(phases, p) },
	}).Restore(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, before, snapshot(t, mem))
	_, err = mem.Stat(logPath)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	assert.Equal(t, []types.Phase{types.PhaseRestore}, phases)
	assert.Equal(t, []string{"other", "sub", "sub/deep", "sub/empty"}, res.Directories)
	assert.Len(t, res.Moves, 3)
	assert.Equal(t, types.Move{From: "other/w.txt", To: "other__w.txt", Size: 1}, res.Moves[0])
}

func TestRestore_AfterRepeatedFlatten(t *testing.T) {
	mem := memTree(t, map[string]string{"sub/y.txt": "y"})
	f := New(Options{FS: mem})

	_, err := f.Flatten(context.Background(), root)
	require.NoError(t, err)

	require.NoError(t, mem.Fs().MkdirAll(root+"/sub/new", 0o755))
	require.NoError(t, afero.WriteFile(mem.Fs(), root+"/sub/new/z.txt", []byte("z"), 0o644))
	want := snapshot(t, mem)
	want["sub/y.txt"] = "y"
	delete(want, "sub__y.txt")

	_, err = f.Flatten(context.Background(), root)
	require.NoError(t, err)

	_, err = NewRestorer(Options{FS: mem, Runner: runner.Replayer{FS: mem}}).Restore(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, want, snapshot(t, mem))
}

func TestRestore_RoundTripWithShell(t *testing.T) {
	if _, err := exec.LookPath(runner.DefaultShell); err != nil {
		t.Skip("no sh available")
	}

	dir := t.TempDir()
	files := map[string]string{
		"x.txt":              "x",
		".env":               "E=1",
		"sub/my file.txt":    "spaces",
		"sub/deep/$HOME.txt": "dollar",
		"sub/deep/`q`.txt":   "backtick",
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	res, err := New(Options{}).Flatten(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, res.LogCreated)
	assert.NoDirExists(t, filepath.Join(dir, "sub"))
	assert.FileExists(t, filepath.Join(dir, "sub__deep__$HOME.txt"))

	_, err = NewRestorer(Options{}).Restore(context.Background(), dir)
	require.NoError(t, err)

	for rel, content := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Equal(t, content, string(data))
	}
	assert.NoFileExists(t, filepath.Join(dir, "#restore.sh"))
	assert.NoFileExists(t, filepath.Join(dir, "sub__my file.txt"))
}

// failingOS fails the nth Move on the host file system.
type failingOS struct {
	fsys.OS
	failMoveAt int
	moves      int
}

func (f *failingOS) Move(src, dst string) error {
	f.moves++
	if f.moves == f.failMoveAt {
		return errInjected
	}
	return f.OS.Move(src, dst)
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func requireFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Equal(t, content, string(data), rel)
	}
}

// A flatten that fails part way leaves its directories in place and may
// have logged a move it never made; the default restore undoes it anyway.
func TestRestore_AfterFailedFlatten(t *testing.T) {
	if _, err := exec.LookPath(runner.DefaultShell); err != nil {
		t.Skip("no sh available")
	}

	dir := t.TempDir()
	files := map[string]string{
		"sub/a.txt": "a",
		"sub/b.txt": "b",
		"sub/c.txt": "c",
	}
	writeTree(t, dir, files)

	_, err := New(Options{FS: &failingOS{failMoveAt: 2}}).Flatten(context.Background(), dir)
	var moveErr *types.MoveError
	require.True(t, errors.As(err, &moveErr))
	assert.FileExists(t, filepath.Join(dir, "sub__a.txt"))
	assert.DirExists(t, filepath.Join(dir, "sub"))

	_, err = NewRestorer(Options{}).Restore(context.Background(), dir)
	require.NoError(t, err)

	requireFiles(t, dir, files)
	assert.NoFileExists(t, filepath.Join(dir, "sub__a.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "#restore.sh"))
}

func TestRestore_AfterFailedFlattenInMemory(t *testing.T) {
	mem := memTree(t, map[string]string{
		"sub/a.txt": "a",
		"sub/b.txt": "b",
	})
	before := snapshot(t, mem)

	_, err := New(Options{FS: &failFS{Afero: mem, failMoveAt: 2}}).Flatten(context.Background(), root)
	require.ErrorIs(t, err, errInjected)

	_, err = NewRestorer(Options{FS: mem, Runner: runner.Replayer{FS: mem}}).Restore(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, before, snapshot(t, mem))
}

func TestRestore_NonUTF8Names(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("file names must be valid UTF-8 on this platform")
	}

	runners := map[string]runner.Runner{
		"builtin": runner.Replayer{},
	}
	if _, err := exec.LookPath(runner.DefaultShell); err == nil {
		runners["shell"] = runner.Shell{}
	}

	for name, r := range runners {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			files := map[string]string{"sub/caf\xe9.txt": "latin1"}
			writeTree(t, dir, files)

			_, err := New(Options{}).Flatten(context.Background(), dir)
			require.NoError(t, err)
			assert.FileExists(t, filepath.Join(dir, "sub__caf\xe9.txt"))

			_, err = NewRestorer(Options{Runner: r}).Restore(context.Background(), dir)
			require.NoError(t, err)
			requireFiles(t, dir, files)
		})
	}
}

func TestRestore_FailureKeepsLog(t *testing.T) {
	mem := memTree(t, map[string]string{"sub/y.txt": "y"})
	_, err := New(Options{FS: mem}).Flatten(context.Background(), root)
	require.NoError(t, err)

	stub := &stubRunner{err: errors.New("exit status 1")}
	_, err = NewRestorer(Options{FS: mem, Runner: stub}).Restore(context.Background(), root)

	var replayErr *types.ReplayError
	require.True(t, errors.As(err, &replayErr))
	assert.Equal(t, logPath, replayErr.Script)
	assert.Equal(t, []string{logPath}, stub.scripts)

	_, err = mem.Stat(logPath)
	assert.NoError(t, err)
}

func TestRestore_MissingLog(t *testing.T) {
	mem := memTree(t, map[string]string{"x.txt": "x"})
	stub := &stubRunner{}

	_, err := NewRestorer(Options{FS: mem, Runner: stub}).Restore(context.Background(), root)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Empty(t, stub.scripts)
}

func TestRestore_TargetErrors(t *testing.T) {
	mem := memTree(t, map[string]string{"file": "x"})
	r := NewRestorer(Options{FS: mem, Runner: &stubRunner{}})

	_, err := r.Restore(context.Background(), "/missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = r.Restore(context.Background(), root+"/file")
	assert.ErrorIs(t, err, types.ErrNotDirectory)
}

func TestRestore_DryRun(t *testing.T) {
	mem := memTree(t, map[string]string{
		"sub/y.txt": "yy",
		"x.txt":     "x",
	})
	_, err := New(Options{FS: mem}).Flatten(context.Background(), root)
	require.NoError(t, err)
	flat := snapshot(t, mem)

	stub := &stubRunner{}
	res, err := NewRestorer(Options{FS: mem, Runner: stub, DryRun: true}).Restore(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, []types.Move{{From: "sub/y.txt", To: "sub__y.txt", Size: 2}}, res.Moves)
	assert.Equal(t, []string{"sub"}, res.Directories)
	assert.Empty(t, stub.scripts)
	assert.Equal(t, flat, snapshot(t, mem))
	_, err = mem.Stat(logPath)
	assert.NoError(t, err)
}

func TestRestore_UnparseableLogStillRuns(t *testing.T) {
	mem := memTree(t, map[string]string{"#restore.sh": "#!/bin/sh\necho custom\n"})
	stub := &stubRunner{}

	res, err := NewRestorer(Options{FS: mem, Runner: stub}).Restore(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, res.Moves)
	assert.Equal(t, []string{logPath}, stub.scripts)
	_, err = mem.Stat(logPath)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
