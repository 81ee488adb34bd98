// Package fsys defines the file system capability used by the flattener and
// the built-in log replayer.
//
// Production code uses [OS], which walks with fastwalk and moves files with a
// no-replace rename. Tests use [Afero] over an in-memory afero.Fs, which keeps
// the flatten algorithm testable without touching the real disk.
package fsys

import (
	"errors"
	"io"
	"io/fs"
)

// ErrDirNotEmpty is returned by RemoveDir when the directory still has entries.
var ErrDirNotEmpty = errors.New("directory not empty")

// File is an append-mode handle on the restoration log.
type File interface {
	io.Writer
	io.Closer
	Sync() error
}

// FS is the set of file system operations the flatten and restore
// algorithms need. Paths are absolute, using the host separator.
type FS interface {
	// Stat returns file info for the named path.
	Stat(name string) (fs.FileInfo, error)

	// Walk visits root and everything below it, including dot-prefixed
	// names. Implementations may call fn from several goroutines.
	Walk(root string, fn fs.WalkDirFunc) error

	// Move renames src to dst. It fails with an error matching
	// fs.ErrExist rather than replace an existing dst.
	Move(src, dst string) error

	// Mkdir creates a single directory.
	Mkdir(path string) error

	// RemoveDir removes an empty directory. It fails with ErrDirNotEmpty
	// when entries remain, and never removes anything but a directory.
	RemoveDir(path string) error

	// OpenAppend opens name for appending, creating it if needed.
	OpenAppend(name string) (File, error)

	// ReadFile returns the contents of the named file.
	ReadFile(name string) ([]byte, error)

	// Remove deletes the named file.
	Remove(name string) error
}

// logMode is the permission of a newly created restoration log; it is an
// executable shell script.
const logMode fs.FileMode = 0o755

// dirMode is the permission of directories recreated during restore.
const dirMode fs.FileMode = 0o755
