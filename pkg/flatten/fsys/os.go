package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charlievieth/fastwalk"
)

// OS implements [FS] on the host file system.
type OS struct{}

// NewOS returns the host file system.
func NewOS() OS {
	return OS{}
}

// Stat delegates to [os.Stat].
func (OS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// Walk traverses root with fastwalk without following symlinks.
// The callback runs concurrently across directories.
func (OS) Walk(root string, fn fs.WalkDirFunc) error {
	conf := fastwalk.Config{
		Follow: false,
	}
	return fastwalk.Walk(&conf, root, fn)
}

// Move renames src to dst without replacing an existing dst.
func (OS) Move(src, dst string) error {
	return renameNoReplace(src, dst)
}

// Mkdir delegates to [os.Mkdir].
func (OS) Mkdir(path string) error {
	return os.Mkdir(path, dirMode)
}

// RemoveDir removes path if it is an empty directory.
func (OS) RemoveDir(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrInvalid}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return &fs.PathError{Op: "remove", Path: path, Err: ErrDirNotEmpty}
	}

	return os.Remove(path)
}

// OpenAppend opens name in append mode, creating it as an executable script.
func (OS) OpenAppend(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logMode)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReadFile delegates to [os.ReadFile].
func (OS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Remove delegates to [os.Remove].
func (OS) Remove(name string) error {
	return os.Remove(name)
}

// renameChecked refuses to rename onto an existing path, then renames.
// It is not atomic; it is the fallback when the kernel lacks a no-replace
// rename.
func renameChecked(src, dst string) error {
	_, err := os.Lstat(dst)
	if err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking move target: %w", err)
	}
	return os.Rename(src, dst)
}

var _ FS = OS{}
