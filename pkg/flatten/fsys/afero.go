package fsys

import (
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// Afero implements [FS] on top of an afero.Fs.
type Afero struct {
	fs afero.Fs
}

// NewAfero wraps an afero file system.
func NewAfero(fs afero.Fs) *Afero {
	return &Afero{fs: fs}
}

// NewMemory returns an empty in-memory file system.
func NewMemory() *Afero {
	return NewAfero(afero.NewMemMapFs())
}

// Fs returns the underlying afero file system.
func (a *Afero) Fs() afero.Fs {
	return a.fs
}

func (a *Afero) Stat(name string) (fs.FileInfo, error) {
	return a.fs.Stat(name)
}

// Walk traverses root in lexical order with afero.Walk.
func (a *Afero) Walk(root string, fn fs.WalkDirFunc) error {
	return afero.Walk(a.fs, root, func(path string, info os.FileInfo, err error) error {
		var d fs.DirEntry
		if info != nil {
			d = fs.FileInfoToDirEntry(info)
		}
		return fn(path, d, err)
	})
}

func (a *Afero) Move(src, dst string) error {
	if _, err := a.fs.Stat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return a.fs.Rename(src, dst)
}

func (a *Afero) Mkdir(path string) error {
	return a.fs.Mkdir(path, dirMode)
}

// RemoveDir checks emptiness itself; MemMapFs.Remove would drop a
// directory together with its children.
func (a *Afero) RemoveDir(path string) error {
	info, err := a.fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrInvalid}
	}

	empty, err := afero.IsEmpty(a.fs, path)
	if err != nil {
		return err
	}
	if !empty {
		return &fs.PathError{Op: "remove", Path: path, Err: ErrDirNotEmpty}
	}

	return a.fs.Remove(path)
}

func (a *Afero) OpenAppend(name string) (File, error) {
	return a.fs.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logMode)
}

func (a *Afero) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(a.fs, name)
}

func (a *Afero) Remove(name string) error {
	return a.fs.Remove(name)
}

var _ FS = (*Afero)(nil)
