package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates a missing target directory or restoration log.
	ErrNotFound = errors.New("not found")

	// ErrNotDirectory indicates the target path exists but is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIO indicates the restoration log could not be created, opened or appended.
	ErrIO = errors.New("restoration log i/o")

	// ErrUnsupportedName indicates a path that cannot be recorded in the
	// line-based restoration log.
	ErrUnsupportedName = errors.New("unsupported file name")
)

// MoveError is returned when a file cannot be moved to its flat name.
type MoveError struct {
	From string
	To   string
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// RemoveError is returned when an emptied directory cannot be removed.
type RemoveError struct {
	Path string
	Err  error
}

func (e *RemoveError) Error() string {
	return fmt.Sprintf("remove directory %s: %v", e.Path, e.Err)
}

func (e *RemoveError) Unwrap() error { return e.Err }

// CollisionError is returned when distinct relative paths map to the same
// flat name. Collisions maps each flat name to the sorted relative paths
// that produce it.
type CollisionError struct {
	Collisions map[string][]string
}

func (e *CollisionError) Error() string {
	names := make([]string, 0, len(e.Collisions))
	for name := range e.Collisions {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s <- [%s]", name, strings.Join(e.Collisions[name], ", ")))
	}
	return fmt.Sprintf("flat name collision: %s", strings.Join(parts, "; "))
}

// ReplayError is returned when the restoration log could not be replayed.
// The log is left in place so the restore can be retried.
type ReplayError struct {
	Script string
	Err    error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay %s: %v", e.Script, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }
