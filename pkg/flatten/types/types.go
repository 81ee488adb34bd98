// Package types provides core data types for the flatten tool.
// It includes the entries found while listing a target directory, the moves
// planned and performed by a flatten run, and the run result, along with a
// size formatting helper shared by the output and history packages.
package types

import (
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Kind distinguishes files from directories in a listing.
type Kind string

const (
	// KindFile is anything that is not a directory (regular files, and
	// links or special files which are moved as-is).
	KindFile Kind = "file"
	// KindDirectory is a directory under the target.
	KindDirectory Kind = "directory"
)

// Entry is a file or directory under the target directory.
type Entry struct {
	// Path is the absolute path of the entry.
	Path string `json:"path"`

	// Rel is the slash-separated path relative to the target directory.
	Rel string `json:"rel"`

	// Kind is file or directory.
	Kind Kind `json:"kind"`

	// Size is the file size in bytes (zero for directories).
	Size int64 `json:"size"`
}

// Depth returns the nesting depth of the entry; top-level entries have depth 0.
func (e Entry) Depth() int {
	return strings.Count(e.Rel, "/")
}

// IsTopLevel reports whether the entry sits directly under the target.
func (e Entry) IsTopLevel() bool {
	return e.Depth() == 0
}

// Move is one planned or performed relocation.
type Move struct {
	// From is the original slash-separated relative path.
	From string `json:"from"`

	// To is the flat name, relative to the target directory.
	To string `json:"to"`

	// Size is the size of the moved file in bytes.
	Size int64 `json:"size"`

	// Skip is set when the file is already top-level and needs no rename.
	Skip bool `json:"skip,omitempty"`
}

// Dir returns the directory part of the original path ("" for top-level files).
func (m Move) Dir() string {
	d := path.Dir(m.From)
	if d == "." {
		return ""
	}
	return d
}

// Result summarises a flatten or restore run.
type Result struct {
	// Root is the absolute target directory.
	Root string `json:"root"`

	// Moves lists the moves performed (or planned, for a dry run),
	// including top-level files marked Skip.
	Moves []Move `json:"moves"`

	// Skipped is the number of files already at the top level.
	Skipped int `json:"skipped"`

	// Directories lists the relative directories created or removed.
	Directories []string `json:"directories,omitempty"`

	// LogCreated is set when this run created the restoration log.
	LogCreated bool `json:"log_created,omitempty"`

	// DryRun is set when nothing on disk was changed.
	DryRun bool `json:"dry_run,omitempty"`

	// Elapsed is the wall time of the run.
	Elapsed time.Duration `json:"elapsed"`
}

// MovedBytes returns the total size of the files that changed location.
func (r *Result) MovedBytes() int64 {
	var total int64
	for _, m := range r.Moves {
		if !m.Skip {
			total += m.Size
		}
	}
	return total
}

// Progress reports the state of a running flatten.
type Progress struct {
	// Done is the number of files processed so far.
	Done int `json:"done"`

	// Total is the number of files in the listing.
	Total int `json:"total"`

	// Current is the move just completed.
	Current Move `json:"current"`
}

// Phase is a step of a flatten or restore run.
type Phase string

// Phases in the order a run reports them.
const (
	PhaseRead    Phase = "read"
	PhaseFlatten Phase = "flatten"
	PhaseRestore Phase = "restore"
)

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
