// Package manifest keeps a history of flatten and restore runs as JSON
// files, one per run.
package manifest

import (
	"time"

	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

// OperationType represents the type of operation.
type OperationType string

const (
	// OpFlatten records a flatten run.
	OpFlatten OperationType = "flatten"
	// OpRestore records a restore run.
	OpRestore OperationType = "restore"
)

// Entry represents a single history entry.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Target    string        `json:"target"`

	// Moves lists the moves of a flatten, or the moves a restore read from
	// the restoration log.
	Moves []types.Move `json:"moves,omitempty"`

	// Directories lists the relative directories removed by a flatten or
	// recreated by a restore.
	Directories []string `json:"directories,omitempty"`

	Summary Summary `json:"summary"`
}

// Summary contains the operation summary.
type Summary struct {
	TotalFiles  int64         `json:"total_files"`
	TotalBytes  int64         `json:"total_bytes"`
	Skipped     int64         `json:"skipped"`
	Directories int64         `json:"directories"`
	Elapsed     time.Duration `json:"elapsed"`
}
