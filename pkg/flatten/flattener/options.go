// Package flattener moves every file of a directory tree to the tree's root
// and restores the tree from the restoration log left behind.
//
// Flatten writes each undo record to the log, synced, before performing the
// move it undoes, so an interrupted run can always be reversed by Restore.
package flattener

import (
	"errors"
	"strings"

	"github.com/jamesainslie/flatten/pkg/flatten/fsys"
	"github.com/jamesainslie/flatten/pkg/flatten/naming"
	"github.com/jamesainslie/flatten/pkg/flatten/runner"
	"github.com/jamesainslie/flatten/pkg/flatten/types"
	"github.com/jamesainslie/flatten/pkg/flatten/undolog"
)

// Options configures a Flattener or Restorer.
type Options struct {
	// FS is the file system to operate on. Nil means the host file system.
	FS fsys.FS

	// ScriptName is the restoration log name inside the target directory.
	ScriptName string

	// Joiner replaces "/" in flat names.
	Joiner string

	// DryRun computes the result without touching the file system.
	DryRun bool

	// Runner executes the restoration log on restore. Nil runs it with the
	// system shell.
	Runner runner.Runner

	// OnPhase is called when a run enters a new phase.
	OnPhase func(types.Phase)

	// OnProgress is called after each file of a flatten is processed.
	OnProgress func(types.Progress)
}

// Validate applies defaults for unset fields and rejects unusable values.
func (o *Options) Validate() error {
	if o.FS == nil {
		o.FS = fsys.NewOS()
	}
	if o.ScriptName == "" {
		o.ScriptName = undolog.DefaultScriptName
	}
	if o.Joiner == "" {
		o.Joiner = naming.DefaultJoiner
	}
	if o.Runner == nil {
		o.Runner = runner.Shell{}
	}

	if strings.ContainsAny(o.ScriptName, `/\`) {
		return errors.New("script name must be a plain file name")
	}
	if strings.ContainsAny(o.Joiner, "/\\\n") {
		return errors.New("joiner must not contain a path separator or line break")
	}
	return nil
}

func (o *Options) phase(p types.Phase) {
	if o.OnPhase != nil {
		o.OnPhase(p)
	}
}

func (o *Options) progress(p types.Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}
