// Package scanner lists every entry below a target directory, dot-prefixed
// names included, and partitions the result into sorted files and
// directories for the flattener.
package scanner

import (
	"fmt"
	"path/filepath"

	"github.com/jamesainslie/flatten/pkg/flatten/fsys"
)

// Options configures the scanner behavior.
type Options struct {
	// Root is the directory to list. Relative paths are resolved against
	// the working directory.
	Root string

	// FS is the file system to walk. Nil means the host file system.
	FS fsys.FS

	// Exclude holds slash-separated relative paths left out of the
	// listing, such as the restoration log itself.
	Exclude []string
}

// Validate applies defaults for unset fields and rejects exclusions that
// are not relative paths inside the root.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = "."
	}
	if o.FS == nil {
		o.FS = fsys.NewOS()
	}
	for _, rel := range o.Exclude {
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return fmt.Errorf("exclude %q: not a relative path inside the root", rel)
		}
	}
	return nil
}
