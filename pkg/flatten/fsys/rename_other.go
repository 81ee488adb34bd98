//go:build !linux

package fsys

// renameNoReplace falls back to a checked rename on platforms without
// renameat2.
func renameNoReplace(src, dst string) error {
	return renameChecked(src, dst)
}
