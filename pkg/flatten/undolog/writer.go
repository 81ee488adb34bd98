package undolog

import (
	"fmt"

	"github.com/jamesainslie/flatten/pkg/flatten/fsys"
)

// Writer appends records to an open restoration log. Every write is synced
// before it returns, so a record is durable before the move it undoes.
type Writer struct {
	f fsys.File
}

// NewWriter wraps an append-mode log file.
func NewWriter(f fsys.File) *Writer {
	return &Writer{f: f}
}

// WriteHeader writes the shebang and the $p assignment.
func (w *Writer) WriteHeader() error {
	return w.writeLine(Shebang + "\n" + DirLine)
}

// Append writes one record.
func (w *Writer) Append(r Record) error {
	return w.writeLine(r.Line())
}

func (w *Writer) writeLine(s string) error {
	if _, err := w.f.Write([]byte(s + "\n")); err != nil {
		return fmt.Errorf("writing restoration log: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("syncing restoration log: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}
