package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMaxSize is the log size that triggers rotation when none is set.
const DefaultMaxSize = 10 << 20

// RotationConfig bounds the log files kept on disk.
type RotationConfig struct {
	// MaxSize is the size in bytes at which the log is rotated.
	// Zero uses DefaultMaxSize.
	MaxSize int64

	// MaxAge removes backups last written more than this many days ago.
	// Zero keeps backups regardless of age.
	MaxAge int

	// MaxBackups is the number of backups kept. Zero keeps all of them.
	MaxBackups int
}

// RotatingWriter appends to a log file and, once it reaches MaxSize, shifts
// it to numbered backups: flatten.log becomes flatten.log.1, the previous
// flatten.log.1 becomes flatten.log.2, and so on. It is safe for concurrent
// use.
type RotatingWriter struct {
	path string
	cfg  RotationConfig

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotatingWriter opens path for appending, creating its directory, and
// prunes backups the configuration no longer allows.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()
	return w, nil
}

// Write appends p, rotating first when p would take a non-empty file past
// MaxSize. A single record is never split across files.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.cfg.MaxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close syncs and closes the file. Later writes fail with os.ErrClosed.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("opening log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	w.file = nil

	// Shift from the highest number down so nothing is overwritten.
	backups := w.backups()
	for i := len(backups) - 1; i >= 0; i-- {
		_ = os.Rename(backups[i].path, w.backupPath(backups[i].n+1))
	}
	if err := os.Rename(w.path, w.backupPath(1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotating log file: %w", err)
	}

	if err := w.open(); err != nil {
		return err
	}
	w.prune()
	return nil
}

type backup struct {
	path string
	n    int
}

func (w *RotatingWriter) backupPath(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// backups lists the numbered backups of the log, lowest number first.
func (w *RotatingWriter) backups() []backup {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}

	prefix := filepath.Base(w.path) + "."
	var found []backup
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok || e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 1 {
			continue
		}
		found = append(found, backup{path: filepath.Join(filepath.Dir(w.path), e.Name()), n: n})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	return found
}

// prune deletes backups past MaxBackups and backups older than MaxAge.
// Failures are ignored; pruning is retried on the next rotation.
func (w *RotatingWriter) prune() {
	cutoff := time.Now().AddDate(0, 0, -w.cfg.MaxAge)

	for i, b := range w.backups() {
		drop := w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups
		if !drop && w.cfg.MaxAge > 0 {
			if info, err := os.Stat(b.path); err == nil && info.ModTime().Before(cutoff) {
				drop = true
			}
		}
		if drop {
			_ = os.Remove(b.path)
		}
	}
}
