package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

// ErrEntryNotFound is returned by Get for an unknown ID.
var ErrEntryNotFound = errors.New("history entry not found")

// Manifest manages the run history on the filesystem.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New creates a new Manifest with the given directory.
// The directory is not created until EnsureDir is called.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// Dir returns the history directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// EnsureDir creates the history directory if it does not exist.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// LogFlatten records a completed flatten run.
func (m *Manifest) LogFlatten(res *types.Result) (*Entry, error) {
	return m.log(OpFlatten, res)
}

// LogRestore records a completed restore run.
func (m *Manifest) LogRestore(res *types.Result) (*Entry, error) {
	return m.log(OpRestore, res)
}

// log creates and persists an entry for the given operation.
func (m *Manifest) log(op OperationType, res *types.Result) (*Entry, error) {
	if res == nil {
		return nil, errors.New("nil result")
	}

	var moved int64
	for _, mv := range res.Moves {
		if !mv.Skip {
			moved++
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &Entry{
		ID:          generateID(op),
		Timestamp:   time.Now().UTC(),
		Operation:   op,
		Target:      res.Root,
		Moves:       res.Moves,
		Directories: res.Directories,
		Summary: Summary{
			TotalFiles:  moved,
			TotalBytes:  res.MovedBytes(),
			Skipped:     int64(res.Skipped),
			Directories: int64(len(res.Directories)),
			Elapsed:     res.Elapsed,
		},
	}

	if err := m.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to write history entry: %w", err)
	}

	return entry, nil
}

// writeEntry writes an entry to <id>.json, atomically via a temp file.
func (m *Manifest) writeEntry(entry *Entry) error {
	filePath := filepath.Join(m.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// List returns entries sorted newest first. A limit of 0 or less returns
// all entries. Unreadable files are skipped.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names, err := m.entryFiles()
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, name := range names {
		entry, err := m.readEntryFile(name)
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// Get retrieves an entry by ID. A unique ID prefix is accepted as well.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, err := m.readEntryFile(id + ".json"); err == nil {
		return entry, nil
	}

	names, err := m.entryFiles()
	if err != nil {
		return nil, err
	}

	var match string
	for _, name := range names {
		if !strings.HasPrefix(name, id) {
			continue
		}
		if match != "" {
			return nil, fmt.Errorf("ambiguous entry ID %q", id)
		}
		match = name
	}
	if match == "" {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	return m.readEntryFile(match)
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed. A retention of 0 or less keeps everything.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	names, err := m.entryFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range names {
		filePath := filepath.Join(m.dir, name)

		info, err := os.Stat(filePath)
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filePath); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}

// entryFiles lists the *.json files in the history directory.
// Must be called with m.mu held.
func (m *Manifest) entryFiles() ([]string, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var names []string
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		names = append(names, f.Name())
	}
	return names, nil
}

// readEntryFile reads and parses an entry from a JSON file.
func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}

// generateID creates an ID like "flatten-2024-06-15T10-30-00-1b4e28ba".
func generateID(op OperationType) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s-%s-%s", op, ts, uuid.NewString()[:8])
}
