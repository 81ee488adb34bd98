package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/flatten/pkg/flatten/logging"
	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

var logger = logging.Get("scanner")

// Listing is the sorted content of a target directory.
type Listing struct {
	// Root is the absolute target directory.
	Root string

	// Files holds every non-directory entry, sorted by path.
	Files []types.Entry

	// Dirs holds every directory below Root, sorted by path.
	Dirs []types.Entry
}

// DirRels returns the relative paths of all directories, in sorted order.
func (l *Listing) DirRels() []string {
	rels := make([]string, len(l.Dirs))
	for i, d := range l.Dirs {
		rels[i] = d.Rel
	}
	return rels
}

// Scanner lists a directory tree.
type Scanner struct {
	opts Options
	err  error

	// root is the resolved absolute path being scanned.
	root    string
	exclude map[string]struct{}

	mu    sync.Mutex
	files []types.Entry
	dirs  []types.Entry

	dirsScanned  atomic.Int64
	filesScanned atomic.Int64
}

// New creates a new Scanner with the given options. Invalid options are
// reported by Scan.
func New(opts Options) *Scanner {
	err := opts.Validate()

	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, rel := range opts.Exclude {
		exclude[filepath.ToSlash(rel)] = struct{}{}
	}

	return &Scanner{
		opts:    opts,
		err:     err,
		exclude: exclude,
	}
}

// Scan walks the tree and returns the sorted listing. Unlike a best-effort
// walk, any error aborts the scan: flattening a partial listing would leave
// files behind in directories that are about to be removed.
func (s *Scanner) Scan(ctx context.Context) (*Listing, error) {
	if s.err != nil {
		return nil, s.err
	}

	root, err := s.validateRoot()
	if err != nil {
		return nil, err
	}
	s.root = root

	if err := s.opts.FS.Walk(root, s.walkCallback(ctx)); err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	sortEntries(s.files)
	sortEntries(s.dirs)

	logger.Debug("scan complete",
		"root", root,
		"files", s.filesScanned.Load(),
		"dirs", s.dirsScanned.Load())

	return &Listing{
		Root:  root,
		Files: s.files,
		Dirs:  s.dirs,
	}, nil
}

// validateRoot resolves the root path to absolute and verifies it is a directory.
func (s *Scanner) validateRoot() (string, error) {
	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return "", err
	}

	info, err := s.opts.FS.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("target directory %s: %w", root, types.ErrNotFound)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("target %s: %w", root, types.ErrNotDirectory)
	}

	return root, nil
}

// walkCallback returns the callback for FS.Walk. It may run concurrently.
func (s *Scanner) walkCallback(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return err
		}
		if path == s.root {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if _, ok := s.exclude[rel]; ok {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			s.dirsScanned.Add(1)
			s.add(&s.dirs, types.Entry{Path: path, Rel: rel, Kind: types.KindDirectory})
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		s.filesScanned.Add(1)
		s.add(&s.files, types.Entry{Path: path, Rel: rel, Kind: types.KindFile, Size: info.Size()})
		return nil
	}
}

// add appends an entry thread-safely.
func (s *Scanner) add(list *[]types.Entry, e types.Entry) {
	s.mu.Lock()
	*list = append(*list, e)
	s.mu.Unlock()
}

// sortEntries orders entries lexicographically by absolute path.
func sortEntries(entries []types.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}
