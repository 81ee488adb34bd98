// Package output renders flatten and restore results for the terminal and
// for scripts: phase status lines while a run is in progress, and a summary
// in one of several formats (pretty, plain, json, yaml) when it ends.
//
// Basic usage:
//
//	formatter, err := output.Get("plain")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.NewReport(output.OpFlatten, result)); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

// Operation names what produced a report.
type Operation string

// Operations.
const (
	OpFlatten Operation = "flatten"
	OpRestore Operation = "restore"
)

// Report is the input to every formatter.
type Report struct {
	Operation Operation
	Result    *types.Result

	// ShowMoves lists every move, not just the totals. Dry runs always
	// list their moves.
	ShowMoves bool
}

// NewReport wraps a result for formatting.
func NewReport(op Operation, res *types.Result) *Report {
	if res == nil {
		res = &types.Result{}
	}
	return &Report{Operation: op, Result: res}
}

// listMoves reports whether the formatter should print individual moves.
func (r *Report) listMoves() bool {
	return r.ShowMoves || r.Result.DryRun
}

// renamed returns the moves that change a file's location.
func (r *Report) renamed() []types.Move {
	var out []types.Move
	for _, m := range r.Result.Moves {
		if !m.Skip {
			out = append(out, m)
		}
	}
	return out
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any
// formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
