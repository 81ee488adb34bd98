// Package naming computes flat names for files in a target directory and
// detects when two files would be flattened onto the same name.
package naming

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

// DefaultJoiner replaces the path separator in flat names.
const DefaultJoiner = "__"

// FlatName returns the flat name of a slash-separated relative path.
// For "a/b/c.txt" and joiner "__" it returns "a__b__c.txt".
func FlatName(rel, joiner string) string {
	return strings.ReplaceAll(rel, "/", joiner)
}

// Plan maps every file to its flat name, preserving the input order.
// Top-level files map onto themselves and are marked Skip.
//
// Plan fails with a *types.CollisionError when two distinct files share a
// flat name, and with types.ErrUnsupportedName when a name contains a
// newline. No moves are returned in either case.
func Plan(files []types.Entry, joiner string) ([]types.Move, error) {
	if joiner == "" {
		joiner = DefaultJoiner
	}

	moves := make([]types.Move, 0, len(files))
	owners := make(map[string][]string, len(files))

	for _, f := range files {
		if strings.ContainsAny(f.Rel, "\n\r") {
			return nil, fmt.Errorf("%w: %q contains a line break", types.ErrUnsupportedName, f.Rel)
		}

		flat := FlatName(f.Rel, joiner)
		owners[flat] = append(owners[flat], f.Rel)
		moves = append(moves, types.Move{
			From: f.Rel,
			To:   flat,
			Size: f.Size,
			Skip: flat == f.Rel,
		})
	}

	if collisions := findCollisions(owners); len(collisions) > 0 {
		return nil, &types.CollisionError{Collisions: collisions}
	}

	return moves, nil
}

// findCollisions returns the flat names owned by more than one path.
func findCollisions(owners map[string][]string) map[string][]string {
	var collisions map[string][]string
	for flat, rels := range owners {
		if len(rels) < 2 {
			continue
		}
		if collisions == nil {
			collisions = make(map[string][]string)
		}
		sorted := append([]string(nil), rels...)
		sort.Strings(sorted)
		collisions[flat] = sorted
	}
	return collisions
}
