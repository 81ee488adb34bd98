// Package undolog reads and writes the restoration log left in a flattened
// directory.
//
// The log is a POSIX shell script so it can be replayed with the system
// shell, but it is written and read as a sequence of structured records:
//
//	#!/bin/sh
//	p=$(cd "$(dirname "$0")"; pwd)
//	mkdir "$p/sub"
//	mv "$p/sub__y.txt" "$p/sub/y.txt"
//
// Record arguments are slash-separated paths relative to the directory
// holding the script.
package undolog

import (
	"strings"
)

// DefaultScriptName is the name of the restoration log inside a flattened
// directory.
const DefaultScriptName = "#restore.sh"

const (
	// Shebang is the first line of a new log.
	Shebang = "#!/bin/sh"

	// DirLine captures the directory containing the script into $p.
	DirLine = `p=$(cd "$(dirname "$0")"; pwd)`

	// dirVar prefixes every path argument.
	dirVar = "$p/"
)

// Kind is the operation of a record.
type Kind string

const (
	// KindMkdir recreates a directory.
	KindMkdir Kind = "mkdir"
	// KindMove moves a flattened file back to its original path.
	KindMove Kind = "mv"
)

// Record is one undo operation.
type Record struct {
	Kind Kind
	Args []string
}

// Mkdir returns a record that recreates the directory rel.
func Mkdir(rel string) Record {
	return Record{Kind: KindMkdir, Args: []string{rel}}
}

// Move returns a record that moves the flattened file flat back to orig.
func Move(flat, orig string) Record {
	return Record{Kind: KindMove, Args: []string{flat, orig}}
}

// Line renders the record as a single shell command without a trailing newline.
func (r Record) Line() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	for _, arg := range r.Args {
		b.WriteByte(' ')
		b.WriteString(quote(arg))
	}
	return b.String()
}

// quote renders rel as "$p/<rel>", escaping the characters that keep their
// special meaning inside double quotes. It works on bytes: file names need
// not be valid UTF-8.
func quote(rel string) string {
	var b strings.Builder
	b.Grow(len(rel) + len(dirVar) + 2)
	b.WriteByte('"')
	b.WriteString(dirVar)
	for i := 0; i < len(rel); i++ {
		if isEscaped(rel[i]) {
			b.WriteByte('\\')
		}
		b.WriteByte(rel[i])
	}
	b.WriteByte('"')
	return b.String()
}

func isEscaped(c byte) bool {
	switch c {
	case '"', '$', '`', '\\':
		return true
	}
	return false
}

// RecordedDirs returns the set of directories created by mkdir records.
func RecordedDirs(records []Record) map[string]struct{} {
	dirs := make(map[string]struct{})
	for _, r := range records {
		if r.Kind == KindMkdir && len(r.Args) == 1 {
			dirs[r.Args[0]] = struct{}{}
		}
	}
	return dirs
}
