package undolog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformed indicates a line that is not a restoration record.
var ErrMalformed = errors.New("malformed restoration log")

// maxLineSize bounds a single log line.
const maxLineSize = 1024 * 1024

// Parse reads records from a restoration log in file order.
// The shebang, the $p assignment, blank lines and comments are skipped, so
// logs written with a different shebang or $p form are accepted as well.
func Parse(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)

	var records []Record
	lineNum := 0

	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "p=") {
			continue
		}

		rec, err := parseLine(trimmed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading restoration log: %w", err)
	}

	return records, nil
}

// parseLine parses a single mkdir or mv command.
func parseLine(line string) (Record, error) {
	cmd, rest, _ := strings.Cut(line, " ")

	args, err := parseArgs(rest)
	if err != nil {
		return Record{}, err
	}

	var want int
	switch Kind(cmd) {
	case KindMkdir:
		want = 1
	case KindMove:
		want = 2
	default:
		return Record{}, fmt.Errorf("%w: unknown command %q", ErrMalformed, cmd)
	}
	if len(args) != want {
		return Record{}, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrMalformed, cmd, want, len(args))
	}

	return Record{Kind: Kind(cmd), Args: args}, nil
}

// parseArgs reads space-separated, double-quoted "$p/..." arguments.
func parseArgs(s string) ([]string, error) {
	var args []string

	for {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return args, nil
		}
		if s[0] != '"' {
			return nil, fmt.Errorf("%w: unquoted argument %q", ErrMalformed, s)
		}

		arg, n, err := readQuoted(s)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(arg, dirVar) {
			return nil, fmt.Errorf("%w: argument %q is not rooted at $p", ErrMalformed, arg)
		}
		rel := strings.TrimPrefix(arg, dirVar)
		if rel == "" {
			return nil, fmt.Errorf("%w: empty path argument", ErrMalformed)
		}

		args = append(args, rel)
		s = s[n:]
	}
}

// readQuoted decodes the double-quoted string at the start of s and
// returns it along with the number of bytes consumed.
func readQuoted(s string) (string, int, error) {
	var b strings.Builder

	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && isEscaped(s[i+1]):
			b.WriteByte(s[i+1])
			i++
		case c == '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}

	return "", 0, fmt.Errorf("%w: unterminated quote in %q", ErrMalformed, s)
}
