package undolog

import (
	"strings"
	"testing"

	"github.com/jamesainslie/flatten/pkg/flatten/fsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Line(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "mkdir",
			rec:  Mkdir("sub"),
			want: `mkdir "$p/sub"`,
		},
		{
			name: "move",
			rec:  Move("sub__y.txt", "sub/y.txt"),
			want: `mv "$p/sub__y.txt" "$p/sub/y.txt"`,
		},
		{
			name: "spaces are kept inside quotes",
			rec:  Mkdir("my docs/old files"),
			want: `mkdir "$p/my docs/old files"`,
		},
		{
			name: "shell metacharacters are escaped",
			rec:  Move("a__\"q\"$HOME`x`\\b", "a/\"q\"$HOME`x`\\b"),
			want: "mv \"$p/a__\\\"q\\\"\\$HOME\\`x\\`\\\\b\" \"$p/a/\\\"q\\\"\\$HOME\\`x\\`\\\\b\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Line())
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("reads records in file order", func(t *testing.T) {
		script := strings.Join([]string{
			Shebang,
			DirLine,
			`mkdir "$p/a"`,
			`mkdir "$p/a/b"`,
			``,
			`# appended by a later run`,
			`mv "$p/a__b__c.txt" "$p/a/b/c.txt"`,
		}, "\n")

		records, err := Parse(strings.NewReader(script))
		require.NoError(t, err)

		assert.Equal(t, []Record{
			Mkdir("a"),
			Mkdir("a/b"),
			Move("a__b__c.txt", "a/b/c.txt"),
		}, records)
	})

	t.Run("accepts the legacy bash header", func(t *testing.T) {
		script := "#!/bin/bash\np=$(cd `dirname $0`; pwd)\nmkdir \"$p/sub\"\nmv \"$p/sub__y.txt\" \"$p/sub/y.txt\"\n"

		records, err := Parse(strings.NewReader(script))
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("round trips escaped names", func(t *testing.T) {
		names := []string{
			`plain/file.txt`,
			`with space/and "quotes".txt`,
			`dollar/$HOME and ` + "`tick`",
			`back\slash/ünïcode.txt`,
		}
		var lines []string
		for _, n := range names {
			lines = append(lines, Move(strings.ReplaceAll(n, "/", "__"), n).Line())
		}

		records, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
		require.NoError(t, err)
		require.Len(t, records, len(names))
		for i, n := range names {
			assert.Equal(t, n, records[i].Args[1])
		}
	})

	t.Run("rejects malformed lines", func(t *testing.T) {
		bad := []string{
			`rm -rf "$p/a"`,
			`mkdir "$p/a" "$p/b"`,
			`mv "$p/a"`,
			`mkdir $p/a`,
			`mkdir "/abs/path"`,
			`mkdir "$p/unterminated`,
			`mkdir "$p/"`,
		}
		for _, line := range bad {
			_, err := Parse(strings.NewReader(Shebang + "\n" + line + "\n"))
			assert.ErrorIs(t, err, ErrMalformed, line)
			assert.ErrorContains(t, err, "line 2", line)
		}
	})
}

func TestRecord_NonUTF8Names(t *testing.T) {
	rec := Move("sub__caf\xe9.txt", "sub/caf\xe9.txt")

	line := rec.Line()
	assert.Equal(t, "mv \"$p/sub__caf\xe9.txt\" \"$p/sub/caf\xe9.txt\"", line)
	assert.NotContains(t, line, "\uFFFD")

	records, err := Parse(strings.NewReader(Shebang + "\n" + line + "\n"))
	require.NoError(t, err)
	assert.Equal(t, []Record{rec}, records)
}

func TestRecordedDirs(t *testing.T) {
	dirs := RecordedDirs([]Record{Mkdir("a"), Move("a__x", "a/x"), Mkdir("a/b")})
	assert.Equal(t, map[string]struct{}{"a": {}, "a/b": {}}, dirs)
}

func TestWriter(t *testing.T) {
	mem := fsys.NewMemory()
	require.NoError(t, mem.Fs().MkdirAll("/target", 0o755))

	f, err := mem.OpenAppend("/target/" + DefaultScriptName)
	require.NoError(t, err)

	w := NewWriter(f)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Append(Mkdir("sub")))
	require.NoError(t, w.Append(Move("sub__y.txt", "sub/y.txt")))
	require.NoError(t, w.Close())

	data, err := mem.ReadFile("/target/" + DefaultScriptName)
	require.NoError(t, err)

	want := "#!/bin/sh\n" +
		`p=$(cd "$(dirname "$0")"; pwd)` + "\n" +
		`mkdir "$p/sub"` + "\n" +
		`mv "$p/sub__y.txt" "$p/sub/y.txt"` + "\n"
	assert.Equal(t, want, string(data))
}
