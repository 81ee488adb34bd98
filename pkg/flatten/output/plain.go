package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// PlainFormatter writes an unstyled, tab-aligned summary suitable for
// piping. Moves are listed as SIZE FROM TO rows.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	res := r.Result

	if r.listMoves() {
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		if _, err := fmt.Fprintln(tw, "SIZE\tFROM\tTO"); err != nil {
			return err
		}
		for _, m := range r.renamed() {
			from, to := m.From, m.To
			if r.Operation == OpRestore {
				from, to = to, from
			}
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", humanize.IBytes(uint64(m.Size)), from, to); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	verb := "moved"
	if res.DryRun {
		verb = "would move"
	}
	_, err := fmt.Fprintf(w, "%s %s: %s %d files (%s), %d top-level, %d directories\n",
		r.Operation, res.Root, verb, len(r.renamed()),
		humanize.IBytes(uint64(res.MovedBytes())), res.Skipped, len(res.Directories))
	return err
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
