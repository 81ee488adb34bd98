package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders a styled summary with lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if r.listMoves() {
		w.WriteString(f.formatMoves(r))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	return nil
}

func (f *PrettyFormatter) formatHeader(r *Report) string {
	title := string(r.Operation)
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	if r.Result.DryRun {
		title += " (dry run)"
	}

	lines := []string{
		TitleStyle.Render(title),
		fmt.Sprintf("%s %s", LabelStyle.Render("Target:"), ValueStyle.Render(r.Result.Root)),
	}
	if r.Result.LogCreated {
		lines = append(lines, MutedStyle.Render("restoration log created"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatMoves(r *Report) string {
	moves := r.renamed()
	if len(moves) == 0 {
		return MutedStyle.Render("  Nothing to move") + "\n"
	}

	width := 8
	for _, m := range moves {
		if n := len(humanize.IBytes(uint64(m.Size))); n > width {
			width = n
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s\n",
		TableHeaderStyle.Render(padLeft("SIZE", width)),
		TableHeaderStyle.Render("MOVE")))

	for _, m := range moves {
		from, to := m.From, m.To
		if r.Operation == OpRestore {
			from, to = to, from
		}
		sb.WriteString(fmt.Sprintf("  %s  %s %s %s\n",
			SizeStyle.Render(padLeft(humanize.IBytes(uint64(m.Size)), width)),
			PathStyle.Render(from),
			MutedStyle.Render("->"),
			PathStyle.Render(to)))
	}

	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Report) string {
	res := r.Result
	verb := "Moved"
	if res.DryRun {
		verb = "Would move"
	}

	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render(verb+":"),
			ValueStyle.Render(fmt.Sprintf("%d files", len(r.renamed())))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Size:"),
			SizeStyle.Render(humanize.IBytes(uint64(res.MovedBytes())))),
	}
	if res.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Top-level:"),
			ValueStyle.Render(fmt.Sprintf("%d", res.Skipped))))
	}
	if len(res.Directories) > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Directories:"),
			ValueStyle.Render(fmt.Sprintf("%d", len(res.Directories)))))
	}
	if res.Elapsed > 0 {
		parts = append(parts, MutedStyle.Render(formatDuration(res.Elapsed)))
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

// padLeft pads s with spaces on the left to width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatDuration formats a run time in a human-friendly way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
