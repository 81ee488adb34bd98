package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/jamesainslie/flatten/pkg/flatten/types"
)

// phaseMessages are the status lines printed when a phase starts.
var phaseMessages = map[types.Phase]string{
	types.PhaseRead:    "Reading file system",
	types.PhaseFlatten: "Flattening file system",
	types.PhaseRestore: "Restoring file system",
}

// ruleWidth is the width of the separator printed around a run.
const ruleWidth = 50

// Reporter prints status lines at phase boundaries.
type Reporter struct {
	w      io.Writer
	quiet  bool
	styled bool
}

// NewReporter returns a Reporter writing to w. Styling is enabled when w is
// a terminal. A quiet Reporter prints nothing.
func NewReporter(w io.Writer, quiet bool) *Reporter {
	return &Reporter{w: w, quiet: quiet, styled: IsTerminal(w)}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start announces an operation on target.
func (r *Reporter) Start(op Operation, target string) {
	r.println(r.render(TitleStyle, fmt.Sprintf("--> [%s] %s", target, op)))
	r.rule()
}

// Phase announces the start of a phase.
func (r *Reporter) Phase(p types.Phase) {
	msg, ok := phaseMessages[p]
	if !ok {
		msg = string(p)
	}
	r.println(r.render(LabelStyle, msg+" ..."))
}

// Done closes an operation.
func (r *Reporter) Done(op Operation, dryRun bool) {
	msg := "Done flattening."
	if op == OpRestore {
		msg = "Done restoration."
	}
	if dryRun {
		msg += " Nothing was changed (dry run)."
	}
	r.println(r.render(SuccessStyle, msg))
	r.rule()
}

// Fail closes an operation that returned an error.
func (r *Reporter) Fail(op Operation) {
	msg := "Flattening failed."
	if op == OpRestore {
		msg = "Restoration failed."
	}
	r.println(r.render(ErrorStyle, msg))
	r.rule()
}

// Warn prints a warning line.
func (r *Reporter) Warn(format string, args ...interface{}) {
	r.println(r.render(WarningStyle, "warning: "+fmt.Sprintf(format, args...)))
}

func (r *Reporter) rule() {
	r.println(r.render(MutedStyle, strings.Repeat("=", ruleWidth)))
}

func (r *Reporter) render(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}

func (r *Reporter) println(s string) {
	if r.quiet {
		return
	}
	_, _ = fmt.Fprintln(r.w, s)
}
